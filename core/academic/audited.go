package academic

import (
	"context"

	"github.com/kat-co/vala"

	"github.com/trezcool/chuo/core/access"
	"github.com/trezcool/chuo/core/audit"
)

// auditedRepository records an audit entry for every create, update and delete going through it.
// Entries are written with the wrapped repository, so inside InTx they share the transaction.
type auditedRepository struct {
	Repository
	rec *audit.Recorder
}

var _ Repository = (*auditedRepository)(nil) // interface compliance check

// NewAuditedRepository wraps repo so that all its mutations are audited by rec.
func NewAuditedRepository(repo Repository, rec *audit.Recorder) Repository {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(rec, "rec"),
	).CheckAndPanic()

	return &auditedRepository{Repository: repo, rec: rec}
}

func (r *auditedRepository) InTx(ctx context.Context, fn func(repo Repository) error) error {
	return r.Repository.InTx(ctx, func(tx Repository) error {
		return fn(&auditedRepository{Repository: tx, rec: r.rec})
	})
}

func created[T audit.Trackable](ctx context.Context, r *auditedRepository, obj T, err error) (T, error) {
	if err == nil {
		r.rec.Created(ctx, r.Repository, obj)
	}
	return obj, err
}

// updated snapshots the row before the write; the diff is skipped when no snapshot could be taken.
func updated[T audit.Trackable](ctx context.Context, r *auditedRepository, snapshot func() (T, error), update func() (T, error)) (T, error) {
	before, snapErr := snapshot()
	after, err := update()
	if err != nil {
		return after, err
	}
	if snapErr != nil {
		r.rec.Updated(ctx, r.Repository, nil, after)
	} else {
		r.rec.Updated(ctx, r.Repository, before, after)
	}
	return after, nil
}

func deleted[T audit.Trackable](ctx context.Context, r *auditedRepository, snapshot func() (T, error), fallback T, del func() error) error {
	obj, snapErr := snapshot()
	if snapErr != nil {
		obj = fallback
	}
	if err := del(); err != nil {
		return err
	}
	r.rec.Deleted(ctx, r.Repository, obj)
	return nil
}

// Departments

func (r *auditedRepository) CreateDepartment(ctx context.Context, dept Department) (Department, error) {
	dept, err := r.Repository.CreateDepartment(ctx, dept)
	return created(ctx, r, dept, err)
}

func (r *auditedRepository) UpdateDepartment(ctx context.Context, dept Department) (Department, error) {
	return updated(ctx, r,
		func() (Department, error) { return r.Repository.GetDepartment(ctx, dept.ID, access.All()) },
		func() (Department, error) { return r.Repository.UpdateDepartment(ctx, dept) },
	)
}

func (r *auditedRepository) DeleteDepartment(ctx context.Context, id string) error {
	return deleted(ctx, r,
		func() (Department, error) { return r.Repository.GetDepartment(ctx, id, access.All()) },
		Department{ID: id},
		func() error { return r.Repository.DeleteDepartment(ctx, id) },
	)
}

// Teachers

func (r *auditedRepository) CreateTeacher(ctx context.Context, t Teacher) (Teacher, error) {
	t, err := r.Repository.CreateTeacher(ctx, t)
	return created(ctx, r, t, err)
}

func (r *auditedRepository) UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error) {
	return updated(ctx, r,
		func() (Teacher, error) { return r.Repository.GetTeacher(ctx, t.ID, access.All()) },
		func() (Teacher, error) { return r.Repository.UpdateTeacher(ctx, t) },
	)
}

func (r *auditedRepository) DeleteTeacher(ctx context.Context, id string) error {
	return deleted(ctx, r,
		func() (Teacher, error) { return r.Repository.GetTeacher(ctx, id, access.All()) },
		Teacher{ID: id},
		func() error { return r.Repository.DeleteTeacher(ctx, id) },
	)
}

// Students

func (r *auditedRepository) CreateStudent(ctx context.Context, s Student) (Student, error) {
	s, err := r.Repository.CreateStudent(ctx, s)
	return created(ctx, r, s, err)
}

func (r *auditedRepository) UpdateStudent(ctx context.Context, s Student) (Student, error) {
	return updated(ctx, r,
		func() (Student, error) { return r.Repository.GetStudent(ctx, s.ID, access.All()) },
		func() (Student, error) { return r.Repository.UpdateStudent(ctx, s) },
	)
}

func (r *auditedRepository) DeleteStudent(ctx context.Context, id string) error {
	return deleted(ctx, r,
		func() (Student, error) { return r.Repository.GetStudent(ctx, id, access.All()) },
		Student{ID: id},
		func() error { return r.Repository.DeleteStudent(ctx, id) },
	)
}

// Courses

func (r *auditedRepository) CreateCourse(ctx context.Context, c Course) (Course, error) {
	c, err := r.Repository.CreateCourse(ctx, c)
	return created(ctx, r, c, err)
}

func (r *auditedRepository) UpdateCourse(ctx context.Context, c Course) (Course, error) {
	return updated(ctx, r,
		func() (Course, error) { return r.Repository.GetCourse(ctx, c.ID, access.All()) },
		func() (Course, error) { return r.Repository.UpdateCourse(ctx, c) },
	)
}

func (r *auditedRepository) DeleteCourse(ctx context.Context, id string) error {
	return deleted(ctx, r,
		func() (Course, error) { return r.Repository.GetCourse(ctx, id, access.All()) },
		Course{ID: id},
		func() error { return r.Repository.DeleteCourse(ctx, id) },
	)
}

// Enrollments

func (r *auditedRepository) CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error) {
	e, err := r.Repository.CreateEnrollment(ctx, e)
	return created(ctx, r, e, err)
}

func (r *auditedRepository) UpdateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error) {
	return updated(ctx, r,
		func() (Enrollment, error) { return r.Repository.GetEnrollment(ctx, e.ID, access.All()) },
		func() (Enrollment, error) { return r.Repository.UpdateEnrollment(ctx, e) },
	)
}

func (r *auditedRepository) DeleteEnrollment(ctx context.Context, id string) error {
	return deleted(ctx, r,
		func() (Enrollment, error) { return r.Repository.GetEnrollment(ctx, id, access.All()) },
		Enrollment{ID: id},
		func() error { return r.Repository.DeleteEnrollment(ctx, id) },
	)
}

// Schedules

func (r *auditedRepository) CreateSchedule(ctx context.Context, s Schedule) (Schedule, error) {
	s, err := r.Repository.CreateSchedule(ctx, s)
	return created(ctx, r, s, err)
}

func (r *auditedRepository) UpdateSchedule(ctx context.Context, s Schedule) (Schedule, error) {
	return updated(ctx, r,
		func() (Schedule, error) { return r.Repository.GetSchedule(ctx, s.ID, access.All()) },
		func() (Schedule, error) { return r.Repository.UpdateSchedule(ctx, s) },
	)
}

func (r *auditedRepository) DeleteSchedule(ctx context.Context, id string) error {
	return deleted(ctx, r,
		func() (Schedule, error) { return r.Repository.GetSchedule(ctx, id, access.All()) },
		Schedule{ID: id},
		func() error { return r.Repository.DeleteSchedule(ctx, id) },
	)
}

// Exams

func (r *auditedRepository) CreateExam(ctx context.Context, e Exam) (Exam, error) {
	e, err := r.Repository.CreateExam(ctx, e)
	return created(ctx, r, e, err)
}

func (r *auditedRepository) UpdateExam(ctx context.Context, e Exam) (Exam, error) {
	return updated(ctx, r,
		func() (Exam, error) { return r.Repository.GetExam(ctx, e.ID, access.All()) },
		func() (Exam, error) { return r.Repository.UpdateExam(ctx, e) },
	)
}

func (r *auditedRepository) DeleteExam(ctx context.Context, id string) error {
	return deleted(ctx, r,
		func() (Exam, error) { return r.Repository.GetExam(ctx, id, access.All()) },
		Exam{ID: id},
		func() error { return r.Repository.DeleteExam(ctx, id) },
	)
}

// Exam results

func (r *auditedRepository) CreateExamResult(ctx context.Context, res ExamResult) (ExamResult, error) {
	res, err := r.Repository.CreateExamResult(ctx, res)
	return created(ctx, r, res, err)
}

func (r *auditedRepository) UpdateExamResult(ctx context.Context, res ExamResult) (ExamResult, error) {
	return updated(ctx, r,
		func() (ExamResult, error) { return r.Repository.GetExamResult(ctx, res.ID, access.All()) },
		func() (ExamResult, error) { return r.Repository.UpdateExamResult(ctx, res) },
	)
}

func (r *auditedRepository) DeleteExamResult(ctx context.Context, id string) error {
	return deleted(ctx, r,
		func() (ExamResult, error) { return r.Repository.GetExamResult(ctx, id, access.All()) },
		ExamResult{ID: id},
		func() error { return r.Repository.DeleteExamResult(ctx, id) },
	)
}

// Payments

func (r *auditedRepository) CreatePayment(ctx context.Context, p Payment) (Payment, error) {
	p, err := r.Repository.CreatePayment(ctx, p)
	return created(ctx, r, p, err)
}

func (r *auditedRepository) UpdatePayment(ctx context.Context, p Payment) (Payment, error) {
	return updated(ctx, r,
		func() (Payment, error) { return r.Repository.GetPayment(ctx, p.ID, access.All()) },
		func() (Payment, error) { return r.Repository.UpdatePayment(ctx, p) },
	)
}

func (r *auditedRepository) DeletePayment(ctx context.Context, id string) error {
	return deleted(ctx, r,
		func() (Payment, error) { return r.Repository.GetPayment(ctx, id, access.All()) },
		Payment{ID: id},
		func() error { return r.Repository.DeletePayment(ctx, id) },
	)
}
