package academic

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/access"
)

// CacheInvalidator drops every memoized read derived from courses, schedules and payments.
type CacheInvalidator interface {
	InvalidateAll(ctx context.Context)
}

// Service applies access control and validation on top of the Repository.
// Every method takes the Principal performing the operation.
type Service struct {
	repo  Repository
	cache CacheInvalidator
	clock clockwork.Clock
}

func NewService(repo Repository, cache CacheInvalidator, clock clockwork.Clock) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(cache, "cache"),
		vala.IsNotNil(clock, "clock"),
	).CheckAndPanic()

	return &Service{repo: repo, cache: cache, clock: clock}
}

// Generic helpers

func list[T any](scope access.Scope, query func(access.Scope) ([]T, error)) ([]T, error) {
	switch scope.Decision {
	case access.Denied:
		return nil, core.ErrAccessDenied
	case access.Empty:
		return []T{}, nil
	}
	return query(scope)
}

func get[T any](scope access.Scope, id string, getter func(string, access.Scope) (T, error)) (T, error) {
	var zero T
	if scope.IsDenied() {
		return zero, core.ErrAccessDenied
	}
	if !scope.Visible() {
		return zero, core.ErrNotFound
	}
	if _, err := uuid.Parse(id); err != nil {
		return zero, core.ErrNotFound
	}
	return getter(id, scope)
}

func authorize(p access.Principal, w access.Write) error {
	if !p.CanWrite(w) {
		return core.ErrAccessDenied
	}
	return nil
}

// reference loads the row a payload points to; a dangling reference is a validation error on field.
func reference[T any](field, id string, getter func(string, access.Scope) (T, error)) (T, error) {
	var zero T
	if _, err := uuid.Parse(id); err != nil {
		return zero, core.NewValidationError(nil, core.FieldError{Field: field, Error: "invalid reference"})
	}
	obj, err := getter(id, access.All())
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return zero, core.NewValidationError(nil, core.FieldError{Field: field, Error: fmt.Sprintf("%s %q does not exist", field, id)})
		}
		return zero, err
	}
	return obj, nil
}

// invalidate runs after a committed write to courses, schedules or payments (or a delete cascading into them).
func (svc *Service) invalidate(ctx context.Context) {
	svc.cache.InvalidateAll(ctx)
}

// Departments

func (svc *Service) ListDepartments(ctx context.Context, p access.Principal, filter QueryFilter) ([]Department, error) {
	return list(p.Departments(), func(s access.Scope) ([]Department, error) {
		return svc.repo.QueryDepartments(ctx, s, filter)
	})
}

func (svc *Service) GetDepartment(ctx context.Context, p access.Principal, id string) (Department, error) {
	return get(p.Departments(), id, func(id string, s access.Scope) (Department, error) {
		return svc.repo.GetDepartment(ctx, id, s)
	})
}

func (svc *Service) CreateDepartment(ctx context.Context, p access.Principal, in DepartmentInput) (Department, error) {
	if err := authorize(p, access.Write{Collection: access.Departments, Action: access.Create}); err != nil {
		return Department{}, err
	}
	if err := in.Validate(); err != nil {
		return Department{}, err
	}
	return svc.repo.CreateDepartment(ctx, Department{Name: in.Name})
}

func (svc *Service) UpdateDepartment(ctx context.Context, p access.Principal, id string, in DepartmentInput) (Department, error) {
	dept, err := svc.GetDepartment(ctx, p, id)
	if err != nil {
		return Department{}, err
	}
	if err = authorize(p, access.Write{Collection: access.Departments, Action: access.Update}); err != nil {
		return Department{}, err
	}
	if err = in.Validate(); err != nil {
		return Department{}, err
	}
	dept.Name = in.Name
	return svc.repo.UpdateDepartment(ctx, dept)
}

func (svc *Service) DeleteDepartment(ctx context.Context, p access.Principal, id string) error {
	if _, err := svc.GetDepartment(ctx, p, id); err != nil {
		return err
	}
	if err := authorize(p, access.Write{Collection: access.Departments, Action: access.Delete}); err != nil {
		return err
	}
	return svc.repo.DeleteDepartment(ctx, id)
}

// Teachers

func (svc *Service) ListTeachers(ctx context.Context, p access.Principal, filter QueryFilter) ([]Teacher, error) {
	filter.Clean()
	return list(p.Teachers(), func(s access.Scope) ([]Teacher, error) {
		return svc.repo.QueryTeachers(ctx, s, filter)
	})
}

func (svc *Service) GetTeacher(ctx context.Context, p access.Principal, id string) (Teacher, error) {
	return get(p.Teachers(), id, func(id string, s access.Scope) (Teacher, error) {
		return svc.repo.GetTeacher(ctx, id, s)
	})
}

func (svc *Service) teacherFromInput(ctx context.Context, t Teacher, in TeacherInput) (Teacher, error) {
	if err := in.Validate(); err != nil {
		return Teacher{}, err
	}
	if in.DepartmentID != "" {
		if _, err := reference("department", in.DepartmentID, func(id string, s access.Scope) (Department, error) {
			return svc.repo.GetDepartment(ctx, id, s)
		}); err != nil {
			return Teacher{}, err
		}
	}
	t.FullName = in.FullName
	t.Email = null.NewString(in.Email, in.Email != "")
	t.DepartmentID = null.NewString(in.DepartmentID, in.DepartmentID != "")
	t.Position = in.Position
	return t, nil
}

func (svc *Service) CreateTeacher(ctx context.Context, p access.Principal, in TeacherInput) (Teacher, error) {
	if err := authorize(p, access.Write{Collection: access.Teachers, Action: access.Create}); err != nil {
		return Teacher{}, err
	}
	t, err := svc.teacherFromInput(ctx, Teacher{}, in)
	if err != nil {
		return Teacher{}, err
	}
	return svc.repo.CreateTeacher(ctx, t)
}

func (svc *Service) UpdateTeacher(ctx context.Context, p access.Principal, id string, in TeacherInput) (Teacher, error) {
	t, err := svc.GetTeacher(ctx, p, id)
	if err != nil {
		return Teacher{}, err
	}
	if err = authorize(p, access.Write{Collection: access.Teachers, Action: access.Update}); err != nil {
		return Teacher{}, err
	}
	if t, err = svc.teacherFromInput(ctx, t, in); err != nil {
		return Teacher{}, err
	}
	return svc.repo.UpdateTeacher(ctx, t)
}

func (svc *Service) DeleteTeacher(ctx context.Context, p access.Principal, id string) error {
	if _, err := svc.GetTeacher(ctx, p, id); err != nil {
		return err
	}
	if err := authorize(p, access.Write{Collection: access.Teachers, Action: access.Delete}); err != nil {
		return err
	}
	if err := svc.repo.DeleteTeacher(ctx, id); err != nil {
		return err
	}
	svc.invalidate(ctx) // courses lose their teacher, schedule slots are dropped
	return nil
}

// Students

func (svc *Service) ListStudents(ctx context.Context, p access.Principal, filter QueryFilter) ([]Student, error) {
	filter.Clean()
	return list(p.Students(), func(s access.Scope) ([]Student, error) {
		return svc.repo.QueryStudents(ctx, s, filter)
	})
}

func (svc *Service) GetStudent(ctx context.Context, p access.Principal, id string) (Student, error) {
	return get(p.Students(), id, func(id string, s access.Scope) (Student, error) {
		return svc.repo.GetStudent(ctx, id, s)
	})
}

func (svc *Service) CreateStudent(ctx context.Context, p access.Principal, in StudentInput) (Student, error) {
	if err := authorize(p, access.Write{Collection: access.Students, Action: access.Create}); err != nil {
		return Student{}, err
	}
	if err := in.Validate(); err != nil {
		return Student{}, err
	}
	return svc.repo.CreateStudent(ctx, Student{FullName: in.FullName, Email: in.Email, Status: in.Status, GPA: in.GPA})
}

func (svc *Service) UpdateStudent(ctx context.Context, p access.Principal, id string, in StudentInput) (Student, error) {
	s, err := svc.GetStudent(ctx, p, id)
	if err != nil {
		return Student{}, err
	}
	if err = authorize(p, access.Write{Collection: access.Students, Action: access.Update}); err != nil {
		return Student{}, err
	}
	if err = in.Validate(); err != nil {
		return Student{}, err
	}
	s.FullName, s.Email, s.Status, s.GPA = in.FullName, in.Email, in.Status, in.GPA
	return svc.repo.UpdateStudent(ctx, s)
}

func (svc *Service) DeleteStudent(ctx context.Context, p access.Principal, id string) error {
	if _, err := svc.GetStudent(ctx, p, id); err != nil {
		return err
	}
	if err := authorize(p, access.Write{Collection: access.Students, Action: access.Delete}); err != nil {
		return err
	}
	if err := svc.repo.DeleteStudent(ctx, id); err != nil {
		return err
	}
	svc.invalidate(ctx) // payments are dropped with the student
	return nil
}

// Courses

func (svc *Service) ListCourses(ctx context.Context, p access.Principal, filter QueryFilter) ([]Course, error) {
	filter.Clean()
	return list(p.Courses(), func(s access.Scope) ([]Course, error) {
		return svc.repo.QueryCourses(ctx, s, filter)
	})
}

func (svc *Service) GetCourse(ctx context.Context, p access.Principal, id string) (Course, error) {
	return get(p.Courses(), id, func(id string, s access.Scope) (Course, error) {
		return svc.repo.GetCourse(ctx, id, s)
	})
}

func (svc *Service) courseFromInput(ctx context.Context, c Course, in CourseInput) (Course, error) {
	if err := in.Validate(); err != nil {
		return Course{}, err
	}
	if in.TeacherID != "" {
		if _, err := reference("teacher", in.TeacherID, func(id string, s access.Scope) (Teacher, error) {
			return svc.repo.GetTeacher(ctx, id, s)
		}); err != nil {
			return Course{}, err
		}
	}
	c.Name = in.Name
	c.Description = in.Description
	c.Credits = in.Credits
	c.TeacherID = null.NewString(in.TeacherID, in.TeacherID != "")
	return c, nil
}

// CreateCourse lets a teacher create a course only when the course is assigned to itself.
func (svc *Service) CreateCourse(ctx context.Context, p access.Principal, in CourseInput) (Course, error) {
	w := access.Write{Collection: access.Courses, Action: access.Create, TeacherRef: core.CleanString(in.TeacherID)}
	if err := authorize(p, w); err != nil {
		return Course{}, err
	}
	c, err := svc.courseFromInput(ctx, Course{}, in)
	if err != nil {
		return Course{}, err
	}
	if c, err = svc.repo.CreateCourse(ctx, c); err != nil {
		return Course{}, err
	}
	svc.invalidate(ctx)
	return c, nil
}

func (svc *Service) UpdateCourse(ctx context.Context, p access.Principal, id string, in CourseInput) (Course, error) {
	c, err := svc.GetCourse(ctx, p, id)
	if err != nil {
		return Course{}, err
	}
	w := access.Write{Collection: access.Courses, Action: access.Update, TeacherRef: core.CleanString(in.TeacherID)}
	if err = authorize(p, w); err != nil {
		return Course{}, err
	}
	if c, err = svc.courseFromInput(ctx, c, in); err != nil {
		return Course{}, err
	}
	if c, err = svc.repo.UpdateCourse(ctx, c); err != nil {
		return Course{}, err
	}
	svc.invalidate(ctx)
	return c, nil
}

func (svc *Service) DeleteCourse(ctx context.Context, p access.Principal, id string) error {
	c, err := svc.GetCourse(ctx, p, id)
	if err != nil {
		return err
	}
	w := access.Write{Collection: access.Courses, Action: access.Delete, TeacherRef: c.TeacherID.String}
	if err = authorize(p, w); err != nil {
		return err
	}
	if err = svc.repo.DeleteCourse(ctx, id); err != nil {
		return err
	}
	svc.invalidate(ctx)
	return nil
}

// Enrollments

func (svc *Service) ListEnrollments(ctx context.Context, p access.Principal, filter QueryFilter) ([]Enrollment, error) {
	filter.Clean()
	return list(p.Enrollments(), func(s access.Scope) ([]Enrollment, error) {
		return svc.repo.QueryEnrollments(ctx, s, filter)
	})
}

func (svc *Service) GetEnrollment(ctx context.Context, p access.Principal, id string) (Enrollment, error) {
	return get(p.Enrollments(), id, func(id string, s access.Scope) (Enrollment, error) {
		return svc.repo.GetEnrollment(ctx, id, s)
	})
}

// enrollmentFromInput returns the enrollment built from in, along with the teacher of its course.
func (svc *Service) enrollmentFromInput(ctx context.Context, e Enrollment, in EnrollmentInput) (Enrollment, string, error) {
	if err := in.Validate(); err != nil {
		return Enrollment{}, "", err
	}
	if _, err := reference("student", in.StudentID, func(id string, s access.Scope) (Student, error) {
		return svc.repo.GetStudent(ctx, id, s)
	}); err != nil {
		return Enrollment{}, "", err
	}
	course, err := reference("course", in.CourseID, func(id string, s access.Scope) (Course, error) {
		return svc.repo.GetCourse(ctx, id, s)
	})
	if err != nil {
		return Enrollment{}, "", err
	}
	e.StudentID = in.StudentID
	e.CourseID = in.CourseID
	e.Grade = in.Grade
	return e, course.TeacherID.String, nil
}

func (svc *Service) CreateEnrollment(ctx context.Context, p access.Principal, in EnrollmentInput) (Enrollment, error) {
	if err := authorize(p, access.Write{Collection: access.Enrollments, Action: access.Create}); err != nil {
		return Enrollment{}, err
	}
	e, _, err := svc.enrollmentFromInput(ctx, Enrollment{}, in)
	if err != nil {
		return Enrollment{}, err
	}
	return svc.repo.CreateEnrollment(ctx, e)
}

// UpdateEnrollment lets a teacher grade enrollments of its own courses.
func (svc *Service) UpdateEnrollment(ctx context.Context, p access.Principal, id string, in EnrollmentInput) (Enrollment, error) {
	e, err := svc.GetEnrollment(ctx, p, id)
	if err != nil {
		return Enrollment{}, err
	}
	e, teacherRef, err := svc.enrollmentFromInput(ctx, e, in)
	if err != nil {
		return Enrollment{}, err
	}
	if err = authorize(p, access.Write{Collection: access.Enrollments, Action: access.Update, TeacherRef: teacherRef}); err != nil {
		return Enrollment{}, err
	}
	return svc.repo.UpdateEnrollment(ctx, e)
}

func (svc *Service) DeleteEnrollment(ctx context.Context, p access.Principal, id string) error {
	if _, err := svc.GetEnrollment(ctx, p, id); err != nil {
		return err
	}
	if err := authorize(p, access.Write{Collection: access.Enrollments, Action: access.Delete}); err != nil {
		return err
	}
	return svc.repo.DeleteEnrollment(ctx, id)
}

// Schedules

func (svc *Service) ListSchedules(ctx context.Context, p access.Principal, filter QueryFilter) ([]Schedule, error) {
	filter.Clean()
	return list(p.Schedules(), func(s access.Scope) ([]Schedule, error) {
		return svc.repo.QuerySchedules(ctx, s, filter)
	})
}

func (svc *Service) GetSchedule(ctx context.Context, p access.Principal, id string) (Schedule, error) {
	return get(p.Schedules(), id, func(id string, s access.Scope) (Schedule, error) {
		return svc.repo.GetSchedule(ctx, id, s)
	})
}

func (svc *Service) scheduleFromInput(ctx context.Context, sch Schedule, in ScheduleInput) (Schedule, error) {
	if err := in.Validate(); err != nil {
		return Schedule{}, err
	}
	if _, err := reference("course", in.CourseID, func(id string, s access.Scope) (Course, error) {
		return svc.repo.GetCourse(ctx, id, s)
	}); err != nil {
		return Schedule{}, err
	}
	if _, err := reference("teacher", in.TeacherID, func(id string, s access.Scope) (Teacher, error) {
		return svc.repo.GetTeacher(ctx, id, s)
	}); err != nil {
		return Schedule{}, err
	}
	sch.CourseID = in.CourseID
	sch.TeacherID = in.TeacherID
	sch.Room = in.Room
	sch.DayOfWeek = in.DayOfWeek
	sch.StartTime = in.StartTime
	sch.EndTime = in.EndTime
	return sch, nil
}

func (svc *Service) CreateSchedule(ctx context.Context, p access.Principal, in ScheduleInput) (Schedule, error) {
	if err := authorize(p, access.Write{Collection: access.Schedules, Action: access.Create}); err != nil {
		return Schedule{}, err
	}
	sch, err := svc.scheduleFromInput(ctx, Schedule{}, in)
	if err != nil {
		return Schedule{}, err
	}
	if sch, err = svc.repo.CreateSchedule(ctx, sch); err != nil {
		return Schedule{}, err
	}
	svc.invalidate(ctx)
	return sch, nil
}

func (svc *Service) UpdateSchedule(ctx context.Context, p access.Principal, id string, in ScheduleInput) (Schedule, error) {
	sch, err := svc.GetSchedule(ctx, p, id)
	if err != nil {
		return Schedule{}, err
	}
	if err = authorize(p, access.Write{Collection: access.Schedules, Action: access.Update}); err != nil {
		return Schedule{}, err
	}
	if sch, err = svc.scheduleFromInput(ctx, sch, in); err != nil {
		return Schedule{}, err
	}
	if sch, err = svc.repo.UpdateSchedule(ctx, sch); err != nil {
		return Schedule{}, err
	}
	svc.invalidate(ctx)
	return sch, nil
}

func (svc *Service) DeleteSchedule(ctx context.Context, p access.Principal, id string) error {
	if _, err := svc.GetSchedule(ctx, p, id); err != nil {
		return err
	}
	if err := authorize(p, access.Write{Collection: access.Schedules, Action: access.Delete}); err != nil {
		return err
	}
	if err := svc.repo.DeleteSchedule(ctx, id); err != nil {
		return err
	}
	svc.invalidate(ctx)
	return nil
}

// Exams

func (svc *Service) ListExams(ctx context.Context, p access.Principal, filter QueryFilter) ([]Exam, error) {
	filter.Clean()
	return list(p.Exams(), func(s access.Scope) ([]Exam, error) {
		return svc.repo.QueryExams(ctx, s, filter)
	})
}

func (svc *Service) GetExam(ctx context.Context, p access.Principal, id string) (Exam, error) {
	return get(p.Exams(), id, func(id string, s access.Scope) (Exam, error) {
		return svc.repo.GetExam(ctx, id, s)
	})
}

func (svc *Service) examFromInput(ctx context.Context, e Exam, in ExamInput) (Exam, error) {
	if err := in.Validate(); err != nil {
		return Exam{}, err
	}
	if _, err := reference("course", in.CourseID, func(id string, s access.Scope) (Course, error) {
		return svc.repo.GetCourse(ctx, id, s)
	}); err != nil {
		return Exam{}, err
	}
	e.CourseID = in.CourseID
	e.Date = in.Date
	return e, nil
}

func (svc *Service) CreateExam(ctx context.Context, p access.Principal, in ExamInput) (Exam, error) {
	if err := authorize(p, access.Write{Collection: access.Exams, Action: access.Create}); err != nil {
		return Exam{}, err
	}
	e, err := svc.examFromInput(ctx, Exam{}, in)
	if err != nil {
		return Exam{}, err
	}
	return svc.repo.CreateExam(ctx, e)
}

func (svc *Service) UpdateExam(ctx context.Context, p access.Principal, id string, in ExamInput) (Exam, error) {
	e, err := svc.GetExam(ctx, p, id)
	if err != nil {
		return Exam{}, err
	}
	if err = authorize(p, access.Write{Collection: access.Exams, Action: access.Update}); err != nil {
		return Exam{}, err
	}
	if e, err = svc.examFromInput(ctx, e, in); err != nil {
		return Exam{}, err
	}
	return svc.repo.UpdateExam(ctx, e)
}

func (svc *Service) DeleteExam(ctx context.Context, p access.Principal, id string) error {
	if _, err := svc.GetExam(ctx, p, id); err != nil {
		return err
	}
	if err := authorize(p, access.Write{Collection: access.Exams, Action: access.Delete}); err != nil {
		return err
	}
	return svc.repo.DeleteExam(ctx, id)
}

// Exam results

func (svc *Service) ListExamResults(ctx context.Context, p access.Principal, filter QueryFilter) ([]ExamResult, error) {
	filter.Clean()
	return list(p.ExamResults(), func(s access.Scope) ([]ExamResult, error) {
		return svc.repo.QueryExamResults(ctx, s, filter)
	})
}

func (svc *Service) GetExamResult(ctx context.Context, p access.Principal, id string) (ExamResult, error) {
	return get(p.ExamResults(), id, func(id string, s access.Scope) (ExamResult, error) {
		return svc.repo.GetExamResult(ctx, id, s)
	})
}

func (svc *Service) examResultFromInput(ctx context.Context, r ExamResult, in ExamResultInput) (ExamResult, error) {
	if err := in.Validate(); err != nil {
		return ExamResult{}, err
	}
	if _, err := reference("exam", in.ExamID, func(id string, s access.Scope) (Exam, error) {
		return svc.repo.GetExam(ctx, id, s)
	}); err != nil {
		return ExamResult{}, err
	}
	if _, err := reference("student", in.StudentID, func(id string, s access.Scope) (Student, error) {
		return svc.repo.GetStudent(ctx, id, s)
	}); err != nil {
		return ExamResult{}, err
	}
	r.ExamID = in.ExamID
	r.StudentID = in.StudentID
	r.Grade = in.Grade
	r.Attended = *in.Attended
	return r, nil
}

func (svc *Service) CreateExamResult(ctx context.Context, p access.Principal, in ExamResultInput) (ExamResult, error) {
	if err := authorize(p, access.Write{Collection: access.ExamResults, Action: access.Create}); err != nil {
		return ExamResult{}, err
	}
	r, err := svc.examResultFromInput(ctx, ExamResult{}, in)
	if err != nil {
		return ExamResult{}, err
	}
	return svc.repo.CreateExamResult(ctx, r)
}

func (svc *Service) UpdateExamResult(ctx context.Context, p access.Principal, id string, in ExamResultInput) (ExamResult, error) {
	r, err := svc.GetExamResult(ctx, p, id)
	if err != nil {
		return ExamResult{}, err
	}
	if err = authorize(p, access.Write{Collection: access.ExamResults, Action: access.Update}); err != nil {
		return ExamResult{}, err
	}
	if r, err = svc.examResultFromInput(ctx, r, in); err != nil {
		return ExamResult{}, err
	}
	return svc.repo.UpdateExamResult(ctx, r)
}

func (svc *Service) DeleteExamResult(ctx context.Context, p access.Principal, id string) error {
	if _, err := svc.GetExamResult(ctx, p, id); err != nil {
		return err
	}
	if err := authorize(p, access.Write{Collection: access.ExamResults, Action: access.Delete}); err != nil {
		return err
	}
	return svc.repo.DeleteExamResult(ctx, id)
}

// Payments

func (svc *Service) ListPayments(ctx context.Context, p access.Principal, filter QueryFilter) ([]Payment, error) {
	filter.Clean()
	return list(p.Payments(), func(s access.Scope) ([]Payment, error) {
		return svc.repo.QueryPayments(ctx, s, filter)
	})
}

func (svc *Service) GetPayment(ctx context.Context, p access.Principal, id string) (Payment, error) {
	return get(p.Payments(), id, func(id string, s access.Scope) (Payment, error) {
		return svc.repo.GetPayment(ctx, id, s)
	})
}

// paymentFromInput stamps DatePaid when the payment becomes paid, and clears it when it stops being paid.
func (svc *Service) paymentFromInput(ctx context.Context, pmt Payment, in PaymentInput) (Payment, error) {
	if err := in.Validate(); err != nil {
		return Payment{}, err
	}
	if _, err := reference("student", in.StudentID, func(id string, s access.Scope) (Student, error) {
		return svc.repo.GetStudent(ctx, id, s)
	}); err != nil {
		return Payment{}, err
	}
	pmt.StudentID = in.StudentID
	pmt.Amount = in.Amount
	pmt.Status = in.Status
	switch {
	case pmt.Status == PaymentPaid && !pmt.DatePaid.Valid:
		pmt.DatePaid = null.TimeFrom(svc.clock.Now().UTC())
	case pmt.Status != PaymentPaid:
		pmt.DatePaid = null.Time{}
	}
	return pmt, nil
}

func (svc *Service) CreatePayment(ctx context.Context, p access.Principal, in PaymentInput) (Payment, error) {
	if err := authorize(p, access.Write{Collection: access.Payments, Action: access.Create}); err != nil {
		return Payment{}, err
	}
	pmt, err := svc.paymentFromInput(ctx, Payment{}, in)
	if err != nil {
		return Payment{}, err
	}
	if pmt, err = svc.repo.CreatePayment(ctx, pmt); err != nil {
		return Payment{}, err
	}
	svc.invalidate(ctx)
	return pmt, nil
}

func (svc *Service) UpdatePayment(ctx context.Context, p access.Principal, id string, in PaymentInput) (Payment, error) {
	pmt, err := svc.GetPayment(ctx, p, id)
	if err != nil {
		return Payment{}, err
	}
	if err = authorize(p, access.Write{Collection: access.Payments, Action: access.Update}); err != nil {
		return Payment{}, err
	}
	if pmt, err = svc.paymentFromInput(ctx, pmt, in); err != nil {
		return Payment{}, err
	}
	if pmt, err = svc.repo.UpdatePayment(ctx, pmt); err != nil {
		return Payment{}, err
	}
	svc.invalidate(ctx)
	return pmt, nil
}

func (svc *Service) DeletePayment(ctx context.Context, p access.Principal, id string) error {
	if _, err := svc.GetPayment(ctx, p, id); err != nil {
		return err
	}
	if err := authorize(p, access.Write{Collection: access.Payments, Action: access.Delete}); err != nil {
		return err
	}
	if err := svc.repo.DeletePayment(ctx, id); err != nil {
		return err
	}
	svc.invalidate(ctx)
	return nil
}
