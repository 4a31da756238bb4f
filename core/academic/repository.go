package academic

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/access"
	"github.com/trezcool/chuo/core/audit"
)

var ErrDuplicate = errors.New("duplicate")

// NewDuplicateError reports a unique constraint violation on field.
func NewDuplicateError(entity, field string) error {
	return core.NewValidationError(
		ErrDuplicate,
		core.FieldError{Field: field, Error: fmt.Sprintf("%s with this %s already exists", entity, field)},
	)
}

// Repository persists the academic entities.
//
// Query/Get methods only return rows inside the given scope, using the same predicate for both;
// a row outside the scope is reported as core.ErrNotFound.
// Create/Update methods return the stored row with its read-only projections (names) filled.
// Unique key violations are reported with NewDuplicateError.
type Repository interface {
	audit.Writer

	// InTx runs fn inside a single transaction: fn's repository sees its own writes,
	// and everything is rolled back when fn returns an error.
	InTx(ctx context.Context, fn func(repo Repository) error) error

	QueryDepartments(ctx context.Context, scope access.Scope, filter QueryFilter) ([]Department, error)
	GetDepartment(ctx context.Context, id string, scope access.Scope) (Department, error)
	CreateDepartment(ctx context.Context, dept Department) (Department, error)
	UpdateDepartment(ctx context.Context, dept Department) (Department, error)
	// DeleteDepartment nulls the department of its teachers.
	DeleteDepartment(ctx context.Context, id string) error

	QueryTeachers(ctx context.Context, scope access.Scope, filter QueryFilter) ([]Teacher, error)
	GetTeacher(ctx context.Context, id string, scope access.Scope) (Teacher, error)
	CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
	UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error)
	// DeleteTeacher nulls the teacher of its courses and deletes its schedule slots.
	DeleteTeacher(ctx context.Context, id string) error

	QueryStudents(ctx context.Context, scope access.Scope, filter QueryFilter) ([]Student, error)
	GetStudent(ctx context.Context, id string, scope access.Scope) (Student, error)
	GetStudentByEmail(ctx context.Context, email string) (Student, error)
	CreateStudent(ctx context.Context, s Student) (Student, error)
	UpdateStudent(ctx context.Context, s Student) (Student, error)
	// DeleteStudent cascades to its enrollments, exam results and payments.
	DeleteStudent(ctx context.Context, id string) error

	QueryCourses(ctx context.Context, scope access.Scope, filter QueryFilter) ([]Course, error)
	GetCourse(ctx context.Context, id string, scope access.Scope) (Course, error)
	CreateCourse(ctx context.Context, c Course) (Course, error)
	UpdateCourse(ctx context.Context, c Course) (Course, error)
	// DeleteCourse cascades to its enrollments, schedule slots and exams.
	DeleteCourse(ctx context.Context, id string) error

	QueryEnrollments(ctx context.Context, scope access.Scope, filter QueryFilter) ([]Enrollment, error)
	GetEnrollment(ctx context.Context, id string, scope access.Scope) (Enrollment, error)
	// CreateEnrollment sets EnrollmentDate and recomputes Passed.
	CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
	// UpdateEnrollment keeps EnrollmentDate and recomputes Passed.
	UpdateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
	DeleteEnrollment(ctx context.Context, id string) error

	// QuerySchedules orders slots by calendar day (Monday first), then start time.
	QuerySchedules(ctx context.Context, scope access.Scope, filter QueryFilter) ([]Schedule, error)
	GetSchedule(ctx context.Context, id string, scope access.Scope) (Schedule, error)
	CreateSchedule(ctx context.Context, s Schedule) (Schedule, error)
	UpdateSchedule(ctx context.Context, s Schedule) (Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error

	QueryExams(ctx context.Context, scope access.Scope, filter QueryFilter) ([]Exam, error)
	GetExam(ctx context.Context, id string, scope access.Scope) (Exam, error)
	CreateExam(ctx context.Context, e Exam) (Exam, error)
	UpdateExam(ctx context.Context, e Exam) (Exam, error)
	// DeleteExam cascades to its results.
	DeleteExam(ctx context.Context, id string) error

	QueryExamResults(ctx context.Context, scope access.Scope, filter QueryFilter) ([]ExamResult, error)
	GetExamResult(ctx context.Context, id string, scope access.Scope) (ExamResult, error)
	CreateExamResult(ctx context.Context, r ExamResult) (ExamResult, error)
	UpdateExamResult(ctx context.Context, r ExamResult) (ExamResult, error)
	DeleteExamResult(ctx context.Context, id string) error

	QueryPayments(ctx context.Context, scope access.Scope, filter QueryFilter) ([]Payment, error)
	GetPayment(ctx context.Context, id string, scope access.Scope) (Payment, error)
	// CreatePayment sets DateCreated.
	CreatePayment(ctx context.Context, p Payment) (Payment, error)
	UpdatePayment(ctx context.Context, p Payment) (Payment, error)
	DeletePayment(ctx context.Context, id string) error
}
