package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/access"
)

// resource holds the service operations behind the CRUD endpoints of one collection.
type resource[T any, In any] struct {
	name   string
	list   func(ctx context.Context, p access.Principal, filter academic.QueryFilter) ([]T, error)
	get    func(ctx context.Context, p access.Principal, id string) (T, error)
	create func(ctx context.Context, p access.Principal, in In) (T, error)
	update func(ctx context.Context, p access.Principal, id string, in In) (T, error)
	delete func(ctx context.Context, p access.Principal, id string) error
}

func (res resource[T, In]) register(g *echo.Group) {
	rg := g.Group("/" + res.name)
	rg.GET("", res.query)
	rg.POST("", res.createOne)
	rg.GET("/:id", res.retrieve)
	rg.PUT("/:id", res.updateOne)
	rg.DELETE("/:id", res.destroy)
}

func (res resource[T, In]) query(ctx echo.Context) error {
	filter, err := bindQueryFilter(ctx)
	if err != nil {
		return err
	}
	objs, err := res.list(ctx.Request().Context(), getContextPrincipal(ctx), filter)
	if err != nil {
		return errors.Wrapf(err, "querying %s", res.name)
	}
	if objs == nil {
		objs = []T{}
	}
	return ctx.JSON(http.StatusOK, objs)
}

func (res resource[T, In]) retrieve(ctx echo.Context) error {
	obj, err := res.get(ctx.Request().Context(), getContextPrincipal(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrapf(err, "retrieving from %s", res.name)
	}
	return ctx.JSON(http.StatusOK, obj)
}

func (res resource[T, In]) createOne(ctx echo.Context) error {
	var in In
	if err := ctx.Bind(&in); err != nil {
		return errors.Wrapf(err, "binding %s payload", res.name)
	}
	obj, err := res.create(ctx.Request().Context(), getContextPrincipal(ctx), in)
	if err != nil {
		return errors.Wrapf(err, "creating in %s", res.name)
	}
	return ctx.JSON(http.StatusCreated, obj)
}

func (res resource[T, In]) updateOne(ctx echo.Context) error {
	var in In
	if err := ctx.Bind(&in); err != nil {
		return errors.Wrapf(err, "binding %s payload", res.name)
	}
	obj, err := res.update(ctx.Request().Context(), getContextPrincipal(ctx), ctx.Param("id"), in)
	if err != nil {
		return errors.Wrapf(err, "updating in %s", res.name)
	}
	return ctx.JSON(http.StatusOK, obj)
}

func (res resource[T, In]) destroy(ctx echo.Context) error {
	if err := res.delete(ctx.Request().Context(), getContextPrincipal(ctx), ctx.Param("id")); err != nil {
		return errors.Wrapf(err, "deleting from %s", res.name)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func registerAcademicAPI(g *echo.Group, svc *academic.Service) {
	resource[academic.Department, academic.DepartmentInput]{
		name:   "departments",
		list:   svc.ListDepartments,
		get:    svc.GetDepartment,
		create: svc.CreateDepartment,
		update: svc.UpdateDepartment,
		delete: svc.DeleteDepartment,
	}.register(g)

	resource[academic.Teacher, academic.TeacherInput]{
		name:   "teachers",
		list:   svc.ListTeachers,
		get:    svc.GetTeacher,
		create: svc.CreateTeacher,
		update: svc.UpdateTeacher,
		delete: svc.DeleteTeacher,
	}.register(g)

	resource[academic.Student, academic.StudentInput]{
		name:   "students",
		list:   svc.ListStudents,
		get:    svc.GetStudent,
		create: svc.CreateStudent,
		update: svc.UpdateStudent,
		delete: svc.DeleteStudent,
	}.register(g)

	resource[academic.Course, academic.CourseInput]{
		name:   "courses",
		list:   svc.ListCourses,
		get:    svc.GetCourse,
		create: svc.CreateCourse,
		update: svc.UpdateCourse,
		delete: svc.DeleteCourse,
	}.register(g)

	resource[academic.Enrollment, academic.EnrollmentInput]{
		name:   "enrollments",
		list:   svc.ListEnrollments,
		get:    svc.GetEnrollment,
		create: svc.CreateEnrollment,
		update: svc.UpdateEnrollment,
		delete: svc.DeleteEnrollment,
	}.register(g)

	resource[academic.Schedule, academic.ScheduleInput]{
		name:   "schedules",
		list:   svc.ListSchedules,
		get:    svc.GetSchedule,
		create: svc.CreateSchedule,
		update: svc.UpdateSchedule,
		delete: svc.DeleteSchedule,
	}.register(g)

	resource[academic.Exam, academic.ExamInput]{
		name:   "exams",
		list:   svc.ListExams,
		get:    svc.GetExam,
		create: svc.CreateExam,
		update: svc.UpdateExam,
		delete: svc.DeleteExam,
	}.register(g)

	resource[academic.ExamResult, academic.ExamResultInput]{
		name:   "exam-results",
		list:   svc.ListExamResults,
		get:    svc.GetExamResult,
		create: svc.CreateExamResult,
		update: svc.UpdateExamResult,
		delete: svc.DeleteExamResult,
	}.register(g)

	resource[academic.Payment, academic.PaymentInput]{
		name:   "payments",
		list:   svc.ListPayments,
		get:    svc.GetPayment,
		create: svc.CreatePayment,
		update: svc.UpdatePayment,
		delete: svc.DeletePayment,
	}.register(g)
}
