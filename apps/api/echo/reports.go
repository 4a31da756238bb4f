package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/access"
	"github.com/trezcool/chuo/core/cache"
	"github.com/trezcool/chuo/core/report"
)

type reportApi struct {
	engine   *report.Engine
	cache    *cache.UniversityCache
	academic *academic.Service
}

func registerReportAPI(g *echo.Group, engine *report.Engine, uc *cache.UniversityCache, svc *academic.Service) {
	api := reportApi{engine: engine, cache: uc, academic: svc}

	rg := g.Group("/reports")
	rg.GET("/students-above-average", api.studentsAboveAverage, adminMiddleware())
	rg.GET("/top-students", api.topStudents, adminMiddleware())
	rg.GET("/debtors", api.debtors, adminMiddleware())
	rg.GET("/teachers/:id/schedule", api.teacherSchedule)
	rg.GET("/courses/:id/average-grade", api.courseAverageGrade)

	cg := g.Group("/catalog", adminMiddleware())
	cg.GET("/courses", api.courses)
	cg.GET("/schedule", api.schedule)
}

func (api *reportApi) studentsAboveAverage(ctx echo.Context) error {
	rows, err := api.engine.StudentsAboveAverage(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *reportApi) topStudents(ctx echo.Context) error {
	rows, err := api.engine.TopStudentsByGPA(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *reportApi) debtors(ctx echo.Context) error {
	rows, err := api.cache.Debtors(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading debtors")
	}
	return ctx.JSON(http.StatusOK, rows)
}

// teacherSchedule is open to admins and to the teacher owning the schedule.
func (api *reportApi) teacherSchedule(ctx echo.Context) error {
	id := ctx.Param("id")
	p := getContextPrincipal(ctx)
	if t, ok := p.(access.Teacher); !p.IsAdmin() && (!ok || t.TeacherID == "" || t.TeacherID != id) {
		return errHttpForbidden
	}

	rows, err := api.engine.TeacherWeekSchedule(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rows)
}

// courseAverageGrade is open to admins and to teachers whose course scope includes the course.
func (api *reportApi) courseAverageGrade(ctx echo.Context) error {
	id := ctx.Param("id")
	if err := api.canSeeCourse(ctx.Request().Context(), getContextPrincipal(ctx), id); err != nil {
		return err
	}

	stats, err := api.engine.CourseAverageGrade(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *reportApi) canSeeCourse(ctx context.Context, p access.Principal, courseID string) error {
	if p.IsAdmin() {
		return nil
	}
	if _, ok := p.(access.Teacher); !ok {
		return errHttpForbidden
	}
	if _, err := api.academic.GetCourse(ctx, p, courseID); err != nil {
		if cause := errors.Cause(err); cause == core.ErrNotFound || cause == core.ErrAccessDenied {
			return errHttpForbidden
		}
		return err
	}
	return nil
}

func (api *reportApi) courses(ctx echo.Context) error {
	rows, err := api.cache.Courses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading course listing")
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *reportApi) schedule(ctx echo.Context) error {
	rows, err := api.cache.Schedule(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading schedule listing")
	}
	return ctx.JSON(http.StatusOK, rows)
}
