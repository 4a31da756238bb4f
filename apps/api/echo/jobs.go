package echoapi

import (
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/jobs"
	"github.com/trezcool/chuo/core/task"
	"github.com/trezcool/chuo/core/user"
)

var importExtensions = map[string]bool{".csv": true, ".xlsx": true, ".xlsm": true}

type jobApi struct {
	queue      task.Queue
	academic   *academic.Service
	clock      clockwork.Clock
	uploadsDir string
}

func registerJobAPI(g *echo.Group, queue task.Queue, svc *academic.Service, clock clockwork.Clock, uploadsDir string) {
	api := jobApi{queue: queue, academic: svc, clock: clock, uploadsDir: uploadsDir}

	jg := g.Group("/jobs", adminMiddleware())
	jg.POST("/import-students", api.importStudents)
	jg.POST("/exam-reminders", api.remindExams)

	g.POST("/students/:id/performance-report", api.performanceReport)
}

func (api *jobApi) submit(ctx echo.Context, name string, args interface{}) error {
	job, err := task.NewJob(name, args, api.clock.Now())
	if err != nil {
		return err
	}
	if err = api.queue.Submit(ctx.Request().Context(), job); err != nil {
		return errors.Wrapf(err, "submitting %s", name)
	}
	return ctx.JSON(http.StatusAccepted, job)
}

// importStudents stores the uploaded sheet and queues its import. The outcome is mailed to the caller.
func (api *jobApi) importStudents(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "file", Error: "file is a required field"})
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !importExtensions[ext] {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file must be a .csv or .xlsx sheet"})
	}

	path, err := api.saveUpload(fh, ext)
	if err != nil {
		return err
	}

	args := jobs.ImportArgs{Path: path}
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		args.RequestedBy = usr.Email
		args.UserID = usr.ID
	}
	return api.submit(ctx, jobs.ImportStudents, args)
}

func (api *jobApi) saveUpload(fh *multipart.FileHeader, ext string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", errors.Wrap(err, "opening upload")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer src.Close()

	if err = os.MkdirAll(api.uploadsDir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating uploads dir")
	}
	path := filepath.Join(api.uploadsDir, "students_"+uuid.New().String()+ext)
	dst, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "creating upload file")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer dst.Close()

	if _, err = io.Copy(dst, src); err != nil {
		return "", errors.Wrap(err, "saving upload")
	}
	return path, nil
}

func (api *jobApi) remindExams(ctx echo.Context) error {
	return api.submit(ctx, jobs.RemindExams, jobs.RemindArgs{})
}

// performanceReport is open to any caller who can see the student.
func (api *jobApi) performanceReport(ctx echo.Context) error {
	student, err := api.academic.GetStudent(ctx.Request().Context(), getContextPrincipal(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving student")
	}
	return api.submit(ctx, jobs.ReportPerformance, jobs.PerformanceReportArgs{StudentID: student.ID})
}
