// Package jobs implements the background jobs: bulk student import, exam reminders and performance reports.
package jobs

import (
	"context"
	"fmt"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/audit"
	"github.com/trezcool/chuo/core/task"
)

// Job names
const (
	ImportStudents    = "students.import"
	RemindExams       = "exams.remind"
	ReportPerformance = "reports.performance"
)

type (
	ImportArgs struct {
		Path        string `json:"path"`
		RequestedBy string `json:"requested_by"` // email notified with the outcome; optional
		UserID      string `json:"user_id"`      // audit actor; optional
	}

	RemindArgs struct{}

	PerformanceReportArgs struct {
		StudentID string `json:"student_id"`
	}
)

// Register binds every job handler to r.
func Register(r *task.Runner, imp *Importer, rem *ExamReminder, rep *PerformanceReports, logger core.Logger) {
	r.Register(ImportStudents, func(ctx context.Context, job task.Job) error {
		var args ImportArgs
		if err := job.Decode(&args); err != nil {
			return err
		}
		if args.UserID != "" {
			ctx = audit.WithActor(ctx, args.UserID)
		}
		res, err := imp.ImportAndNotify(ctx, args.Path, args.RequestedBy)
		if err != nil {
			return err
		}
		logger.Info(fmt.Sprintf("job %s: %s", job.ID, res.Summary()))
		return nil
	})

	r.Register(RemindExams, func(ctx context.Context, job task.Job) error {
		sent, err := rem.Send(ctx)
		if err != nil {
			return err
		}
		logger.Info(fmt.Sprintf("job %s: sent %d exam reminders", job.ID, sent))
		return nil
	})

	r.Register(ReportPerformance, func(ctx context.Context, job task.Job) error {
		var args PerformanceReportArgs
		if err := job.Decode(&args); err != nil {
			return err
		}
		path, err := rep.Generate(ctx, args.StudentID)
		if err != nil {
			return err
		}
		logger.Info(fmt.Sprintf("job %s: report saved to %s", job.ID, path))
		return nil
	})
}
