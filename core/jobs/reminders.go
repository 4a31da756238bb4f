package jobs

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/access"
)

const reminderBody = `Dear %s,

Tomorrow, %s, you have the exam of the course '%s'.
Do not forget to prepare!

Regards,
The University`

// ExamReminder emails the students enrolled in a course the day before its exams.
type ExamReminder struct {
	repo   academic.Repository
	mailer core.EmailService
	clock  clockwork.Clock
}

func NewExamReminder(repo academic.Repository, mailer core.EmailService, clock clockwork.Clock) *ExamReminder {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(mailer, "mailer"),
		vala.IsNotNil(clock, "clock"),
	).CheckAndPanic()

	return &ExamReminder{repo: repo, mailer: mailer, clock: clock}
}

// Send emails a reminder for every exam dated tomorrow (UTC) to each student enrolled in its course,
// and returns the number of reminders sent.
func (r *ExamReminder) Send(ctx context.Context) (int, error) {
	now := r.clock.Now().UTC()
	tomorrow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)

	exams, err := r.repo.QueryExams(ctx, access.All(), academic.QueryFilter{
		DateFrom: tomorrow,
		DateTo:   tomorrow.AddDate(0, 0, 1),
	})
	if err != nil {
		return 0, errors.Wrap(err, "querying tomorrow's exams")
	}

	var msgs []*core.EmailMessage
	for _, exam := range exams {
		students, err := r.repo.QueryStudents(ctx, access.All(), academic.QueryFilter{CourseID: exam.CourseID})
		if err != nil {
			return 0, errors.Wrapf(err, "querying students of course %s", exam.CourseID)
		}
		for _, s := range students {
			msgs = append(msgs, &core.EmailMessage{
				To:      []mail.Address{{Name: s.FullName, Address: s.Email}},
				Subject: fmt.Sprintf("Reminder: exam in %s", exam.CourseName),
				BodyStr: fmt.Sprintf(reminderBody, s.FullName, exam.Date.UTC().Format("02.01.2006 at 15:04"), exam.CourseName),
			})
		}
	}

	if len(msgs) > 0 {
		r.mailer.SendMessages(msgs...)
	}
	return len(msgs), nil
}
