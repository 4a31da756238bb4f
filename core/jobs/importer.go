package jobs

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
)

const (
	// MaxNotifiedErrors caps the row errors listed in the outcome email.
	MaxNotifiedErrors = 20

	// the header occupies the first line of the file
	firstDataRow = 2
)

// ErrTransactionFailure is the cause of an import aborted by the store; nothing from the run is kept.
var ErrTransactionFailure = errors.New("import transaction failed")

// RowReader reads a tabular file into rows keyed by the header names.
type RowReader interface {
	ReadRows(path string) ([]map[string]string, error)
}

// RowImportError is a row that could not be imported. It does not abort the run.
type RowImportError struct {
	Row int // 1-based line in the file, header included
	Err error
}

func (e RowImportError) Error() string {
	return fmt.Sprintf("Row %d: %v", e.Row, e.Err)
}

type ImportResult struct {
	Created int
	Updated int
	Errors  []RowImportError
}

func (r ImportResult) Summary() string {
	return fmt.Sprintf("created %d, updated %d, %d errors", r.Created, r.Updated, len(r.Errors))
}

// Importer upserts students by email from a tabular file (columns email, full_name, gpa, status).
type Importer struct {
	repo   academic.Repository
	cache  academic.CacheInvalidator
	rows   RowReader
	mailer core.EmailService
	logger core.Logger
}

func NewImporter(repo academic.Repository, cache academic.CacheInvalidator, rows RowReader, mailer core.EmailService, logger core.Logger) *Importer {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(cache, "cache"),
		vala.IsNotNil(rows, "rows"),
		vala.IsNotNil(mailer, "mailer"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Importer{repo: repo, cache: cache, rows: rows, mailer: mailer, logger: logger}
}

// Import runs every row inside one transaction. Invalid rows are collected as RowImportError and skipped;
// a store error aborts the run and rolls it back entirely (ErrTransactionFailure).
func (imp *Importer) Import(ctx context.Context, path string) (ImportResult, error) {
	rows, err := imp.rows.ReadRows(path)
	if err != nil {
		return ImportResult{}, errors.Wrapf(err, "reading %s", path)
	}

	var res ImportResult
	err = imp.repo.InTx(ctx, func(tx academic.Repository) error {
		res = ImportResult{}
		for i, row := range rows {
			student, err := parseRow(row)
			if err != nil {
				res.Errors = append(res.Errors, RowImportError{Row: i + firstDataRow, Err: err})
				continue
			}
			created, err := upsertStudent(ctx, tx, student)
			if err != nil {
				return errors.Wrapf(err, "row %d", i+firstDataRow)
			}
			if created {
				res.Created++
			} else {
				res.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, errors.Wrap(ErrTransactionFailure, err.Error())
	}

	if res.Created+res.Updated > 0 {
		imp.cache.InvalidateAll(ctx)
	}
	return res, nil
}

// ImportAndNotify imports path and emails the outcome to requestedBy (if set). Notification failures are only logged.
func (imp *Importer) ImportAndNotify(ctx context.Context, path, requestedBy string) (ImportResult, error) {
	res, err := imp.Import(ctx, path)
	if requestedBy != "" {
		imp.notify(path, requestedBy, res, err)
	}
	return res, err
}

func (imp *Importer) notify(path, requestedBy string, res ImportResult, importErr error) {
	to, err := mail.ParseAddress(requestedBy)
	if err != nil {
		imp.logger.Warn(fmt.Sprintf("import: invalid notification address %q: %v", requestedBy, err), err)
		return
	}

	var body strings.Builder
	subject := "Student import finished"
	if importErr != nil {
		subject = "Student import failed"
		fmt.Fprintf(&body, "The import of %s failed: %v\nNo student was saved.\n", path, importErr)
	} else {
		fmt.Fprintf(&body, "The import of %s finished: %d created, %d updated.\n", path, res.Created, res.Updated)
		if len(res.Errors) > 0 {
			fmt.Fprintf(&body, "\n%d rows were skipped:\n", len(res.Errors))
			for i, rowErr := range res.Errors {
				if i == MaxNotifiedErrors {
					fmt.Fprintf(&body, "... and %d more\n", len(res.Errors)-MaxNotifiedErrors)
					break
				}
				fmt.Fprintf(&body, "- %s\n", rowErr.Error())
			}
		}
	}

	imp.mailer.SendMessages(&core.EmailMessage{
		To:      []mail.Address{*to},
		Subject: subject,
		BodyStr: body.String(),
	})
}

func parseRow(row map[string]string) (academic.Student, error) {
	in := academic.StudentInput{
		FullName: row["full_name"],
		Email:    row["email"],
		Status:   row["status"],
	}
	if raw := core.CleanString(row["gpa"]); raw != "" {
		gpa, err := decimal.NewFromString(raw)
		if err != nil {
			return academic.Student{}, errors.Errorf("gpa: %q is not a number", raw)
		}
		in.GPA = gpa
	}

	if err := in.Validate(); err != nil {
		return academic.Student{}, describe(err)
	}
	return academic.Student{FullName: in.FullName, Email: in.Email, Status: in.Status, GPA: in.GPA}, nil
}

func upsertStudent(ctx context.Context, tx academic.Repository, s academic.Student) (created bool, err error) {
	existing, err := tx.GetStudentByEmail(ctx, s.Email)
	switch {
	case err == nil:
		s.ID = existing.ID
		_, err = tx.UpdateStudent(ctx, s)
		return false, err
	case errors.Cause(err) == core.ErrNotFound:
		_, err = tx.CreateStudent(ctx, s)
		return true, err
	default:
		return false, err
	}
}

// describe flattens validation errors into "field: message" pairs.
func describe(err error) error {
	if vErrs, ok := errors.Cause(err).(validator.ValidationErrors); ok {
		fldErrs := core.TranslateErrors(vErrs)
		msgs := make([]string, 0, len(fldErrs))
		for fld, msg := range fldErrs {
			msgs = append(msgs, fld+": "+msg)
		}
		sort.Strings(msgs)
		return errors.New(strings.Join(msgs, "; "))
	}
	return err
}
