package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/access"
	"github.com/trezcool/chuo/core/audit"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// postgres error codes
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	checkViolation      = "23514"
)

// constraint name -> (entity, field) reported to the client
var constraintFields = map[string][2]string{
	"departments_name_key":                      {"department", "name"},
	"teachers_email_key":                        {"teacher", "email"},
	"teachers_department_id_fkey":               {"teacher", "department"},
	"students_email_key":                        {"student", "email"},
	"courses_teacher_id_fkey":                   {"course", "teacher"},
	"enrollments_student_id_course_id_key":      {"enrollment", "course"},
	"enrollments_student_id_fkey":               {"enrollment", "student"},
	"enrollments_course_id_fkey":                {"enrollment", "course"},
	"schedules_day_of_week_start_time_room_key": {"schedule", "room"},
	"schedules_course_id_fkey":                  {"schedule", "course"},
	"schedules_teacher_id_fkey":                 {"schedule", "teacher"},
	"exams_course_id_fkey":                      {"exam", "course"},
	"exam_results_exam_id_student_id_key":       {"exam result", "student"},
	"exam_results_exam_id_fkey":                 {"exam result", "exam"},
	"exam_results_student_id_fkey":              {"exam result", "student"},
	"payments_student_id_fkey":                  {"payment", "student"},
	"users_username_key":                        {"user", "username"},
	"users_teacher_id_key":                      {"user", "teacher_id"},
	"users_student_id_key":                      {"user", "student_id"},
	"users_teacher_id_fkey":                     {"user", "teacher_id"},
	"users_student_id_fkey":                     {"user", "student_id"},
}

// mapError turns constraint violations into validation errors; other errors are wrapped with msg.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return core.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		entity, field := "object", "non_field_errors"
		if ef, ok := constraintFields[pqErr.Constraint]; ok {
			entity, field = ef[0], ef[1]
		}
		switch pqErr.Code {
		case uniqueViolation:
			return academic.NewDuplicateError(entity, field)
		case foreignKeyViolation:
			return core.NewValidationError(err, core.FieldError{Field: field, Error: "invalid reference"})
		case checkViolation:
			return core.NewValidationError(err, core.FieldError{Field: field, Error: "invalid value"})
		}
	}
	return errors.Wrap(err, msg)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func newID() string {
	return uuid.New().String()
}

// dayOrder sorts weekdays in calendar order.
var dayOrder = func() string {
	days := make([]string, 0, len(academic.Weekdays))
	for _, d := range academic.Weekdays {
		days = append(days, "'"+string(d)+"'")
	}
	return fmt.Sprintf("array_position(ARRAY[%s]::varchar[], sc.day_of_week)", strings.Join(days, ","))
}()

func ilike(pattern string, columns ...string) sq.Or {
	pattern = "%" + pattern + "%"
	or := make(sq.Or, 0, len(columns))
	for _, col := range columns {
		or = append(or, sq.ILike{col: pattern})
	}
	return or
}

// predicate is the row filter of a Restricted scope for one collection.
type predicate func(scope access.Scope) sq.Sqlizer

// scoped narrows b to the rows visible in scope. Empty and Denied scopes match nothing.
func scoped(b sq.SelectBuilder, scope access.Scope, pred predicate) sq.SelectBuilder {
	switch scope.Decision {
	case access.Unrestricted:
		return b
	case access.Restricted:
		return b.Where(pred(scope))
	default:
		return b.Where("FALSE")
	}
}

var nothing = sq.Expr("FALSE")

// Restricted scope predicates, shared by the Query and Get methods.
var (
	// departments and teachers have no owned rows: their scopes are All, None or Deny
	unownedPredicate predicate = func(access.Scope) sq.Sqlizer { return nothing }

	studentPredicate predicate = func(s access.Scope) sq.Sqlizer {
		switch {
		case s.TeacherID != "":
			return sq.Expr(
				"s.id IN (SELECT e.student_id FROM enrollments e JOIN courses c ON c.id = e.course_id WHERE c.teacher_id = ?)",
				s.TeacherID)
		case s.StudentID != "":
			return sq.Eq{"s.id": s.StudentID}
		}
		return nothing
	}

	coursePredicate predicate = func(s access.Scope) sq.Sqlizer {
		switch {
		case s.TeacherID != "":
			return sq.Eq{"c.teacher_id": s.TeacherID}
		case s.StudentID != "":
			return sq.Expr("c.id IN (SELECT course_id FROM enrollments WHERE student_id = ?)", s.StudentID)
		}
		return nothing
	}

	enrollmentPredicate predicate = func(s access.Scope) sq.Sqlizer {
		switch {
		case s.TeacherID != "":
			return sq.Expr("e.course_id IN (SELECT id FROM courses WHERE teacher_id = ?)", s.TeacherID)
		case s.StudentID != "":
			return sq.Eq{"e.student_id": s.StudentID}
		}
		return nothing
	}

	schedulePredicate predicate = func(s access.Scope) sq.Sqlizer {
		switch {
		case s.TeacherID != "":
			return sq.Eq{"sc.teacher_id": s.TeacherID}
		case s.StudentID != "":
			return sq.Expr("sc.course_id IN (SELECT course_id FROM enrollments WHERE student_id = ?)", s.StudentID)
		}
		return nothing
	}

	examPredicate predicate = func(s access.Scope) sq.Sqlizer {
		switch {
		case s.TeacherID != "":
			return sq.Expr("x.course_id IN (SELECT id FROM courses WHERE teacher_id = ?)", s.TeacherID)
		case s.StudentID != "":
			return sq.Expr("x.course_id IN (SELECT course_id FROM enrollments WHERE student_id = ?)", s.StudentID)
		}
		return nothing
	}

	examResultPredicate predicate = func(s access.Scope) sq.Sqlizer {
		switch {
		case s.TeacherID != "":
			return sq.Expr(
				"r.exam_id IN (SELECT x.id FROM exams x JOIN courses c ON c.id = x.course_id WHERE c.teacher_id = ?)",
				s.TeacherID)
		case s.StudentID != "":
			return sq.Eq{"r.student_id": s.StudentID}
		}
		return nothing
	}

	paymentPredicate predicate = func(s access.Scope) sq.Sqlizer {
		if s.StudentID != "" {
			return sq.Eq{"p.student_id": s.StudentID}
		}
		return nothing
	}
)

// academicRepository implements academic.Repository on Postgres.
type academicRepository struct {
	db   core.DB // nil inside a transaction
	exec core.DBExecutor
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db core.DB) academic.Repository {
	return &academicRepository{db: db, exec: db}
}

func (r *academicRepository) InTx(ctx context.Context, fn func(repo academic.Repository) error) (err error) {
	if r.db == nil {
		// already in a transaction
		return fn(r)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&academicRepository{exec: tx}); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// CreateAuditLog runs inside a savepoint within a transaction: a failed entry must not abort the transaction.
func (r *academicRepository) CreateAuditLog(ctx context.Context, l audit.Log) error {
	if r.db != nil {
		return insertAuditLog(ctx, r.exec, l)
	}

	if _, err := r.exec.ExecContext(ctx, "SAVEPOINT audit_log"); err != nil {
		return errors.Wrap(err, "creating audit savepoint")
	}
	if err := insertAuditLog(ctx, r.exec, l); err != nil {
		if _, rbErr := r.exec.ExecContext(ctx, "ROLLBACK TO SAVEPOINT audit_log"); rbErr != nil {
			return errors.Wrap(rbErr, "rolling back audit savepoint")
		}
		return err
	}
	_, err := r.exec.ExecContext(ctx, "RELEASE SAVEPOINT audit_log")
	return errors.Wrap(err, "releasing audit savepoint")
}

func (r *academicRepository) get(ctx context.Context, dest interface{}, b sq.SelectBuilder, msg string) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	return mapError(r.exec.GetContext(ctx, dest, query, args...), msg)
}

func (r *academicRepository) selectAll(ctx context.Context, dest interface{}, b sq.SelectBuilder, msg string) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	return mapError(r.exec.SelectContext(ctx, dest, query, args...), msg)
}

// write runs an INSERT/UPDATE/DELETE. With mustAffect, no affected row is reported as core.ErrNotFound.
func (r *academicRepository) write(ctx context.Context, b sq.Sqlizer, mustAffect bool, msg string) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	res, err := r.exec.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err, msg)
	}
	if mustAffect {
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, msg)
		}
		if n == 0 {
			return core.ErrNotFound
		}
	}
	return nil
}

func (r *academicRepository) deleteByID(ctx context.Context, table, id, msg string) error {
	if !validID(id) {
		return core.ErrNotFound
	}
	return r.write(ctx, psql.Delete(table).Where(sq.Eq{"id": id}), true, msg)
}
