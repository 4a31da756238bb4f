package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/access"
	"github.com/trezcool/chuo/core/audit"
)

type academicRepository struct {
	db *DB
	tx *tables // non-nil inside a transaction
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *DB) academic.Repository {
	return &academicRepository{db: db}
}

// InTx runs fn on a copy of the tables, swapped in when fn succeeds.
// The write lock is held for the whole transaction.
func (r *academicRepository) InTx(_ context.Context, fn func(repo academic.Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}

	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	tx := r.db.data.clone()
	if err := fn(&academicRepository{db: r.db, tx: tx}); err != nil {
		return err
	}
	r.db.data = tx
	return nil
}

func (r *academicRepository) read(fn func(t *tables) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()
	return fn(r.db.data)
}

func (r *academicRepository) write(fn func(t *tables) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()
	return fn(r.db.data)
}

func (r *academicRepository) CreateAuditLog(_ context.Context, l audit.Log) error {
	return r.write(func(t *tables) error {
		return t.insertAuditLog(l)
	})
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func newID() string {
	return uuid.New().String()
}

func invalidReference(field string) error {
	return core.NewValidationError(nil, core.FieldError{Field: field, Error: "invalid reference"})
}

// visible applies scope to one row; pred is the Restricted predicate of its collection.
func visible(scope access.Scope, pred func() bool) bool {
	switch scope.Decision {
	case access.Unrestricted:
		return true
	case access.Restricted:
		return pred()
	}
	return false
}

// getRow returns the row id of m when it is visible in scope.
func getRow[T any](m map[string]T, id string, scope access.Scope, pred func(access.Scope, T) bool) (T, error) {
	row, ok := m[id]
	if !ok || !visible(scope, func() bool { return pred(scope, row) }) {
		var zero T
		return zero, core.ErrNotFound
	}
	return row, nil
}

// Restricted scope predicates

func (t *tables) enrolled(studentID, courseID string) bool {
	for _, e := range t.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return true
		}
	}
	return false
}

func (t *tables) teaches(teacherID, courseID string) bool {
	c, ok := t.courses[courseID]
	return ok && c.TeacherID.Valid && c.TeacherID.String == teacherID
}

// unowned is the predicate of departments and teachers, which have no owned rows.
func unowned[T any](access.Scope, T) bool { return false }

func (t *tables) studentVisible(s access.Scope, st academic.Student) bool {
	switch {
	case s.TeacherID != "":
		for _, e := range t.enrollments {
			if e.StudentID == st.ID && t.teaches(s.TeacherID, e.CourseID) {
				return true
			}
		}
	case s.StudentID != "":
		return st.ID == s.StudentID
	}
	return false
}

func (t *tables) courseVisible(s access.Scope, c academic.Course) bool {
	switch {
	case s.TeacherID != "":
		return c.TeacherID.Valid && c.TeacherID.String == s.TeacherID
	case s.StudentID != "":
		return t.enrolled(s.StudentID, c.ID)
	}
	return false
}

func (t *tables) enrollmentVisible(s access.Scope, e academic.Enrollment) bool {
	switch {
	case s.TeacherID != "":
		return t.teaches(s.TeacherID, e.CourseID)
	case s.StudentID != "":
		return e.StudentID == s.StudentID
	}
	return false
}

func (t *tables) scheduleVisible(s access.Scope, sc academic.Schedule) bool {
	switch {
	case s.TeacherID != "":
		return sc.TeacherID == s.TeacherID
	case s.StudentID != "":
		return t.enrolled(s.StudentID, sc.CourseID)
	}
	return false
}

func (t *tables) examVisible(s access.Scope, x academic.Exam) bool {
	switch {
	case s.TeacherID != "":
		return t.teaches(s.TeacherID, x.CourseID)
	case s.StudentID != "":
		return t.enrolled(s.StudentID, x.CourseID)
	}
	return false
}

func (t *tables) examResultVisible(s access.Scope, res academic.ExamResult) bool {
	switch {
	case s.TeacherID != "":
		x, ok := t.exams[res.ExamID]
		return ok && t.teaches(s.TeacherID, x.CourseID)
	case s.StudentID != "":
		return res.StudentID == s.StudentID
	}
	return false
}

func (t *tables) paymentVisible(s access.Scope, p academic.Payment) bool {
	return s.StudentID != "" && p.StudentID == s.StudentID
}
