// Package inmemdb implements the repositories on in-memory tables.
// It honours the same constraints, cascades and scopes as the Postgres store and is used by tests
// and by the "inmem" database engine.
package inmemdb

import (
	"sort"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/kat-co/vala"

	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/audit"
	"github.com/trezcool/chuo/core/user"
)

type (
	DB struct {
		mutex sync.RWMutex
		clock clockwork.Clock
		data  *tables
	}

	tables struct {
		departments map[string]academic.Department
		teachers    map[string]academic.Teacher
		students    map[string]academic.Student
		courses     map[string]academic.Course
		enrollments map[string]academic.Enrollment
		schedules   map[string]academic.Schedule
		exams       map[string]academic.Exam
		examResults map[string]academic.ExamResult
		payments    map[string]academic.Payment
		users       map[string]user.User
		auditLogs   []audit.Log
	}
)

func Open(clock clockwork.Clock) *DB {
	vala.BeginValidation().Validate(
		vala.IsNotNil(clock, "clock"),
	).CheckAndPanic()

	return &DB{clock: clock, data: newTables()}
}

func newTables() *tables {
	return &tables{
		departments: make(map[string]academic.Department),
		teachers:    make(map[string]academic.Teacher),
		students:    make(map[string]academic.Student),
		courses:     make(map[string]academic.Course),
		enrollments: make(map[string]academic.Enrollment),
		schedules:   make(map[string]academic.Schedule),
		exams:       make(map[string]academic.Exam),
		examResults: make(map[string]academic.ExamResult),
		payments:    make(map[string]academic.Payment),
		users:       make(map[string]user.User),
	}
}

// clone copies every table; rows are values so a shallow copy of each map is enough.
func (t *tables) clone() *tables {
	c := &tables{
		departments: copyMap(t.departments),
		teachers:    copyMap(t.teachers),
		students:    copyMap(t.students),
		courses:     copyMap(t.courses),
		enrollments: copyMap(t.enrollments),
		schedules:   copyMap(t.schedules),
		exams:       copyMap(t.exams),
		examResults: copyMap(t.examResults),
		payments:    copyMap(t.payments),
		users:       copyMap(t.users),
	}
	c.auditLogs = append(make([]audit.Log, 0, len(t.auditLogs)), t.auditLogs...)
	return c
}

// Reset drops every row.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.data = newTables()
}

func copyMap[T any](m map[string]T) map[string]T {
	c := make(map[string]T, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// rows returns the values of m accepted by keep, ordered by less when given.
func rows[T any](m map[string]T, keep func(T) bool, less func(a, b T) bool) []T {
	list := make([]T, 0, len(m))
	for _, v := range m {
		if keep == nil || keep(v) {
			list = append(list, v)
		}
	}
	if less != nil {
		sort.Slice(list, func(i, j int) bool { return less(list[i], list[j]) })
	}
	return list
}

// contains mimics ILIKE '%pattern%'.
func contains(pattern string, values ...string) bool {
	pattern = strings.ToLower(pattern)
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), pattern) {
			return true
		}
	}
	return false
}
