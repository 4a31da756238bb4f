package access

import (
	"github.com/trezcool/chuo/core/user"
)

type Collection string

const (
	Departments Collection = "departments"
	Teachers    Collection = "teachers"
	Students    Collection = "students"
	Courses     Collection = "courses"
	Enrollments Collection = "enrollments"
	Schedules   Collection = "schedules"
	Exams       Collection = "exams"
	ExamResults Collection = "exam_results"
	Payments    Collection = "payments"
	AuditLogs   Collection = "audit_logs"
)

type Action string

const (
	Create Action = "create"
	Update Action = "update"
	Delete Action = "delete"
)

// Write describes a mutation attempt.
// TeacherRef is the teacher owning the row as it will be after the write
// (Course.teacher for courses, the course's teacher for enrollments).
type Write struct {
	Collection Collection
	Action     Action
	TeacherRef string
}

// Principal is the authenticated (or anonymous) caller of an operation.
// The set of implementations is closed: Admin, Teacher, Student and Anonymous.
// Every collection has its own method so that a new collection must be decided for every kind of caller.
type Principal interface {
	UserID() string
	IsAdmin() bool

	Departments() Scope
	Teachers() Scope
	Students() Scope
	Courses() Scope
	Enrollments() Scope
	Schedules() Scope
	Exams() Scope
	ExamResults() Scope
	Payments() Scope
	AuditLogs() Scope

	CanWrite(w Write) bool

	principal()
}

var (
	_ Principal = Admin{}
	_ Principal = Teacher{}
	_ Principal = Student{}
	_ Principal = Anonymous{}
)

// FromUser returns the Principal acting for usr. Inactive users and unknown roles are anonymous.
func FromUser(usr user.User) Principal {
	if !usr.IsActive {
		return Anonymous{}
	}
	switch usr.Role {
	case user.RoleAdmin:
		return Admin{ID: usr.ID}
	case user.RoleTeacher:
		return Teacher{ID: usr.ID, TeacherID: usr.TeacherID.String}
	case user.RoleStudent:
		return Student{ID: usr.ID, StudentID: usr.StudentID.String}
	}
	return Anonymous{}
}

// ScopeOf returns the read scope of p on c.
func ScopeOf(p Principal, c Collection) Scope {
	switch c {
	case Departments:
		return p.Departments()
	case Teachers:
		return p.Teachers()
	case Students:
		return p.Students()
	case Courses:
		return p.Courses()
	case Enrollments:
		return p.Enrollments()
	case Schedules:
		return p.Schedules()
	case Exams:
		return p.Exams()
	case ExamResults:
		return p.ExamResults()
	case Payments:
		return p.Payments()
	case AuditLogs:
		return p.AuditLogs()
	}
	return Deny()
}

// Admin sees and writes everything.
type Admin struct {
	ID string
}

func (a Admin) UserID() string      { return a.ID }
func (Admin) IsAdmin() bool         { return true }
func (Admin) Departments() Scope    { return All() }
func (Admin) Teachers() Scope       { return All() }
func (Admin) Students() Scope       { return All() }
func (Admin) Courses() Scope        { return All() }
func (Admin) Enrollments() Scope    { return All() }
func (Admin) Schedules() Scope      { return All() }
func (Admin) Exams() Scope          { return All() }
func (Admin) ExamResults() Scope    { return All() }
func (Admin) Payments() Scope       { return All() }
func (Admin) AuditLogs() Scope      { return All() }
func (Admin) CanWrite(_ Write) bool { return true }
func (Admin) principal()            {}

// Teacher sees its own courses, their enrollments & students, and its own schedule slots.
// TeacherID is empty when the user has no linked teacher profile.
type Teacher struct {
	ID        string
	TeacherID string
}

func (t Teacher) UserID() string     { return t.ID }
func (Teacher) IsAdmin() bool        { return false }
func (Teacher) Departments() Scope   { return None() }
func (Teacher) Teachers() Scope      { return None() }
func (t Teacher) Students() Scope    { return OwnedByTeacher(t.TeacherID) }
func (t Teacher) Courses() Scope     { return OwnedByTeacher(t.TeacherID) }
func (t Teacher) Enrollments() Scope { return OwnedByTeacher(t.TeacherID) }
func (t Teacher) Schedules() Scope   { return OwnedByTeacher(t.TeacherID) }
func (Teacher) Exams() Scope         { return None() }
func (Teacher) ExamResults() Scope   { return None() }
func (Teacher) Payments() Scope      { return None() }
func (Teacher) AuditLogs() Scope     { return None() }
func (Teacher) principal()           {}

// CanWrite allows a teacher to manage its own courses and grade enrollments in them.
func (t Teacher) CanWrite(w Write) bool {
	if t.TeacherID == "" || w.TeacherRef != t.TeacherID {
		return false
	}
	switch w.Collection {
	case Courses:
		return true
	case Enrollments:
		return w.Action == Update
	}
	return false
}

// Student sees its own record, enrollments, results and payments, plus the courses, exams
// and schedule slots of the courses it is enrolled in. Students never write.
// StudentID is empty when the user has no linked student profile.
type Student struct {
	ID        string
	StudentID string
}

func (s Student) UserID() string      { return s.ID }
func (Student) IsAdmin() bool         { return false }
func (Student) Departments() Scope    { return None() }
func (Student) Teachers() Scope       { return None() }
func (s Student) Students() Scope     { return OwnedByStudent(s.StudentID) }
func (s Student) Courses() Scope      { return OwnedByStudent(s.StudentID) }
func (s Student) Enrollments() Scope  { return OwnedByStudent(s.StudentID) }
func (s Student) Schedules() Scope    { return OwnedByStudent(s.StudentID) }
func (s Student) Exams() Scope        { return OwnedByStudent(s.StudentID) }
func (s Student) ExamResults() Scope  { return OwnedByStudent(s.StudentID) }
func (s Student) Payments() Scope     { return OwnedByStudent(s.StudentID) }
func (Student) AuditLogs() Scope      { return None() }
func (Student) CanWrite(_ Write) bool { return false }
func (Student) principal()            {}

// Anonymous is an unauthenticated (or deactivated) caller.
type Anonymous struct{}

func (Anonymous) UserID() string        { return "" }
func (Anonymous) IsAdmin() bool         { return false }
func (Anonymous) Departments() Scope    { return Deny() }
func (Anonymous) Teachers() Scope       { return Deny() }
func (Anonymous) Students() Scope       { return Deny() }
func (Anonymous) Courses() Scope        { return Deny() }
func (Anonymous) Enrollments() Scope    { return Deny() }
func (Anonymous) Schedules() Scope      { return Deny() }
func (Anonymous) Exams() Scope          { return Deny() }
func (Anonymous) ExamResults() Scope    { return Deny() }
func (Anonymous) Payments() Scope       { return Deny() }
func (Anonymous) AuditLogs() Scope      { return Deny() }
func (Anonymous) CanWrite(_ Write) bool { return false }
func (Anonymous) principal()            {}
