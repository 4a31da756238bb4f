package academic

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// Teacher positions
const (
	PositionAssistant          = "assistant"
	PositionLecturer           = "lecturer"
	PositionAssociateProfessor = "associate_professor"
	PositionProfessor          = "professor"
)

// Student statuses
const (
	StudentActive        = "active"
	StudentAcademicLeave = "academic_leave"
	StudentExpelled      = "expelled"
	StudentGraduated     = "graduated"
)

// Payment statuses
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentOverdue  = "overdue"
	PaymentCanceled = "canceled"
)

// PassingGrade is the minimum enrollment grade for a course to be passed.
const PassingGrade = 60

var positionLabels = map[string]string{
	PositionAssistant:          "Assistant",
	PositionLecturer:           "Lecturer",
	PositionAssociateProfessor: "Associate Professor",
	PositionProfessor:          "Professor",
}

type Department struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

func (d Department) String() string     { return d.Name }
func (d Department) AuditModel() string { return "department" }
func (d Department) AuditID() string    { return d.ID }

func (d Department) AuditFields() map[string]interface{} {
	return map[string]interface{}{"name": d.Name}
}

type Teacher struct {
	ID             string      `json:"id" db:"id"`
	FullName       string      `json:"full_name" db:"full_name"`
	Email          null.String `json:"email" db:"email"`
	DepartmentID   null.String `json:"department" db:"department_id"`
	DepartmentName null.String `json:"department_name" db:"department_name"` // read-only
	Position       string      `json:"position" db:"position"`
}

func (t Teacher) String() string {
	label, ok := positionLabels[t.Position]
	if !ok {
		label = t.Position
	}
	return fmt.Sprintf("%s (%s)", t.FullName, label)
}

func (t Teacher) AuditModel() string { return "teacher" }
func (t Teacher) AuditID() string    { return t.ID }

func (t Teacher) AuditFields() map[string]interface{} {
	return map[string]interface{}{
		"full_name":  t.FullName,
		"email":      nullString(t.Email),
		"department": nullString(t.DepartmentID),
		"position":   t.Position,
	}
}

type Student struct {
	ID       string          `json:"id" db:"id"`
	FullName string          `json:"full_name" db:"full_name"`
	Email    string          `json:"email" db:"email"`
	Status   string          `json:"status" db:"status"`
	GPA      decimal.Decimal `json:"gpa" db:"gpa"`
}

func (s Student) String() string     { return fmt.Sprintf("%s (GPA: %s)", s.FullName, s.GPA.StringFixed(2)) }
func (s Student) AuditModel() string { return "student" }
func (s Student) AuditID() string    { return s.ID }

func (s Student) AuditFields() map[string]interface{} {
	return map[string]interface{}{
		"full_name": s.FullName,
		"email":     s.Email,
		"status":    s.Status,
		"gpa":       s.GPA.StringFixed(2),
	}
}

type Course struct {
	ID          string      `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	Description string      `json:"description" db:"description"`
	Credits     int         `json:"credits" db:"credits"`
	TeacherID   null.String `json:"teacher" db:"teacher_id"`
	TeacherName null.String `json:"teacher_name" db:"teacher_name"` // read-only
}

func (c Course) String() string     { return c.Name }
func (c Course) AuditModel() string { return "course" }
func (c Course) AuditID() string    { return c.ID }

func (c Course) AuditFields() map[string]interface{} {
	return map[string]interface{}{
		"name":        c.Name,
		"description": c.Description,
		"credits":     c.Credits,
		"teacher":     nullString(c.TeacherID),
	}
}

type Enrollment struct {
	ID             string    `json:"id" db:"id"`
	StudentID      string    `json:"student" db:"student_id"`
	StudentName    string    `json:"student_name" db:"student_name"` // read-only
	CourseID       string    `json:"course" db:"course_id"`
	CourseName     string    `json:"course_name" db:"course_name"` // read-only
	EnrollmentDate time.Time `json:"enrollment_date" db:"enrollment_date"`
	Grade          null.Int  `json:"grade" db:"grade"`
	Passed         bool      `json:"passed" db:"passed"`
}

// RefreshPassed recomputes Passed from Grade. Repositories call it on every save.
func (e *Enrollment) RefreshPassed() {
	e.Passed = e.Grade.Valid && e.Grade.Int >= PassingGrade
}

func (e Enrollment) String() string {
	student, course := e.StudentName, e.CourseName
	if student == "" {
		student = e.StudentID
	}
	if course == "" {
		course = e.CourseID
	}
	return fmt.Sprintf("%s → %s", student, course)
}

func (e Enrollment) AuditModel() string { return "enrollment" }
func (e Enrollment) AuditID() string    { return e.ID }

func (e Enrollment) AuditFields() map[string]interface{} {
	var grade interface{}
	if e.Grade.Valid {
		grade = e.Grade.Int
	}
	return map[string]interface{}{
		"student":         e.StudentID,
		"course":          e.CourseID,
		"enrollment_date": e.EnrollmentDate.Format("2006-01-02"),
		"grade":           grade,
		"passed":          e.Passed,
	}
}

type Schedule struct {
	ID          string  `json:"id" db:"id"`
	CourseID    string  `json:"course" db:"course_id"`
	CourseName  string  `json:"course_name" db:"course_name"` // read-only
	TeacherID   string  `json:"teacher" db:"teacher_id"`
	TeacherName string  `json:"teacher_name" db:"teacher_name"` // read-only
	Room        string  `json:"room" db:"room"`
	DayOfWeek   Weekday `json:"day_of_week" db:"day_of_week"`
	StartTime   string  `json:"start_time" db:"start_time"` // HH:MM
	EndTime     string  `json:"end_time" db:"end_time"`     // HH:MM
}

func (s Schedule) String() string {
	course := s.CourseName
	if course == "" {
		course = s.CourseID
	}
	return fmt.Sprintf("%s – %s %s-%s", course, s.DayOfWeek.Label(), s.StartTime, s.EndTime)
}

func (s Schedule) AuditModel() string { return "schedule" }
func (s Schedule) AuditID() string    { return s.ID }

func (s Schedule) AuditFields() map[string]interface{} {
	return map[string]interface{}{
		"course":      s.CourseID,
		"teacher":     s.TeacherID,
		"room":        s.Room,
		"day_of_week": string(s.DayOfWeek),
		"start_time":  s.StartTime,
		"end_time":    s.EndTime,
	}
}

type Exam struct {
	ID         string    `json:"id" db:"id"`
	CourseID   string    `json:"course" db:"course_id"`
	CourseName string    `json:"course_name" db:"course_name"` // read-only
	Date       time.Time `json:"date" db:"date"`
}

func (e Exam) String() string {
	course := e.CourseName
	if course == "" {
		course = e.CourseID
	}
	return fmt.Sprintf("Exam of %s – %s", course, e.Date.Format("02.01.2006 15:04"))
}

func (e Exam) AuditModel() string { return "exam" }
func (e Exam) AuditID() string    { return e.ID }

func (e Exam) AuditFields() map[string]interface{} {
	return map[string]interface{}{
		"course": e.CourseID,
		"date":   e.Date.UTC().Format(time.RFC3339),
	}
}

type ExamResult struct {
	ID          string `json:"id" db:"id"`
	ExamID      string `json:"exam" db:"exam_id"`
	StudentID   string `json:"student" db:"student_id"`
	StudentName string `json:"student_name" db:"student_name"` // read-only
	Grade       int    `json:"grade" db:"grade"`
	Attended    bool   `json:"attended" db:"attended"`
}

func (r ExamResult) String() string {
	student := r.StudentName
	if student == "" {
		student = r.StudentID
	}
	return fmt.Sprintf("%s – %d", student, r.Grade)
}

func (r ExamResult) AuditModel() string { return "exam_result" }
func (r ExamResult) AuditID() string    { return r.ID }

func (r ExamResult) AuditFields() map[string]interface{} {
	return map[string]interface{}{
		"exam":     r.ExamID,
		"student":  r.StudentID,
		"grade":    r.Grade,
		"attended": r.Attended,
	}
}

type Payment struct {
	ID          string          `json:"id" db:"id"`
	StudentID   string          `json:"student" db:"student_id"`
	StudentName string          `json:"student_name" db:"student_name"` // read-only
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Status      string          `json:"status" db:"status"`
	DateCreated time.Time       `json:"date_created" db:"date_created"`
	DatePaid    null.Time       `json:"date_paid" db:"date_paid"`
}

// IsDebt reports whether the payment counts towards the student's outstanding debt.
func (p Payment) IsDebt() bool {
	return p.Status == PaymentPending || p.Status == PaymentOverdue
}

func (p Payment) String() string {
	student := p.StudentName
	if student == "" {
		student = p.StudentID
	}
	return fmt.Sprintf("%s – %s (%s)", student, p.Amount.StringFixed(2), p.Status)
}

func (p Payment) AuditModel() string { return "payment" }
func (p Payment) AuditID() string    { return p.ID }

func (p Payment) AuditFields() map[string]interface{} {
	var paid interface{}
	if p.DatePaid.Valid {
		paid = p.DatePaid.Time.UTC().Format(time.RFC3339)
	}
	return map[string]interface{}{
		"student":      p.StudentID,
		"amount":       p.Amount.StringFixed(2),
		"status":       p.Status,
		"date_created": p.DateCreated.UTC().Format(time.RFC3339),
		"date_paid":    paid,
	}
}

func nullString(s null.String) interface{} {
	if s.Valid {
		return s.String
	}
	return nil
}
