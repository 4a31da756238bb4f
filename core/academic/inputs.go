package academic

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core"
)

var (
	maxGPA    = decimal.NewFromInt(4)
	maxAmount = decimal.NewFromInt(100000000) // numeric(10, 2)
)

type DepartmentInput struct {
	Name string `json:"name" validate:"required,notblank,max=200"`
}

func (in *DepartmentInput) Validate() error {
	in.Name = core.CleanString(in.Name)
	return core.Validate.Struct(in)
}

type TeacherInput struct {
	FullName     string `json:"full_name" validate:"required,notblank,max=300"`
	Email        string `json:"email" validate:"omitempty,email,max=254"`
	DepartmentID string `json:"department" validate:"omitempty,uuid"`
	Position     string `json:"position" validate:"oneof=assistant lecturer associate_professor professor"`
}

func (in *TeacherInput) Validate() error {
	in.FullName = core.CleanString(in.FullName)
	in.Email = core.CleanString(in.Email, true /* lower */)
	in.DepartmentID = core.CleanString(in.DepartmentID)
	in.Position = core.CleanString(in.Position, true /* lower */)
	if in.Position == "" {
		in.Position = PositionLecturer
	}
	return core.Validate.Struct(in)
}

type StudentInput struct {
	FullName string          `json:"full_name" validate:"required,notblank,max=300"`
	Email    string          `json:"email" validate:"required,email,max=254"`
	Status   string          `json:"status" validate:"oneof=active academic_leave expelled graduated"`
	GPA      decimal.Decimal `json:"gpa" validate:"gte=0,lte=4"`
}

func (in *StudentInput) Validate() error {
	in.FullName = core.CleanString(in.FullName)
	in.Email = core.CleanString(in.Email, true /* lower */)
	in.Status = core.CleanString(in.Status, true /* lower */)
	if in.Status == "" {
		in.Status = StudentActive
	}
	in.GPA = core.Round2(in.GPA)
	return core.Validate.Struct(in)
}

// ValidGPA reports whether gpa is within [0, 4].
func ValidGPA(gpa decimal.Decimal) bool {
	return !gpa.IsNegative() && gpa.LessThanOrEqual(maxGPA)
}

type CourseInput struct {
	Name        string `json:"name" validate:"required,notblank,max=200"`
	Description string `json:"description"`
	Credits     int    `json:"credits" validate:"gte=0,lte=32767"`
	TeacherID   string `json:"teacher" validate:"omitempty,uuid"`
}

func (in *CourseInput) Validate() error {
	in.Name = core.CleanString(in.Name)
	in.Description = core.CleanString(in.Description)
	in.TeacherID = core.CleanString(in.TeacherID)
	return core.Validate.Struct(in)
}

type EnrollmentInput struct {
	StudentID string   `json:"student" validate:"required,uuid"`
	CourseID  string   `json:"course" validate:"required,uuid"`
	Grade     null.Int `json:"grade" validate:"omitempty,gte=0,lte=100"`
}

func (in *EnrollmentInput) Validate() error {
	in.StudentID = core.CleanString(in.StudentID)
	in.CourseID = core.CleanString(in.CourseID)
	return core.Validate.Struct(in)
}

type ScheduleInput struct {
	CourseID  string  `json:"course" validate:"required,uuid"`
	TeacherID string  `json:"teacher" validate:"required,uuid"`
	Room      string  `json:"room" validate:"required,notblank,max=50"`
	DayOfWeek Weekday `json:"day_of_week" validate:"required,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	StartTime string  `json:"start_time" validate:"required,hhmm"`
	EndTime   string  `json:"end_time" validate:"required,hhmm"`
}

func (in *ScheduleInput) Validate() error {
	in.CourseID = core.CleanString(in.CourseID)
	in.TeacherID = core.CleanString(in.TeacherID)
	in.Room = core.CleanString(in.Room)
	in.DayOfWeek = Weekday(core.CleanString(string(in.DayOfWeek), true /* lower */))
	in.StartTime = core.CleanString(in.StartTime)
	in.EndTime = core.CleanString(in.EndTime)
	if err := core.Validate.Struct(in); err != nil {
		return err
	}
	// HH:MM strings order chronologically
	if in.EndTime <= in.StartTime {
		return core.NewValidationError(nil, core.FieldError{Field: "end_time", Error: "end time must be after start time"})
	}
	return nil
}

type ExamInput struct {
	CourseID string    `json:"course" validate:"required,uuid"`
	Date     time.Time `json:"date"`
}

func (in *ExamInput) Validate() error {
	in.CourseID = core.CleanString(in.CourseID)
	if err := core.Validate.Struct(in); err != nil {
		return err
	}
	if in.Date.IsZero() {
		return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "this field is required"})
	}
	in.Date = in.Date.UTC()
	return nil
}

type ExamResultInput struct {
	ExamID    string `json:"exam" validate:"required,uuid"`
	StudentID string `json:"student" validate:"required,uuid"`
	Grade     int    `json:"grade" validate:"gte=0,lte=100"`
	Attended  *bool  `json:"attended"`
}

func (in *ExamResultInput) Validate() error {
	in.ExamID = core.CleanString(in.ExamID)
	in.StudentID = core.CleanString(in.StudentID)
	if in.Attended == nil {
		attended := true
		in.Attended = &attended
	}
	return core.Validate.Struct(in)
}

type PaymentInput struct {
	StudentID string          `json:"student" validate:"required,uuid"`
	Amount    decimal.Decimal `json:"amount" validate:"gt=0"`
	Status    string          `json:"status" validate:"oneof=pending paid overdue canceled"`
}

func (in *PaymentInput) Validate() error {
	in.StudentID = core.CleanString(in.StudentID)
	in.Status = core.CleanString(in.Status, true /* lower */)
	if in.Status == "" {
		in.Status = PaymentPending
	}
	in.Amount = core.Round2(in.Amount)
	if err := core.Validate.Struct(in); err != nil {
		return err
	}
	if in.Amount.GreaterThanOrEqual(maxAmount) {
		return core.NewValidationError(nil, core.FieldError{Field: "amount", Error: "amount is too large"})
	}
	return nil
}

// QueryFilter narrows list queries. Each collection only honours the fields relevant to it:
// Search (teachers, students, courses), Status (students, payments), CourseID (students, enrollments,
// schedules, exams), StudentID (enrollments, exam results, payments), ExamID (exam results),
// DateFrom/DateTo (exams, from inclusive, to exclusive; zero means unbounded).
type QueryFilter struct {
	Search    string    `query:"search"`
	Status    string    `query:"status"`
	CourseID  string    `query:"course"`
	StudentID string    `query:"student"`
	ExamID    string    `query:"exam"`
	DateFrom  time.Time `query:"date_from"`
	DateTo    time.Time `query:"date_to"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.CourseID = core.CleanString(qf.CourseID)
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.ExamID = core.CleanString(qf.ExamID)
}
