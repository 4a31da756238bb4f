// Package report computes the aggregate reports over the academic data.
package report

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
)

// TopStudentsLimit caps the GPA ranking.
const TopStudentsLimit = 5

var hundred = decimal.NewFromInt(100)

type (
	AboveAverageStudent struct {
		ID             string          `json:"id" db:"id"`
		FullName       string          `json:"full_name" db:"full_name"`
		Email          string          `json:"email" db:"email"`
		GPA            decimal.Decimal `json:"gpa" db:"gpa"`
		CourseAvgGrade decimal.Decimal `json:"course_avg_grade" db:"course_avg_grade"`
	}

	ScheduleEntry struct {
		ID          string           `json:"id" db:"id"`
		CourseName  string           `json:"course_name" db:"course_name"`
		TeacherName string           `json:"teacher_name" db:"teacher_name"`
		Room        string           `json:"room" db:"room"`
		DayOfWeek   academic.Weekday `json:"day_of_week" db:"day_of_week"`
		StartTime   string           `json:"start_time" db:"start_time"`
		EndTime     string           `json:"end_time" db:"end_time"`
	}

	CourseStats struct {
		CourseID           string          `json:"course_id" db:"course_id"`
		AverageGrade       decimal.Decimal `json:"average_grade" db:"average_grade"`
		PassedStudents     int             `json:"passed_students" db:"passed_students"`
		TotalStudents      int             `json:"total_students" db:"total_students"`
		SuccessRatePercent decimal.Decimal `json:"success_rate_percent" db:"-"`
	}

	RankedStudent struct {
		ID           string          `json:"id" db:"id"`
		FullName     string          `json:"full_name" db:"full_name"`
		Email        string          `json:"email" db:"email"`
		GPA          decimal.Decimal `json:"gpa" db:"gpa"`
		RankPosition int             `json:"rank_position" db:"rank_position"`
	}

	Debtor struct {
		ID       string          `json:"id" db:"id"`
		FullName string          `json:"full_name" db:"full_name"`
		Email    string          `json:"email" db:"email"`
		Debt     decimal.Decimal `json:"debt" db:"debt"`
	}
)

// Listings are the flat projections served from the cache.
type (
	CourseListing struct {
		ID              string      `json:"id" db:"id"`
		Name            string      `json:"name" db:"name"`
		Description     string      `json:"description" db:"description"`
		Credits         int         `json:"credits" db:"credits"`
		TeacherName     null.String `json:"teacher_full_name" db:"teacher_full_name"`
		TeacherPosition null.String `json:"teacher_position" db:"teacher_position"`
	}

	ScheduleListing struct {
		CourseName  string           `json:"course_name" db:"course_name"`
		TeacherName string           `json:"teacher_full_name" db:"teacher_full_name"`
		Room        string           `json:"room" db:"room"`
		DayOfWeek   academic.Weekday `json:"day_of_week" db:"day_of_week"`
		StartTime   string           `json:"start_time" db:"start_time"`
		EndTime     string           `json:"end_time" db:"end_time"`
	}
)

// Repository runs the aggregate queries. Results are returned unrounded.
type Repository interface {
	// StudentsAboveAverage returns the students whose GPA is strictly greater than the mean grade
	// of their own enrollments; a student without graded enrollments has a mean of 0.
	StudentsAboveAverage(ctx context.Context) ([]AboveAverageStudent, error)
	// TeacherWeekSchedule orders slots by calendar day (Monday first), then start time.
	TeacherWeekSchedule(ctx context.Context, teacherID string) ([]ScheduleEntry, error)
	// CourseGradeStats fills AverageGrade (ungraded enrollments excluded, 0 when none), PassedStudents and TotalStudents.
	CourseGradeStats(ctx context.Context, courseID string) (CourseStats, error)
	// RankStudentsByGPA ranks students by GPA descending with RANK() semantics and returns the first limit rows.
	RankStudentsByGPA(ctx context.Context, limit int) ([]RankedStudent, error)
	// Debtors returns the students owing a positive pending+overdue amount, largest debt first.
	Debtors(ctx context.Context) ([]Debtor, error)

	CourseListing(ctx context.Context) ([]CourseListing, error)
	ScheduleListing(ctx context.Context) ([]ScheduleListing, error)
}

type Engine struct {
	repo Repository
}

func NewEngine(repo Repository) *Engine {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
	).CheckAndPanic()

	return &Engine{repo: repo}
}

func (e *Engine) StudentsAboveAverage(ctx context.Context) ([]AboveAverageStudent, error) {
	rows, err := e.repo.StudentsAboveAverage(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying students above average")
	}
	for i := range rows {
		rows[i].GPA = core.Round2(rows[i].GPA)
		rows[i].CourseAvgGrade = core.Round2(rows[i].CourseAvgGrade)
	}
	return nonNil(rows), nil
}

// TeacherWeekSchedule returns an empty schedule for an unknown teacher.
func (e *Engine) TeacherWeekSchedule(ctx context.Context, teacherID string) ([]ScheduleEntry, error) {
	if _, err := uuid.Parse(teacherID); err != nil {
		return []ScheduleEntry{}, nil
	}
	rows, err := e.repo.TeacherWeekSchedule(ctx, teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "querying teacher schedule")
	}
	return nonNil(rows), nil
}

// CourseAverageGrade returns zero stats for an unknown course.
func (e *Engine) CourseAverageGrade(ctx context.Context, courseID string) (CourseStats, error) {
	if _, err := uuid.Parse(courseID); err != nil {
		return CourseStats{CourseID: courseID}, nil
	}
	stats, err := e.repo.CourseGradeStats(ctx, courseID)
	if err != nil {
		return CourseStats{}, errors.Wrap(err, "querying course grade stats")
	}
	stats.CourseID = courseID
	stats.AverageGrade = core.Round2(stats.AverageGrade)
	stats.SuccessRatePercent = SuccessRate(stats.PassedStudents, stats.TotalStudents)
	return stats, nil
}

func (e *Engine) TopStudentsByGPA(ctx context.Context) ([]RankedStudent, error) {
	rows, err := e.repo.RankStudentsByGPA(ctx, TopStudentsLimit)
	if err != nil {
		return nil, errors.Wrap(err, "ranking students")
	}
	if len(rows) > TopStudentsLimit {
		rows = rows[:TopStudentsLimit]
	}
	for i := range rows {
		rows[i].GPA = core.Round2(rows[i].GPA)
	}
	return nonNil(rows), nil
}

func (e *Engine) Debtors(ctx context.Context) ([]Debtor, error) {
	rows, err := e.repo.Debtors(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying debtors")
	}
	for i := range rows {
		rows[i].Debt = core.Round2(rows[i].Debt)
	}
	return nonNil(rows), nil
}

func (e *Engine) CourseListing(ctx context.Context) ([]CourseListing, error) {
	rows, err := e.repo.CourseListing(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing courses")
	}
	return nonNil(rows), nil
}

func (e *Engine) ScheduleListing(ctx context.Context) ([]ScheduleListing, error) {
	rows, err := e.repo.ScheduleListing(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing schedule")
	}
	return nonNil(rows), nil
}

// SuccessRate returns passed/total as a percentage rounded to 2 places, 0 when total is 0.
func SuccessRate(passed, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return core.Round2(decimal.NewFromInt(int64(passed)).Mul(hundred).Div(decimal.NewFromInt(int64(total))))
}

// Rank sorts students by GPA descending and assigns RANK() positions: ties share a rank and the
// next distinct GPA is ranked by its position. Used by stores without window functions.
func Rank(students []RankedStudent) []RankedStudent {
	sort.SliceStable(students, func(i, j int) bool {
		return students[i].GPA.GreaterThan(students[j].GPA)
	})
	for i := range students {
		if i > 0 && students[i].GPA.Equal(students[i-1].GPA) {
			students[i].RankPosition = students[i-1].RankPosition
		} else {
			students[i].RankPosition = i + 1
		}
	}
	return students
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
