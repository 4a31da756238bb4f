package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/report"
)

type reportRepository struct {
	exec core.DBExecutor
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(exec core.DBExecutor) report.Repository {
	return &reportRepository{exec: exec}
}

const studentsAboveAverageSQL = `
SELECT s.id, s.full_name, s.email, s.gpa, COALESCE(AVG(e.grade), 0) AS course_avg_grade
FROM students s
LEFT JOIN enrollments e ON e.student_id = s.id
GROUP BY s.id
HAVING s.gpa > COALESCE(AVG(e.grade), 0)
ORDER BY s.gpa DESC, s.full_name`

func (repo *reportRepository) StudentsAboveAverage(ctx context.Context) ([]report.AboveAverageStudent, error) {
	rows := make([]report.AboveAverageStudent, 0)
	err := repo.exec.SelectContext(ctx, &rows, studentsAboveAverageSQL)
	return rows, errors.Wrap(err, "selecting students above average")
}

func (repo *reportRepository) TeacherWeekSchedule(ctx context.Context, teacherID string) ([]report.ScheduleEntry, error) {
	query := `
SELECT sc.id, c.name AS course_name, t.full_name AS teacher_name, sc.room, sc.day_of_week,
       to_char(sc.start_time, 'HH24:MI') AS start_time, to_char(sc.end_time, 'HH24:MI') AS end_time
FROM schedules sc
JOIN courses c ON c.id = sc.course_id
JOIN teachers t ON t.id = sc.teacher_id
WHERE sc.teacher_id = $1
ORDER BY ` + dayOrder + `, sc.start_time`

	rows := make([]report.ScheduleEntry, 0)
	err := repo.exec.SelectContext(ctx, &rows, query, teacherID)
	return rows, errors.Wrap(err, "selecting teacher schedule")
}

const courseGradeStatsSQL = `
SELECT COALESCE(AVG(grade), 0) AS average_grade,
       COUNT(*) FILTER (WHERE passed) AS passed_students,
       COUNT(*) AS total_students
FROM enrollments
WHERE course_id = $1`

func (repo *reportRepository) CourseGradeStats(ctx context.Context, courseID string) (report.CourseStats, error) {
	var stats report.CourseStats
	err := repo.exec.GetContext(ctx, &stats, courseGradeStatsSQL, courseID)
	return stats, errors.Wrap(err, "selecting course grade stats")
}

const rankStudentsSQL = `
SELECT id, full_name, email, gpa, RANK() OVER (ORDER BY gpa DESC) AS rank_position
FROM students
ORDER BY gpa DESC, full_name
LIMIT $1`

func (repo *reportRepository) RankStudentsByGPA(ctx context.Context, limit int) ([]report.RankedStudent, error) {
	rows := make([]report.RankedStudent, 0)
	err := repo.exec.SelectContext(ctx, &rows, rankStudentsSQL, limit)
	return rows, errors.Wrap(err, "ranking students")
}

const debtorsSQL = `
SELECT s.id, s.full_name, s.email, SUM(p.amount) AS debt
FROM students s
JOIN payments p ON p.student_id = s.id
WHERE p.status IN ('pending', 'overdue')
GROUP BY s.id
HAVING SUM(p.amount) > 0
ORDER BY debt DESC, s.full_name`

func (repo *reportRepository) Debtors(ctx context.Context) ([]report.Debtor, error) {
	rows := make([]report.Debtor, 0)
	err := repo.exec.SelectContext(ctx, &rows, debtorsSQL)
	return rows, errors.Wrap(err, "selecting debtors")
}

const courseListingSQL = `
SELECT c.id, c.name, c.description, c.credits,
       t.full_name AS teacher_full_name, t.position AS teacher_position
FROM courses c
LEFT JOIN teachers t ON t.id = c.teacher_id
ORDER BY c.name, c.id`

func (repo *reportRepository) CourseListing(ctx context.Context) ([]report.CourseListing, error) {
	rows := make([]report.CourseListing, 0)
	err := repo.exec.SelectContext(ctx, &rows, courseListingSQL)
	return rows, errors.Wrap(err, "selecting course listing")
}

func (repo *reportRepository) ScheduleListing(ctx context.Context) ([]report.ScheduleListing, error) {
	query := `
SELECT c.name AS course_name, t.full_name AS teacher_full_name, sc.room, sc.day_of_week,
       to_char(sc.start_time, 'HH24:MI') AS start_time, to_char(sc.end_time, 'HH24:MI') AS end_time
FROM schedules sc
JOIN courses c ON c.id = sc.course_id
JOIN teachers t ON t.id = sc.teacher_id
ORDER BY ` + dayOrder + `, sc.start_time, sc.room`

	rows := make([]report.ScheduleListing, 0)
	err := repo.exec.SelectContext(ctx, &rows, query)
	return rows, errors.Wrap(err, "selecting schedule listing")
}
