package inmemdb

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/report"
)

type reportRepository struct {
	db *DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *DB) report.Repository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) rlock() (*tables, func()) {
	repo.db.mutex.RLock()
	return repo.db.data, repo.db.mutex.RUnlock
}

// averageGrade is AVG(grade) over the graded enrollments accepted by keep, 0 when none are graded.
func (t *tables) averageGrade(keep func(academic.Enrollment) bool) decimal.Decimal {
	sum, n := decimal.Zero, int64(0)
	for _, e := range t.enrollments {
		if keep(e) && e.Grade.Valid {
			sum = sum.Add(decimal.NewFromInt(int64(e.Grade.Int)))
			n++
		}
	}
	if n == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(n))
}

func (repo *reportRepository) StudentsAboveAverage(_ context.Context) ([]report.AboveAverageStudent, error) {
	t, unlock := repo.rlock()
	defer unlock()

	list := make([]report.AboveAverageStudent, 0)
	for _, s := range t.students {
		id := s.ID
		avg := t.averageGrade(func(e academic.Enrollment) bool { return e.StudentID == id })
		if s.GPA.GreaterThan(avg) {
			list = append(list, report.AboveAverageStudent{
				ID: s.ID, FullName: s.FullName, Email: s.Email, GPA: s.GPA, CourseAvgGrade: avg,
			})
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].GPA.Equal(list[j].GPA) {
			return list[i].GPA.GreaterThan(list[j].GPA)
		}
		return list[i].FullName < list[j].FullName
	})
	return list, nil
}

func (repo *reportRepository) TeacherWeekSchedule(_ context.Context, teacherID string) ([]report.ScheduleEntry, error) {
	t, unlock := repo.rlock()
	defer unlock()

	slots := rows(t.schedules, func(sc academic.Schedule) bool { return sc.TeacherID == teacherID }, scheduleLess)
	entries := make([]report.ScheduleEntry, 0, len(slots))
	for _, sc := range slots {
		sc = t.scheduleRow(sc)
		entries = append(entries, report.ScheduleEntry{
			ID:          sc.ID,
			CourseName:  sc.CourseName,
			TeacherName: sc.TeacherName,
			Room:        sc.Room,
			DayOfWeek:   sc.DayOfWeek,
			StartTime:   sc.StartTime,
			EndTime:     sc.EndTime,
		})
	}
	return entries, nil
}

func (repo *reportRepository) CourseGradeStats(_ context.Context, courseID string) (report.CourseStats, error) {
	t, unlock := repo.rlock()
	defer unlock()

	stats := report.CourseStats{
		CourseID:     courseID,
		AverageGrade: t.averageGrade(func(e academic.Enrollment) bool { return e.CourseID == courseID }),
	}
	for _, e := range t.enrollments {
		if e.CourseID != courseID {
			continue
		}
		stats.TotalStudents++
		if e.Passed {
			stats.PassedStudents++
		}
	}
	return stats, nil
}

func (repo *reportRepository) RankStudentsByGPA(_ context.Context, limit int) ([]report.RankedStudent, error) {
	t, unlock := repo.rlock()
	defer unlock()

	students := rows(t.students, nil, func(a, b academic.Student) bool { return a.FullName < b.FullName })
	ranked := make([]report.RankedStudent, 0, len(students))
	for _, s := range students {
		ranked = append(ranked, report.RankedStudent{ID: s.ID, FullName: s.FullName, Email: s.Email, GPA: s.GPA})
	}
	ranked = report.Rank(ranked)
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (repo *reportRepository) Debtors(_ context.Context) ([]report.Debtor, error) {
	t, unlock := repo.rlock()
	defer unlock()

	debts := make(map[string]decimal.Decimal)
	for _, p := range t.payments {
		if p.IsDebt() {
			debts[p.StudentID] = debts[p.StudentID].Add(p.Amount)
		}
	}

	debtors := make([]report.Debtor, 0, len(debts))
	for id, debt := range debts {
		s, ok := t.students[id]
		if !ok || !debt.IsPositive() {
			continue
		}
		debtors = append(debtors, report.Debtor{ID: s.ID, FullName: s.FullName, Email: s.Email, Debt: debt})
	}
	sort.Slice(debtors, func(i, j int) bool {
		if !debtors[i].Debt.Equal(debtors[j].Debt) {
			return debtors[i].Debt.GreaterThan(debtors[j].Debt)
		}
		return debtors[i].FullName < debtors[j].FullName
	})
	return debtors, nil
}

func (repo *reportRepository) CourseListing(_ context.Context) ([]report.CourseListing, error) {
	t, unlock := repo.rlock()
	defer unlock()

	courses := rows(t.courses, nil, func(a, b academic.Course) bool {
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	listing := make([]report.CourseListing, 0, len(courses))
	for _, c := range courses {
		item := report.CourseListing{ID: c.ID, Name: c.Name, Description: c.Description, Credits: c.Credits}
		if c.TeacherID.Valid {
			if teacher, ok := t.teachers[c.TeacherID.String]; ok {
				item.TeacherName = null.StringFrom(teacher.FullName)
				item.TeacherPosition = null.StringFrom(teacher.Position)
			}
		}
		listing = append(listing, item)
	}
	return listing, nil
}

func (repo *reportRepository) ScheduleListing(_ context.Context) ([]report.ScheduleListing, error) {
	t, unlock := repo.rlock()
	defer unlock()

	slots := rows(t.schedules, nil, scheduleLess)
	listing := make([]report.ScheduleListing, 0, len(slots))
	for _, sc := range slots {
		sc = t.scheduleRow(sc)
		listing = append(listing, report.ScheduleListing{
			CourseName:  sc.CourseName,
			TeacherName: sc.TeacherName,
			Room:        sc.Room,
			DayOfWeek:   sc.DayOfWeek,
			StartTime:   sc.StartTime,
			EndTime:     sc.EndTime,
		})
	}
	return listing, nil
}
