package report

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// stubRepository returns canned rows.
type stubRepository struct {
	Repository // unused methods panic

	above   []AboveAverageStudent
	stats   CourseStats
	ranked  []RankedStudent
	debtors []Debtor
	err     error

	statsCalls int
}

func (r *stubRepository) StudentsAboveAverage(context.Context) ([]AboveAverageStudent, error) {
	return r.above, r.err
}

func (r *stubRepository) CourseGradeStats(context.Context, string) (CourseStats, error) {
	r.statsCalls++
	return r.stats, r.err
}

func (r *stubRepository) RankStudentsByGPA(context.Context, int) ([]RankedStudent, error) {
	return r.ranked, r.err
}

func (r *stubRepository) Debtors(context.Context) ([]Debtor, error) {
	return r.debtors, r.err
}

func (r *stubRepository) TeacherWeekSchedule(context.Context, string) ([]ScheduleEntry, error) {
	return nil, r.err
}

func TestSuccessRate(t *testing.T) {
	tests := []struct {
		passed, total int
		want          string
	}{
		{passed: 0, total: 0, want: "0"},
		{passed: 1, total: 3, want: "33.33"},
		{passed: 2, total: 3, want: "66.67"},
		{passed: 3, total: 3, want: "100"},
		{passed: 0, total: 4, want: "0"},
	}
	for _, tt := range tests {
		got := SuccessRate(tt.passed, tt.total)
		assert.True(t, dec(tt.want).Equal(got), "SuccessRate(%d, %d) = %s, want %s", tt.passed, tt.total, got, tt.want)
	}
}

func TestRank(t *testing.T) {
	students := Rank([]RankedStudent{
		{FullName: "Chausiku", GPA: dec("3.1")},
		{FullName: "Asha", GPA: dec("3.8")},
		{FullName: "Bakari", GPA: dec("3.8")},
		{FullName: "Dalila", GPA: dec("2.5")},
		{FullName: "Eshe", GPA: dec("3.1")},
	})

	got := make([]string, 0, len(students))
	ranks := make([]int, 0, len(students))
	for _, s := range students {
		got = append(got, s.FullName)
		ranks = append(ranks, s.RankPosition)
	}
	assert.Equal(t, []string{"Asha", "Bakari", "Chausiku", "Eshe", "Dalila"}, got)
	assert.Equal(t, []int{1, 1, 3, 3, 5}, ranks)
	assert.Empty(t, Rank(nil))
}

func TestEngine_rounding(t *testing.T) {
	repo := &stubRepository{
		above: []AboveAverageStudent{{FullName: "Asha", GPA: dec("3.456"), CourseAvgGrade: dec("2.3333333")}},
		stats: CourseStats{AverageGrade: dec("62.5"), PassedStudents: 1, TotalStudents: 3},
		ranked: []RankedStudent{
			{FullName: "Asha", GPA: dec("3.999"), RankPosition: 1},
			{FullName: "Bakari", GPA: dec("3.5"), RankPosition: 2},
			{FullName: "Chausiku", GPA: dec("3.4"), RankPosition: 3},
			{FullName: "Dalila", GPA: dec("3.3"), RankPosition: 4},
			{FullName: "Eshe", GPA: dec("3.2"), RankPosition: 5},
			{FullName: "Faraji", GPA: dec("3.2"), RankPosition: 5},
		},
		debtors: []Debtor{{FullName: "Asha", Debt: dec("150.005")}},
	}
	e := NewEngine(repo)
	ctx := context.Background()

	above, err := e.StudentsAboveAverage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3.46", above[0].GPA.String())
	assert.Equal(t, "2.33", above[0].CourseAvgGrade.String())

	const courseID = "1b4e28ba-2fa1-11d2-883f-0016d3cca427"
	stats, err := e.CourseAverageGrade(ctx, courseID)
	require.NoError(t, err)
	assert.Equal(t, courseID, stats.CourseID)
	assert.Equal(t, "62.5", stats.AverageGrade.String())
	assert.Equal(t, "33.33", stats.SuccessRatePercent.String())

	top, err := e.TopStudentsByGPA(ctx)
	require.NoError(t, err)
	assert.Len(t, top, TopStudentsLimit)
	assert.Equal(t, "4", top[0].GPA.String())

	debtors, err := e.Debtors(ctx)
	require.NoError(t, err)
	assert.Equal(t, "150.01", debtors[0].Debt.String())
}

func TestEngine_unknownIDs(t *testing.T) {
	repo := new(stubRepository)
	e := NewEngine(repo)
	ctx := context.Background()

	stats, err := e.CourseAverageGrade(ctx, "lol")
	require.NoError(t, err)
	assert.Equal(t, CourseStats{CourseID: "lol"}, stats)
	assert.Zero(t, repo.statsCalls)

	slots, err := e.TeacherWeekSchedule(ctx, "lol")
	require.NoError(t, err)
	assert.Equal(t, []ScheduleEntry{}, slots)

	slots, err = e.TeacherWeekSchedule(ctx, "1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	require.NoError(t, err)
	assert.Equal(t, []ScheduleEntry{}, slots, "never null")
}

func TestEngine_errors(t *testing.T) {
	e := NewEngine(&stubRepository{err: errors.New("connection refused")})

	_, err := e.Debtors(context.Background())
	assert.EqualError(t, err, "querying debtors: connection refused")
	_, err = e.TopStudentsByGPA(context.Background())
	assert.EqualError(t, err, "ranking students: connection refused")
}
