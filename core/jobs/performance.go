package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/access"
)

type (
	PerformanceReport struct {
		Student     string              `json:"student"`
		GPA         float64             `json:"gpa"`
		Courses     []CoursePerformance `json:"courses"`
		GeneratedAt time.Time           `json:"generated_at"`
	}

	CoursePerformance struct {
		Name   string   `json:"name"`
		Grade  null.Int `json:"grade"`
		Passed bool     `json:"passed"`
	}
)

// PerformanceReports writes per-student performance reports as JSON files under dir.
type PerformanceReports struct {
	repo  academic.Repository
	clock clockwork.Clock
	dir   string
}

func NewPerformanceReports(repo academic.Repository, clock clockwork.Clock, dir string) *PerformanceReports {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(clock, "clock"),
		vala.StringNotEmpty(dir, "dir"),
	).CheckAndPanic()

	return &PerformanceReports{repo: repo, clock: clock, dir: dir}
}

// Build collects the report of a student.
func (r *PerformanceReports) Build(ctx context.Context, studentID string) (PerformanceReport, error) {
	student, err := r.repo.GetStudent(ctx, studentID, access.All())
	if err != nil {
		return PerformanceReport{}, errors.Wrapf(err, "loading student %s", studentID)
	}
	enrollments, err := r.repo.QueryEnrollments(ctx, access.All(), academic.QueryFilter{StudentID: studentID})
	if err != nil {
		return PerformanceReport{}, errors.Wrapf(err, "loading enrollments of %s", studentID)
	}

	gpa, _ := student.GPA.Float64()
	rep := PerformanceReport{
		Student:     student.FullName,
		GPA:         gpa,
		Courses:     make([]CoursePerformance, 0, len(enrollments)),
		GeneratedAt: r.clock.Now().UTC(),
	}
	for _, e := range enrollments {
		rep.Courses = append(rep.Courses, CoursePerformance{Name: e.CourseName, Grade: e.Grade, Passed: e.Passed})
	}
	return rep, nil
}

// Generate builds the report of a student and saves it as report_<id>_<YYYYMMDD_HHMM>.json. It returns the file path.
func (r *PerformanceReports) Generate(ctx context.Context, studentID string) (string, error) {
	rep, err := r.Build(ctx, studentID)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encoding report")
	}
	if err = os.MkdirAll(r.dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating %s", r.dir)
	}
	name := fmt.Sprintf("report_%s_%s.json", studentID, rep.GeneratedAt.Format("20060102_1504"))
	path := filepath.Join(r.dir, name)
	if err = os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "writing %s", path)
	}
	return path, nil
}
