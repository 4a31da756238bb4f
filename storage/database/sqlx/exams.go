package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/access"
)

// Exams

func (r *academicRepository) selectExams() sq.SelectBuilder {
	return psql.
		Select("x.id", "x.course_id", "c.name AS course_name", "x.date").
		From("exams x").
		Join("courses c ON c.id = x.course_id")
}

func (r *academicRepository) QueryExams(ctx context.Context, scope access.Scope, filter academic.QueryFilter) ([]academic.Exam, error) {
	b := scoped(r.selectExams(), scope, examPredicate)
	if filter.CourseID != "" {
		if !validID(filter.CourseID) {
			return []academic.Exam{}, nil
		}
		b = b.Where(sq.Eq{"x.course_id": filter.CourseID})
	}
	if !filter.DateFrom.IsZero() {
		b = b.Where(sq.GtOrEq{"x.date": filter.DateFrom.UTC()})
	}
	if !filter.DateTo.IsZero() {
		b = b.Where(sq.Lt{"x.date": filter.DateTo.UTC()})
	}

	exams := make([]academic.Exam, 0)
	if err := r.selectAll(ctx, &exams, b.OrderBy("x.date", "x.id"), "querying exams"); err != nil {
		return nil, err
	}
	return exams, nil
}

func (r *academicRepository) GetExam(ctx context.Context, id string, scope access.Scope) (academic.Exam, error) {
	var e academic.Exam
	if !validID(id) {
		return e, core.ErrNotFound
	}
	b := scoped(r.selectExams(), scope, examPredicate).Where(sq.Eq{"x.id": id})
	err := r.get(ctx, &e, b, "getting exam")
	return e, err
}

func (r *academicRepository) CreateExam(ctx context.Context, e academic.Exam) (academic.Exam, error) {
	e.ID = newID()
	b := psql.Insert("exams").Columns("id", "course_id", "date").Values(e.ID, e.CourseID, e.Date.UTC())
	if err := r.write(ctx, b, false, "inserting exam"); err != nil {
		return academic.Exam{}, err
	}
	return r.GetExam(ctx, e.ID, access.All())
}

func (r *academicRepository) UpdateExam(ctx context.Context, e academic.Exam) (academic.Exam, error) {
	if !validID(e.ID) {
		return academic.Exam{}, core.ErrNotFound
	}
	b := psql.Update("exams").
		Set("course_id", e.CourseID).
		Set("date", e.Date.UTC()).
		Where(sq.Eq{"id": e.ID})
	if err := r.write(ctx, b, true, "updating exam"); err != nil {
		return academic.Exam{}, err
	}
	return r.GetExam(ctx, e.ID, access.All())
}

func (r *academicRepository) DeleteExam(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "exams", id, "deleting exam")
}

// Exam results

func (r *academicRepository) selectExamResults() sq.SelectBuilder {
	return psql.
		Select("r.id", "r.exam_id", "r.student_id", "s.full_name AS student_name", "r.grade", "r.attended").
		From("exam_results r").
		Join("students s ON s.id = r.student_id")
}

func (r *academicRepository) QueryExamResults(ctx context.Context, scope access.Scope, filter academic.QueryFilter) ([]academic.ExamResult, error) {
	b := scoped(r.selectExamResults(), scope, examResultPredicate)
	if filter.ExamID != "" {
		if !validID(filter.ExamID) {
			return []academic.ExamResult{}, nil
		}
		b = b.Where(sq.Eq{"r.exam_id": filter.ExamID})
	}
	if filter.StudentID != "" {
		if !validID(filter.StudentID) {
			return []academic.ExamResult{}, nil
		}
		b = b.Where(sq.Eq{"r.student_id": filter.StudentID})
	}

	results := make([]academic.ExamResult, 0)
	if err := r.selectAll(ctx, &results, b.OrderBy("s.full_name", "r.id"), "querying exam results"); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *academicRepository) GetExamResult(ctx context.Context, id string, scope access.Scope) (academic.ExamResult, error) {
	var res academic.ExamResult
	if !validID(id) {
		return res, core.ErrNotFound
	}
	b := scoped(r.selectExamResults(), scope, examResultPredicate).Where(sq.Eq{"r.id": id})
	err := r.get(ctx, &res, b, "getting exam result")
	return res, err
}

func (r *academicRepository) CreateExamResult(ctx context.Context, res academic.ExamResult) (academic.ExamResult, error) {
	res.ID = newID()
	b := psql.Insert("exam_results").
		Columns("id", "exam_id", "student_id", "grade", "attended").
		Values(res.ID, res.ExamID, res.StudentID, res.Grade, res.Attended)
	if err := r.write(ctx, b, false, "inserting exam result"); err != nil {
		return academic.ExamResult{}, err
	}
	return r.GetExamResult(ctx, res.ID, access.All())
}

func (r *academicRepository) UpdateExamResult(ctx context.Context, res academic.ExamResult) (academic.ExamResult, error) {
	if !validID(res.ID) {
		return academic.ExamResult{}, core.ErrNotFound
	}
	b := psql.Update("exam_results").
		Set("exam_id", res.ExamID).
		Set("student_id", res.StudentID).
		Set("grade", res.Grade).
		Set("attended", res.Attended).
		Where(sq.Eq{"id": res.ID})
	if err := r.write(ctx, b, true, "updating exam result"); err != nil {
		return academic.ExamResult{}, err
	}
	return r.GetExamResult(ctx, res.ID, access.All())
}

func (r *academicRepository) DeleteExamResult(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "exam_results", id, "deleting exam result")
}
