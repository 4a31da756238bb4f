package inmemdb

import (
	"context"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/access"
)

// Exams

func (t *tables) examRow(x academic.Exam) academic.Exam {
	x.CourseName = t.courses[x.CourseID].Name
	return x
}

func (t *tables) deleteExam(id string) {
	delete(t.exams, id)
	for rid, res := range t.examResults {
		if res.ExamID == id {
			delete(t.examResults, rid)
		}
	}
}

func (r *academicRepository) QueryExams(_ context.Context, scope access.Scope, filter academic.QueryFilter) (exams []academic.Exam, err error) {
	err = r.read(func(t *tables) error {
		exams = rows(t.exams,
			func(x academic.Exam) bool {
				if filter.CourseID != "" && x.CourseID != filter.CourseID {
					return false
				}
				if !filter.DateFrom.IsZero() && x.Date.Before(filter.DateFrom) {
					return false
				}
				if !filter.DateTo.IsZero() && !x.Date.Before(filter.DateTo) {
					return false
				}
				return visible(scope, func() bool { return t.examVisible(scope, x) })
			},
			func(a, b academic.Exam) bool {
				if !a.Date.Equal(b.Date) {
					return a.Date.Before(b.Date)
				}
				return a.ID < b.ID
			})
		for i := range exams {
			exams[i] = t.examRow(exams[i])
		}
		return nil
	})
	return exams, err
}

func (r *academicRepository) GetExam(_ context.Context, id string, scope access.Scope) (x academic.Exam, err error) {
	err = r.read(func(t *tables) error {
		x, err = getRow(t.exams, id, scope, t.examVisible)
		x = t.examRow(x)
		return err
	})
	return x, err
}

func (r *academicRepository) CreateExam(_ context.Context, x academic.Exam) (academic.Exam, error) {
	x.ID = newID()
	x.Date = x.Date.UTC()
	err := r.write(func(t *tables) error {
		if _, ok := t.courses[x.CourseID]; !ok {
			return invalidReference("course")
		}
		t.exams[x.ID] = x
		x = t.examRow(x)
		return nil
	})
	return x, err
}

func (r *academicRepository) UpdateExam(_ context.Context, x academic.Exam) (academic.Exam, error) {
	x.Date = x.Date.UTC()
	err := r.write(func(t *tables) error {
		if _, ok := t.exams[x.ID]; !ok {
			return core.ErrNotFound
		}
		if _, ok := t.courses[x.CourseID]; !ok {
			return invalidReference("course")
		}
		t.exams[x.ID] = x
		x = t.examRow(x)
		return nil
	})
	return x, err
}

func (r *academicRepository) DeleteExam(_ context.Context, id string) error {
	return r.write(func(t *tables) error {
		if _, ok := t.exams[id]; !ok {
			return core.ErrNotFound
		}
		t.deleteExam(id)
		return nil
	})
}

// Exam results

func (t *tables) examResultRow(res academic.ExamResult) academic.ExamResult {
	res.StudentName = t.students[res.StudentID].FullName
	return res
}

func (t *tables) checkExamResult(res academic.ExamResult) error {
	if _, ok := t.exams[res.ExamID]; !ok {
		return invalidReference("exam")
	}
	if _, ok := t.students[res.StudentID]; !ok {
		return invalidReference("student")
	}
	for _, other := range t.examResults {
		if other.ID != res.ID && other.ExamID == res.ExamID && other.StudentID == res.StudentID {
			return academic.NewDuplicateError("exam result", "student")
		}
	}
	return nil
}

func (r *academicRepository) QueryExamResults(_ context.Context, scope access.Scope, filter academic.QueryFilter) (results []academic.ExamResult, err error) {
	err = r.read(func(t *tables) error {
		results = rows(t.examResults,
			func(res academic.ExamResult) bool {
				if filter.ExamID != "" && res.ExamID != filter.ExamID {
					return false
				}
				if filter.StudentID != "" && res.StudentID != filter.StudentID {
					return false
				}
				return visible(scope, func() bool { return t.examResultVisible(scope, res) })
			},
			nil)
		for i := range results {
			results[i] = t.examResultRow(results[i])
		}
		return nil
	})
	sortByName(results, func(res academic.ExamResult) (string, string) { return res.StudentName, res.ID })
	return results, err
}

func (r *academicRepository) GetExamResult(_ context.Context, id string, scope access.Scope) (res academic.ExamResult, err error) {
	err = r.read(func(t *tables) error {
		res, err = getRow(t.examResults, id, scope, t.examResultVisible)
		res = t.examResultRow(res)
		return err
	})
	return res, err
}

func (r *academicRepository) CreateExamResult(_ context.Context, res academic.ExamResult) (academic.ExamResult, error) {
	res.ID = newID()
	err := r.write(func(t *tables) error {
		if err := t.checkExamResult(res); err != nil {
			return err
		}
		t.examResults[res.ID] = res
		res = t.examResultRow(res)
		return nil
	})
	return res, err
}

func (r *academicRepository) UpdateExamResult(_ context.Context, res academic.ExamResult) (academic.ExamResult, error) {
	err := r.write(func(t *tables) error {
		if _, ok := t.examResults[res.ID]; !ok {
			return core.ErrNotFound
		}
		if err := t.checkExamResult(res); err != nil {
			return err
		}
		t.examResults[res.ID] = res
		res = t.examResultRow(res)
		return nil
	})
	return res, err
}

func (r *academicRepository) DeleteExamResult(_ context.Context, id string) error {
	return r.write(func(t *tables) error {
		if _, ok := t.examResults[id]; !ok {
			return core.ErrNotFound
		}
		delete(t.examResults, id)
		return nil
	})
}

// Payments

func (t *tables) paymentRow(p academic.Payment) academic.Payment {
	p.StudentName = t.students[p.StudentID].FullName
	return p
}

func (r *academicRepository) QueryPayments(_ context.Context, scope access.Scope, filter academic.QueryFilter) (payments []academic.Payment, err error) {
	err = r.read(func(t *tables) error {
		payments = rows(t.payments,
			func(p academic.Payment) bool {
				if filter.Status != "" && p.Status != filter.Status {
					return false
				}
				if filter.StudentID != "" && p.StudentID != filter.StudentID {
					return false
				}
				return visible(scope, func() bool { return t.paymentVisible(scope, p) })
			},
			func(a, b academic.Payment) bool {
				if !a.DateCreated.Equal(b.DateCreated) {
					return a.DateCreated.After(b.DateCreated)
				}
				return a.ID < b.ID
			})
		for i := range payments {
			payments[i] = t.paymentRow(payments[i])
		}
		return nil
	})
	return payments, err
}

func (r *academicRepository) GetPayment(_ context.Context, id string, scope access.Scope) (p academic.Payment, err error) {
	err = r.read(func(t *tables) error {
		p, err = getRow(t.payments, id, scope, t.paymentVisible)
		p = t.paymentRow(p)
		return err
	})
	return p, err
}

func (r *academicRepository) CreatePayment(_ context.Context, p academic.Payment) (academic.Payment, error) {
	p.ID = newID()
	p.DateCreated = r.db.clock.Now().UTC()
	err := r.write(func(t *tables) error {
		if _, ok := t.students[p.StudentID]; !ok {
			return invalidReference("student")
		}
		t.payments[p.ID] = p
		p = t.paymentRow(p)
		return nil
	})
	return p, err
}

func (r *academicRepository) UpdatePayment(_ context.Context, p academic.Payment) (academic.Payment, error) {
	err := r.write(func(t *tables) error {
		orig, ok := t.payments[p.ID]
		if !ok {
			return core.ErrNotFound
		}
		if _, ok := t.students[p.StudentID]; !ok {
			return invalidReference("student")
		}
		p.DateCreated = orig.DateCreated
		t.payments[p.ID] = p
		p = t.paymentRow(p)
		return nil
	})
	return p, err
}

func (r *academicRepository) DeletePayment(_ context.Context, id string) error {
	return r.write(func(t *tables) error {
		if _, ok := t.payments[id]; !ok {
			return core.ErrNotFound
		}
		delete(t.payments, id)
		return nil
	})
}
