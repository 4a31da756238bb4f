package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/access"
)

func (r *academicRepository) selectPayments() sq.SelectBuilder {
	return psql.
		Select(
			"p.id", "p.student_id", "s.full_name AS student_name", "p.amount", "p.status",
			"p.date_created", "p.date_paid",
		).
		From("payments p").
		Join("students s ON s.id = p.student_id")
}

func (r *academicRepository) QueryPayments(ctx context.Context, scope access.Scope, filter academic.QueryFilter) ([]academic.Payment, error) {
	b := scoped(r.selectPayments(), scope, paymentPredicate)
	if filter.Status != "" {
		b = b.Where(sq.Eq{"p.status": filter.Status})
	}
	if filter.StudentID != "" {
		if !validID(filter.StudentID) {
			return []academic.Payment{}, nil
		}
		b = b.Where(sq.Eq{"p.student_id": filter.StudentID})
	}

	payments := make([]academic.Payment, 0)
	if err := r.selectAll(ctx, &payments, b.OrderBy("p.date_created DESC", "p.id"), "querying payments"); err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *academicRepository) GetPayment(ctx context.Context, id string, scope access.Scope) (academic.Payment, error) {
	var p academic.Payment
	if !validID(id) {
		return p, core.ErrNotFound
	}
	b := scoped(r.selectPayments(), scope, paymentPredicate).Where(sq.Eq{"p.id": id})
	err := r.get(ctx, &p, b, "getting payment")
	return p, err
}

func (r *academicRepository) CreatePayment(ctx context.Context, p academic.Payment) (academic.Payment, error) {
	p.ID = newID()
	b := psql.Insert("payments").
		Columns("id", "student_id", "amount", "status", "date_paid").
		Values(p.ID, p.StudentID, p.Amount, p.Status, p.DatePaid)
	if err := r.write(ctx, b, false, "inserting payment"); err != nil {
		return academic.Payment{}, err
	}
	return r.GetPayment(ctx, p.ID, access.All())
}

func (r *academicRepository) UpdatePayment(ctx context.Context, p academic.Payment) (academic.Payment, error) {
	if !validID(p.ID) {
		return academic.Payment{}, core.ErrNotFound
	}
	b := psql.Update("payments").
		Set("student_id", p.StudentID).
		Set("amount", p.Amount).
		Set("status", p.Status).
		Set("date_paid", p.DatePaid).
		Where(sq.Eq{"id": p.ID})
	if err := r.write(ctx, b, true, "updating payment"); err != nil {
		return academic.Payment{}, err
	}
	return r.GetPayment(ctx, p.ID, access.All())
}

func (r *academicRepository) DeletePayment(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "payments", id, "deleting payment")
}
