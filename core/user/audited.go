package user

import (
	"context"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/audit"
)

func (u User) String() string     { return u.Username }
func (u User) AuditModel() string { return "user" }
func (u User) AuditID() string    { return u.ID }

// AuditFields includes the credentials and the last login; audit.Diff leaves them out.
func (u User) AuditFields() map[string]interface{} {
	return map[string]interface{}{
		"username":      u.Username,
		"email":         u.Email,
		"role":          u.Role,
		"teacher_id":    nullString(u.TeacherID),
		"student_id":    nullString(u.StudentID),
		"is_active":     u.IsActive,
		"password_hash": string(u.PasswordHash),
		"last_login":    nullTime(u.LastLogin),
	}
}

func nullString(s null.String) interface{} {
	if !s.Valid {
		return nil
	}
	return s.String
}

func nullTime(t null.Time) interface{} {
	if !t.Valid {
		return nil
	}
	return t.Time.UTC()
}

// auditedRepository records a create or an update entry for every saved User.
type auditedRepository struct {
	Repository
	w   audit.Writer
	rec *audit.Recorder
}

var _ Repository = (*auditedRepository)(nil) // interface compliance check

// NewAuditedRepository wraps repo so that the users it saves are audited by rec into w.
func NewAuditedRepository(repo Repository, w audit.Writer, rec *audit.Recorder) Repository {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(w, "w"),
		vala.IsNotNil(rec, "rec"),
	).CheckAndPanic()

	return &auditedRepository{Repository: repo, w: w, rec: rec}
}

func (r *auditedRepository) UpdateOrCreateUser(ctx context.Context, usr User) (User, error) {
	before, snapErr := r.Repository.GetUserByUsernameOrEmail(ctx, usr.Username)
	saved, err := r.Repository.UpdateOrCreateUser(ctx, usr)
	if err != nil {
		return saved, err
	}

	switch {
	case snapErr == nil:
		r.rec.Updated(ctx, r.w, before, saved)
	case errors.Cause(snapErr) == core.ErrNotFound:
		r.rec.Created(ctx, r.w, saved)
	default: // existence unknown
		r.rec.Updated(ctx, r.w, nil, saved)
	}
	return saved, nil
}
