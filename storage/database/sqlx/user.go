package sqlxrepos

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/user"
)

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) user.Repository {
	return &userRepository{exec: exec}
}

var userColumns = []string{
	"id", "username", "email", "role", "teacher_id", "student_id", "is_active", "password_hash", "created_at", "last_login",
}

func (repo *userRepository) get(ctx context.Context, where sq.Sqlizer, msg string) (user.User, error) {
	var usr user.User
	query, args, err := psql.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return usr, mapError(err, msg)
	}
	err = repo.exec.GetContext(ctx, &usr, query, args...)
	return usr, mapError(err, msg)
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if !validID(id) {
		return user.User{}, core.ErrNotFound
	}
	return repo.get(ctx, sq.Eq{"id": id}, "getting user by ID")
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	if username == "" {
		return user.User{}, core.ErrNotFound
	}
	return repo.get(ctx, sq.Or{sq.Eq{"username": username}, sq.Eq{"email": username}}, "getting user by username or email")
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	query, args, err := psql.Insert("users").
		Columns("id", "username", "email", "role", "teacher_id", "student_id", "is_active", "password_hash", "created_at").
		Values(
			uuid.New().String(), usr.Username, usr.Email, usr.Role, usr.TeacherID, usr.StudentID,
			usr.IsActive, usr.PasswordHash, usr.CreatedAt.UTC(),
		).
		Suffix(`ON CONFLICT (username) DO UPDATE SET
			email = EXCLUDED.email,
			role = EXCLUDED.role,
			teacher_id = EXCLUDED.teacher_id,
			student_id = EXCLUDED.student_id,
			is_active = EXCLUDED.is_active,
			password_hash = EXCLUDED.password_hash`).
		Suffix("RETURNING " + strings.Join(userColumns, ", ")).
		ToSql()
	if err != nil {
		return user.User{}, mapError(err, "saving user")
	}

	var saved user.User
	err = repo.exec.GetContext(ctx, &saved, query, args...)
	return saved, mapError(err, "saving user")
}
