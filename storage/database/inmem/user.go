package inmemdb

import (
	"context"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.data.users[id]; ok {
		return usr, nil
	}
	return user.User{}, core.ErrNotFound
}

func (repo *userRepository) GetUserByUsernameOrEmail(_ context.Context, username string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if username == "" {
		return user.User{}, core.ErrNotFound
	}
	for _, usr := range repo.db.data.users {
		if usr.Username == username || usr.Email == username {
			return usr, nil
		}
	}
	return user.User{}, core.ErrNotFound
}

func (repo *userRepository) UpdateOrCreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t := repo.db.data
	usr.ID = newID()
	usr.CreatedAt = usr.CreatedAt.UTC()
	for _, existing := range t.users {
		if existing.Username == usr.Username {
			usr.ID = existing.ID
			usr.CreatedAt = existing.CreatedAt
			usr.LastLogin = existing.LastLogin
			break
		}
	}

	if usr.TeacherID.Valid {
		if _, ok := t.teachers[usr.TeacherID.String]; !ok {
			return user.User{}, invalidReference("teacher_id")
		}
	}
	if usr.StudentID.Valid {
		if _, ok := t.students[usr.StudentID.String]; !ok {
			return user.User{}, invalidReference("student_id")
		}
	}
	for _, other := range t.users {
		if other.ID == usr.ID {
			continue
		}
		if usr.TeacherID.Valid && other.TeacherID == usr.TeacherID {
			return user.User{}, academic.NewDuplicateError("user", "teacher_id")
		}
		if usr.StudentID.Valid && other.StudentID == usr.StudentID {
			return user.User{}, academic.NewDuplicateError("user", "student_id")
		}
	}

	t.users[usr.ID] = usr
	return usr, nil
}
