package user

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core"
)

type (
	Repository interface {
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, username string) (User, error)
		// UpdateOrCreateUser matches an existing User on its username.
		UpdateOrCreateUser(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

// Save updates or creates the User matching nu.Username; the account is (re)activated.
func (svc *Service) Save(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(); err != nil {
		return User{}, err
	}

	usr := User{
		Username:  nu.Username,
		Email:     nu.Email,
		Role:      nu.Role,
		TeacherID: null.NewString(nu.TeacherID, nu.TeacherID != ""),
		StudentID: null.NewString(nu.StudentID, nu.StudentID != ""),
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.UpdateOrCreateUser(ctx, usr)
}
