package user

import (
	"context"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chuo/core"
)

func TestNewUser_Validate(t *testing.T) {
	profile := uuid.New().String()
	valid := NewUser{Username: "johndoe", Email: "john@chuo.test", Role: RoleAdmin, Password: "S3cure!pwd"}

	tests := []struct {
		name    string
		edit    func(nu *NewUser)
		wantTag string
		wantFld string
	}{
		{name: "valid", edit: func(*NewUser) {}},
		{name: "cleaned role", edit: func(nu *NewUser) { nu.Role = "  Teacher " }},
		{name: "short username", edit: func(nu *NewUser) { nu.Username = "jo" }, wantTag: "min", wantFld: "username"},
		{name: "bad email", edit: func(nu *NewUser) { nu.Email = "john" }, wantTag: "email", wantFld: "email"},
		{name: "bad role", edit: func(nu *NewUser) { nu.Role = "dean" }, wantTag: "oneof", wantFld: "role"},
		{name: "no password", edit: func(nu *NewUser) { nu.Password = "" }, wantTag: "required", wantFld: "password"},
		{name: "short password", edit: func(nu *NewUser) { nu.Password = "Sh0rt!" }, wantTag: pwdMinLenTag, wantFld: "password"},
		{name: "spaced password", edit: func(nu *NewUser) { nu.Password = "S3cure !pwd" }, wantTag: pwdNoSpaceTag, wantFld: "password"},
		{name: "numeric password", edit: func(nu *NewUser) { nu.Password = "1234567890" }, wantTag: pwdNotAllNumTag, wantFld: "password"},
		{name: "no upper", edit: func(nu *NewUser) { nu.Password = "s3cure!pwd" }, wantTag: pwdComplexityTag, wantFld: "password"},
		{name: "no special", edit: func(nu *NewUser) { nu.Password = "S3curepwd" }, wantTag: pwdComplexityTag, wantFld: "password"},
		{name: "no digit", edit: func(nu *NewUser) { nu.Password = "Secure!pwd" }, wantTag: pwdComplexityTag, wantFld: "password"},
		{name: "like username", edit: func(nu *NewUser) { nu.Password = "Johndoe1!" }, wantTag: pwdAttrSimTag, wantFld: "password"},
		{name: "like email", edit: func(nu *NewUser) { nu.Password = "J0hn@chuo.test" }, wantTag: pwdAttrSimTag, wantFld: "password"},
		{name: "teacher profile", edit: func(nu *NewUser) { nu.Role = RoleTeacher; nu.TeacherID = profile }},
		{name: "mismatched profile", edit: func(nu *NewUser) { nu.StudentID = profile }, wantTag: profileTag, wantFld: "student_id"},
		{name: "bad profile", edit: func(nu *NewUser) { nu.Role = RoleStudent; nu.StudentID = "42" }, wantTag: "uuid", wantFld: "student_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := valid
			tt.edit(&nu)
			err := nu.Validate()
			if tt.wantTag == "" {
				assert.NoError(t, err)
				return
			}

			var vErrs validator.ValidationErrors
			require.True(t, errors.As(err, &vErrs), "got %v", err)
			tags := make(map[string][]string, len(vErrs))
			for _, vErr := range vErrs {
				tags[vErr.Field()] = append(tags[vErr.Field()], vErr.Tag())
			}
			assert.Contains(t, tags[tt.wantFld], tt.wantTag, "%v", tags)
		})
	}
}

func TestNewUser_translations(t *testing.T) {
	nu := NewUser{Username: "johndoe", Role: RoleAdmin, Password: "alllower1!"}
	var vErrs validator.ValidationErrors
	require.True(t, errors.As(nu.Validate(), &vErrs))
	assert.Equal(t, map[string]string{"password": pwdComplexityText}, core.TranslateErrors(vErrs))
}

// memRepository keys the users by username.
type memRepository struct {
	users map[string]User
}

func (r *memRepository) GetUserByID(_ context.Context, id string) (User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, core.ErrNotFound
}

func (r *memRepository) GetUserByUsernameOrEmail(_ context.Context, username string) (User, error) {
	for _, u := range r.users {
		if u.Username == username || u.Email == username {
			return u, nil
		}
	}
	return User{}, core.ErrNotFound
}

func (r *memRepository) UpdateOrCreateUser(_ context.Context, usr User) (User, error) {
	if old, ok := r.users[usr.Username]; ok {
		usr.ID = old.ID
		usr.CreatedAt = old.CreatedAt
	} else {
		usr.ID = uuid.New().String()
	}
	r.users[usr.Username] = usr
	return usr, nil
}

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&memRepository{users: make(map[string]User)})

	_, err := svc.Save(ctx, NewUser{Username: "kim", Role: RoleAdmin, Password: "weak"})
	assert.Error(t, err)

	usr, err := svc.Save(ctx, NewUser{Username: " Kim42 ", Email: "KIM@chuo.test", Role: RoleAdmin, Password: "S3cure!pwd"})
	require.NoError(t, err)
	assert.Equal(t, "kim42", usr.Username)
	assert.Equal(t, "kim@chuo.test", usr.Email)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword("S3cure!pwd"))
	assert.True(t, usr.IsAdmin())

	// saving the same username again updates the user
	profile := uuid.New().String()
	updated, err := svc.Save(ctx, NewUser{Username: "kim42", Role: RoleStudent, StudentID: profile, Password: "N3w!secret"})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, updated.ID)
	assert.True(t, updated.IsStudent())
	assert.Equal(t, profile, updated.StudentID.String)
	assert.Error(t, updated.CheckPassword("S3cure!pwd"))
	assert.NoError(t, updated.CheckPassword("N3w!secret"))

	got, err := svc.GetByUsernameOrEmail(ctx, strings.ToUpper(" kim42 "))
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	got, err = svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, "kim42", got.Username)

	_, err = svc.GetByID(ctx, "missing")
	assert.Equal(t, core.ErrNotFound, err)
}
