package user

import (
	"time"

	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/chuo/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

var AllRoles = []string{RoleAdmin, RoleTeacher, RoleStudent}

type User struct {
	ID           string      `json:"id" db:"id"`
	Username     string      `json:"username" db:"username"`
	Email        string      `json:"email" db:"email"`
	Role         string      `json:"role" db:"role"`
	TeacherID    null.String `json:"teacher_id" db:"teacher_id"` // teacher profile link
	StudentID    null.String `json:"student_id" db:"student_id"` // student profile link
	IsActive     bool        `json:"is_active" db:"is_active"`
	PasswordHash []byte      `json:"-" db:"password_hash"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"` // UTC
	LastLogin    null.Time   `json:"last_login" db:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u User) IsStudent() bool { return u.Role == RoleStudent }

// NewUser contains information needed to create (or update, by username) a User.
type NewUser struct {
	Username  string `json:"username" validate:"required,min=3,alphanum"`
	Email     string `json:"email" validate:"omitempty,email"`
	Role      string `json:"role" validate:"required,oneof=admin teacher student"`
	TeacherID string `json:"teacher_id" validate:"omitempty,uuid"`
	StudentID string `json:"student_id" validate:"omitempty,uuid"`
	Password  string `json:"password" validate:"required"`
}

func (nu *NewUser) Validate() error {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	nu.TeacherID = core.CleanString(nu.TeacherID)
	nu.StudentID = core.CleanString(nu.StudentID)
	return core.Validate.Struct(nu)
}
