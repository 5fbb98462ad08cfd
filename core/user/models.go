package user

import (
	"time"

	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/mamamind47/sfa-efilling-sub001/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

var (
	AllRoles = []string{RoleAdmin, RoleStudent}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Admin", Value: RoleAdmin},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           int64       `json:"id" db:"id"`
	Name         string      `json:"name" db:"name"`
	Username     string      `json:"username" db:"username"`
	Email        string      `json:"email" db:"email"`
	StudentCode  null.String `json:"student_code" db:"student_code"`
	Faculty      string      `json:"faculty" db:"faculty"`
	Major        string      `json:"major" db:"major"`
	Role         string      `json:"role" db:"role"`
	IsActive     bool        `json:"is_active" db:"is_active"`
	PasswordHash []byte      `json:"-" db:"password_hash"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"` // UTC
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

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u User) IsStudent() bool {
	return u.Role == RoleStudent
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Username        string `json:"username" validate:"required,min=4,alphanum_"`
	Email           string `json:"email" validate:"required,email"`
	StudentCode     string `json:"student_code" validate:"required_if=Role student,omitempty,studentcode"`
	Faculty         string `json:"faculty"`
	Major           string `json:"major"`
	Role            string `json:"role" validate:"required,oneof=admin student"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.StudentCode = core.CleanString(nu.StudentCode)
	nu.Faculty = core.CleanString(nu.Faculty)
	nu.Major = core.CleanString(nu.Major)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	if nu.Role == "" {
		nu.Role = RoleStudent
	}
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string  `json:"name"`
	Email           string  `json:"email" validate:"omitempty,email"`
	StudentCode     *string `json:"student_code" validate:"omitempty,studentcode"`
	Faculty         *string `json:"faculty"`
	Major           *string `json:"major"`
	Role            string  `json:"role" validate:"omitempty,oneof=admin student"`
	IsActive        *bool   `json:"is_active"`
	Password        string  `json:"password" validate:"omitempty"`
	PasswordConfirm string  `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

// Apply merges the provided fields on top of usr.
func (uu *UpdateUser) Apply(usr User) User {
	if name := core.CleanString(uu.Name); name != "" {
		usr.Name = name
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		usr.Email = email
	}
	if uu.StudentCode != nil {
		usr.StudentCode = null.NewString(core.CleanString(*uu.StudentCode), *uu.StudentCode != "")
	}
	if uu.Faculty != nil {
		usr.Faculty = core.CleanString(*uu.Faculty)
	}
	if uu.Major != nil {
		usr.Major = core.CleanString(*uu.Major)
	}
	if uu.Role != "" {
		usr.Role = uu.Role
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	return usr
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetUserPassword confirms a password reset with the uid and token of the emailed link.
type ResetUserPassword struct {
	UID             string `json:"uid" validate:"required"`
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type QueryFilter struct {
	Search   string `query:"search"`
	Role     string `query:"role"`
	Faculty  string `query:"faculty"`
	IsActive *bool  `query:"-"` // bound from the is_active query param by the handler
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
	qf.Faculty = core.CleanString(qf.Faculty)
}

// OrderingFields maps the sortable API fields to columns.
var OrderingFields = map[string]string{
	"id":           "id",
	"name":         "name",
	"username":     "username",
	"student_code": "student_code",
	"faculty":      "faculty",
	"created_at":   "created_at",
	"last_login":   "last_login",
}
