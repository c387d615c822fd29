package user

import (
	"context"
	"errors"

	"autoportal/pkg/repair"
	"autoportal/pkg/role"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrExists             = errors.New("user already exists")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrUnknownUsername    = errors.New("invalid username")
	ErrNoEmail            = errors.New("could not retrieve email for user")
	ErrInvalidRole        = errors.New("invalid role")
)

// User is an account: the credentials side of a person. Their portal data
// lives on the profile with the same ID.
type User struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Password       string `json:"-" bson:"-"`
	EmailConfirmed bool   `json:"emailConfirmed"`
}

type Changes struct {
	PasswordHash   *string
	EmailConfirmed *bool
}

type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, id string, ch Changes) error
	Delete(ctx context.Context, id string) error
}

type RegisterForm struct {
	Username  string `json:"username" validate:"required,min=3,max=50,username"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
}

type LoginForm struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// CreateForm is the admin-side account creation request. A nil Role means
// client; Vehicle optionally registers the client's first car.
type CreateForm struct {
	Email     string              `json:"email" validate:"required,email"`
	Password  string              `json:"password" validate:"required,min=6"`
	Username  string              `json:"username" validate:"omitempty,min=3,max=50,username"`
	FirstName string              `json:"firstName" validate:"max=100"`
	LastName  string              `json:"lastName" validate:"max=100"`
	Phone     string              `json:"phone" validate:"omitempty,max=32,phone"`
	Role      *role.Role          `json:"role,omitempty"`
	Vehicle   *repair.VehicleForm `json:"vehicle,omitempty"`
}

// UpdateForm is the admin-side account update. Nil fields are left alone.
type UpdateForm struct {
	NewPassword    *string    `json:"newPassword" validate:"omitempty,min=6"`
	EmailConfirmed *bool      `json:"emailConfirmed"`
	Role           *role.Role `json:"role"`
}

func (f UpdateForm) Empty() bool {
	return (f.NewPassword == nil || *f.NewPassword == "") && f.EmailConfirmed == nil && f.Role == nil
}
