package profile

import (
	"context"
	"errors"
	"time"

	"autoportal/pkg/role"
)

var (
	ErrNotFound = errors.New("profile not found")
	ErrExists   = errors.New("profile already exists")
)

type Profile struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	FirstName string     `json:"firstName,omitempty"`
	LastName  string     `json:"lastName,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	Role      role.Role  `json:"role"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// DetailsForm is the part of a profile its owner may edit.
type DetailsForm struct {
	FirstName string `json:"firstName" validate:"required,min=2,max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
	Phone     string `json:"phone" validate:"omitempty,min=5,max=32,phone"`
	Notes     string `json:"notes" validate:"max=1000"`
}

// ClientForm is the back-office edit of a client. An empty Role keeps the
// current one.
type ClientForm struct {
	DetailsForm
	Role string `json:"role" validate:"omitempty,oneof=client admin"`
}

type Repository interface {
	Create(ctx context.Context, p *Profile) error
	FindByID(ctx context.Context, id string) (*Profile, error)
	FindByUsername(ctx context.Context, username string) (*Profile, error)
	List(ctx context.Context, r role.Role) ([]*Profile, error)
	Count(ctx context.Context, r role.Role) (int, error)
	UpdateRole(ctx context.Context, id string, r role.Role) error
	UpdateDetails(ctx context.Context, id string, d DetailsForm) error
	RoleForUser(ctx context.Context, id string) (role.Role, error)
}
