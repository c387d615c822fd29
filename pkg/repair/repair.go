package repair

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoportal/pkg/profile"
)

var (
	ErrNotFound        = errors.New("repair not found")
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrVehicleMismatch = errors.New("vehicle does not belong to client")
	ErrInvalidID       = errors.New("invalid ID format")
	ErrInvalidStatus   = errors.New("invalid repair status")
	ErrClientNotFound  = errors.New("client not found")
)

type Status string

const (
	Pending    Status = "Pending"
	InProgress Status = "In Progress"
	Completed  Status = "Completed"
	Cancelled  Status = "Cancelled"
)

var Statuses = []Status{Pending, InProgress, Completed, Cancelled}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

type Vehicle struct {
	MongoID     primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ID          string             `bson:"-" json:"id"`
	OwnerID     string             `bson:"owner_id" json:"ownerId"`
	Make        string             `bson:"make" json:"make"`
	Model       string             `bson:"model" json:"model"`
	Year        int                `bson:"year,omitempty" json:"year,omitempty"`
	PlateNumber string             `bson:"plate_number,omitempty" json:"plateNumber,omitempty"`
	VIN         string             `bson:"vin,omitempty" json:"vin,omitempty"`
	Color       string             `bson:"color,omitempty" json:"color,omitempty"`
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   *time.Time         `bson:"updated_at,omitempty" json:"updatedAt,omitempty"`
}

type Repair struct {
	MongoID     primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ID          string             `bson:"-" json:"id"`
	ClientID    string             `bson:"client_id" json:"clientId"`
	VehicleID   string             `bson:"vehicle_id,omitempty" json:"vehicleId,omitempty"`
	Description string             `bson:"description" json:"description"`
	Status      Status             `bson:"status" json:"status"`
	Cost        *float64           `bson:"cost,omitempty" json:"cost,omitempty"`
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

type Repository interface {
	AddVehicle(ctx context.Context, v *Vehicle) error
	GetVehicle(ctx context.Context, id string) (*Vehicle, error)
	VehiclesByOwner(ctx context.Context, ownerID string) ([]*Vehicle, error)
	UpdateVehicle(ctx context.Context, ownerID, id string, form VehicleForm, at time.Time) (*Vehicle, error)
	CountVehicles(ctx context.Context) (int64, error)

	Create(ctx context.Context, r *Repair) error
	ByClient(ctx context.Context, clientID string) ([]*Repair, error)
	ByVehicle(ctx context.Context, clientID, vehicleID string) ([]*Repair, error)
	All(ctx context.Context) ([]*Repair, error)
	UpdateStatus(ctx context.Context, id string, status Status, at time.Time) (*Repair, error)
	CountByStatus(ctx context.Context, status Status) (int64, error)
}

type VehicleForm struct {
	Make        string `json:"make" validate:"required,min=2,max=50"`
	Model       string `json:"model" validate:"required,min=2,max=50"`
	Year        int    `json:"year" validate:"omitempty,min=1900,max=2100"`
	PlateNumber string `json:"plateNumber" validate:"max=20"`
	VIN         string `json:"vin" validate:"max=32"`
	Color       string `json:"color" validate:"max=30"`
	Notes       string `json:"notes" validate:"max=1000"`
}

type RepairForm struct {
	ClientID    string   `json:"clientId" validate:"required,uuid"`
	VehicleID   string   `json:"vehicleId" validate:"omitempty,len=24,hexadecimal"`
	Description string   `json:"description" validate:"required,min=5"`
	Status      Status   `json:"status" validate:"omitempty,oneof=Pending 'In Progress' Completed Cancelled"`
	Cost        *float64 `json:"cost" validate:"omitempty,min=0"`
	Notes       string   `json:"notes"`
}

type StatusForm struct {
	Status Status `json:"status" validate:"required,oneof=Pending 'In Progress' Completed Cancelled"`
}

// Dashboard is what a signed-in client sees about their own account.
type Dashboard struct {
	Vehicles []*Vehicle `json:"vehicles"`
	Repairs  []*Repair  `json:"repairs"`
}

// ClientDetails is the admin view of one client.
type ClientDetails struct {
	Profile  *profile.Profile `json:"profile"`
	Vehicles []*Vehicle       `json:"vehicles"`
	Repairs  []*Repair        `json:"repairs"`
}

type Stats struct {
	Clients  int              `json:"clients"`
	Vehicles int64            `json:"vehicles"`
	Repairs  map[Status]int64 `json:"repairs"`
}
