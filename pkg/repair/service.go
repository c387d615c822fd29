package repair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"autoportal/pkg/profile"
	"autoportal/pkg/role"
)

type ServiceInterface interface {
	Dashboard(ctx context.Context, ownerID string) (*Dashboard, error)
	AddVehicle(ctx context.Context, ownerID string, form VehicleForm) (*Vehicle, error)
	UpdateVehicle(ctx context.Context, ownerID, id string, form VehicleForm) (*Vehicle, error)
	VehicleRepairs(ctx context.Context, ownerID, vehicleID string) ([]*Repair, error)
	ClientDetails(ctx context.Context, clientID string) (*ClientDetails, error)
	All(ctx context.Context) ([]*Repair, error)
	Create(ctx context.Context, form RepairForm) (*Repair, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Repair, error)
	Stats(ctx context.Context) (*Stats, error)
}

// Clients is the part of the profile store repairs depend on.
type Clients interface {
	Count(ctx context.Context, r role.Role) (int, error)
	FindByID(ctx context.Context, id string) (*profile.Profile, error)
}

type Service struct {
	Repo    Repository
	Clients Clients
	Logger  *slog.Logger
	Now     func() time.Time
}

func NewService(repo Repository, clients Clients, logger *slog.Logger) *Service {
	return &Service{Repo: repo, Clients: clients, Logger: logger, Now: time.Now}
}

func (s *Service) Dashboard(ctx context.Context, ownerID string) (*Dashboard, error) {
	vehicles, err := s.Repo.VehiclesByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	repairs, err := s.Repo.ByClient(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Vehicles: vehicles, Repairs: repairs}, nil
}

func (s *Service) AddVehicle(ctx context.Context, ownerID string, form VehicleForm) (*Vehicle, error) {
	v := &Vehicle{
		OwnerID:     ownerID,
		Make:        form.Make,
		Model:       form.Model,
		Year:        form.Year,
		PlateNumber: form.PlateNumber,
		VIN:         form.VIN,
		Color:       form.Color,
		Notes:       form.Notes,
		CreatedAt:   s.Now().UTC(),
	}
	if err := s.Repo.AddVehicle(ctx, v); err != nil {
		return nil, err
	}
	s.Logger.Info("vehicle added", "owner", ownerID, "vehicle", v.ID)
	return v, nil
}

// UpdateVehicle edits a vehicle. Vehicles of other owners read as missing.
func (s *Service) UpdateVehicle(ctx context.Context, ownerID, id string, form VehicleForm) (*Vehicle, error) {
	v, err := s.Repo.UpdateVehicle(ctx, ownerID, id, form, s.Now().UTC())
	if err != nil {
		return nil, err
	}
	s.Logger.Info("vehicle updated", "owner", ownerID, "vehicle", v.ID)
	return v, nil
}

func (s *Service) VehicleRepairs(ctx context.Context, ownerID, vehicleID string) ([]*Repair, error) {
	v, err := s.Repo.GetVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if v.OwnerID != ownerID {
		return nil, ErrVehicleNotFound
	}
	return s.Repo.ByVehicle(ctx, ownerID, vehicleID)
}

func (s *Service) ClientDetails(ctx context.Context, clientID string) (*ClientDetails, error) {
	p, err := s.client(ctx, clientID)
	if err != nil {
		return nil, err
	}
	d, err := s.Dashboard(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return &ClientDetails{Profile: p, Vehicles: d.Vehicles, Repairs: d.Repairs}, nil
}

func (s *Service) client(ctx context.Context, id string) (*profile.Profile, error) {
	p, err := s.Clients.FindByID(ctx, id)
	if errors.Is(err, profile.ErrNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find client: %w", err)
	}
	return p, nil
}

func (s *Service) All(ctx context.Context) ([]*Repair, error) {
	return s.Repo.All(ctx)
}

// Create records a repair for an existing client. A vehicle, when given,
// must belong to that client.
func (s *Service) Create(ctx context.Context, form RepairForm) (*Repair, error) {
	if _, err := s.client(ctx, form.ClientID); err != nil {
		return nil, err
	}
	if form.VehicleID != "" {
		v, err := s.Repo.GetVehicle(ctx, form.VehicleID)
		if err != nil {
			return nil, err
		}
		if v.OwnerID != form.ClientID {
			return nil, ErrVehicleMismatch
		}
	}

	status := form.Status
	if status == "" {
		status = Pending
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	now := s.Now().UTC()
	rep := &Repair{
		ClientID:    form.ClientID,
		VehicleID:   form.VehicleID,
		Description: form.Description,
		Status:      status,
		Cost:        form.Cost,
		Notes:       form.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.Create(ctx, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (*Repair, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.Repo.UpdateStatus(ctx, id, status, s.Now().UTC())
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	clients, err := s.Clients.Count(ctx, role.Client)
	if err != nil {
		return nil, fmt.Errorf("count clients: %w", err)
	}

	vehicles, err := s.Repo.CountVehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("count vehicles: %w", err)
	}

	stats := &Stats{Clients: clients, Vehicles: vehicles, Repairs: make(map[Status]int64, len(Statuses))}
	for _, st := range Statuses {
		n, err := s.Repo.CountByStatus(ctx, st)
		if err != nil {
			return nil, fmt.Errorf("count %s repairs: %w", st, err)
		}
		stats.Repairs[st] = n
	}
	return stats, nil
}

// IsNotFound reports whether err means the addressed record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrVehicleNotFound) || errors.Is(err, ErrClientNotFound)
}
