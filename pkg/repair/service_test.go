package repair_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"autoportal/pkg/profile"
	"autoportal/pkg/repair"
	"autoportal/pkg/role"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) AddVehicle(_ context.Context, v *repair.Vehicle) error {
	return m.Called(v).Error(0)
}

func (m *mockRepo) GetVehicle(_ context.Context, id string) (*repair.Vehicle, error) {
	args := m.Called(id)
	if v := args.Get(0); v != nil {
		return v.(*repair.Vehicle), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) VehiclesByOwner(_ context.Context, ownerID string) ([]*repair.Vehicle, error) {
	args := m.Called(ownerID)
	return args.Get(0).([]*repair.Vehicle), args.Error(1)
}

func (m *mockRepo) UpdateVehicle(_ context.Context, ownerID, id string, form repair.VehicleForm, at time.Time) (*repair.Vehicle, error) {
	args := m.Called(ownerID, id, form, at)
	if v := args.Get(0); v != nil {
		return v.(*repair.Vehicle), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) CountVehicles(context.Context) (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) Create(_ context.Context, r *repair.Repair) error {
	return m.Called(r).Error(0)
}

func (m *mockRepo) ByClient(_ context.Context, clientID string) ([]*repair.Repair, error) {
	args := m.Called(clientID)
	return args.Get(0).([]*repair.Repair), args.Error(1)
}

func (m *mockRepo) ByVehicle(_ context.Context, clientID, vehicleID string) ([]*repair.Repair, error) {
	args := m.Called(clientID, vehicleID)
	return args.Get(0).([]*repair.Repair), args.Error(1)
}

func (m *mockRepo) All(context.Context) ([]*repair.Repair, error) {
	args := m.Called()
	return args.Get(0).([]*repair.Repair), args.Error(1)
}

func (m *mockRepo) UpdateStatus(_ context.Context, id string, status repair.Status, at time.Time) (*repair.Repair, error) {
	args := m.Called(id, status, at)
	if r := args.Get(0); r != nil {
		return r.(*repair.Repair), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) CountByStatus(_ context.Context, status repair.Status) (int64, error) {
	args := m.Called(status)
	return args.Get(0).(int64), args.Error(1)
}

// clientTable knows the "uid" client unless told otherwise.
type clientTable struct {
	n       int
	err     error
	missing bool
}

func (c clientTable) Count(_ context.Context, r role.Role) (int, error) {
	if r != role.Client {
		return 0, errors.New("unexpected role")
	}
	return c.n, c.err
}

func (c clientTable) FindByID(_ context.Context, id string) (*profile.Profile, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.missing || id != "uid" {
		return nil, profile.ErrNotFound
	}
	return &profile.Profile{ID: id, Username: "bob@example.com", Role: role.Client}, nil
}

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newService(repo repair.Repository, clients repair.Clients) *repair.Service {
	svc := repair.NewService(repo, clients, slog.New(slog.NewTextHandler(os.Stdout, nil)))
	svc.Now = func() time.Time { return fixedNow }
	return svc
}

func TestService_Dashboard(t *testing.T) {
	m := new(mockRepo)
	m.On("VehiclesByOwner", "uid").Return([]*repair.Vehicle{{ID: "v1"}}, nil)
	m.On("ByClient", "uid").Return([]*repair.Repair{{ID: "r1"}, {ID: "r2"}}, nil)
	m.On("VehiclesByOwner", "broken").Return([]*repair.Vehicle(nil), errors.New("db down"))

	svc := newService(m, clientTable{})

	d, err := svc.Dashboard(ctx, "uid")
	assert.NoError(t, err)
	assert.Len(t, d.Vehicles, 1)
	assert.Len(t, d.Repairs, 2)

	_, err = svc.Dashboard(ctx, "broken")
	assert.Error(t, err)
}

func TestService_AddVehicle(t *testing.T) {
	m := new(mockRepo)
	m.On("AddVehicle", mock.MatchedBy(func(v *repair.Vehicle) bool {
		return v.OwnerID == "uid" && v.Make == "Audi" && v.CreatedAt.Equal(fixedNow)
	})).Return(nil)

	v, err := newService(m, clientTable{}).AddVehicle(ctx, "uid", repair.VehicleForm{Make: "Audi", Model: "A4", Year: 2015})

	assert.NoError(t, err)
	assert.Equal(t, 2015, v.Year)
	m.AssertExpectations(t)
}

func TestService_Create(t *testing.T) {
	vehicleID := "65f000000000000000000001"

	tests := []struct {
		name    string
		form    repair.RepairForm
		clients clientTable
		setup   func(m *mockRepo)
		wantErr error
		status  repair.Status
	}{
		{
			name:    "unknown client",
			form:    repair.RepairForm{ClientID: "uid", Description: "Oil change"},
			clients: clientTable{missing: true},
			setup:   func(*mockRepo) {},
			wantErr: repair.ErrClientNotFound,
		},
		{
			name: "defaults to pending",
			form: repair.RepairForm{ClientID: "uid", Description: "Oil change"},
			setup: func(m *mockRepo) {
				m.On("Create", mock.Anything).Return(nil)
			},
			status: repair.Pending,
		},
		{
			name: "vehicle of client",
			form: repair.RepairForm{ClientID: "uid", VehicleID: vehicleID, Description: "Brakes", Status: repair.InProgress},
			setup: func(m *mockRepo) {
				m.On("GetVehicle", vehicleID).Return(&repair.Vehicle{ID: vehicleID, OwnerID: "uid"}, nil)
				m.On("Create", mock.Anything).Return(nil)
			},
			status: repair.InProgress,
		},
		{
			name: "vehicle of someone else",
			form: repair.RepairForm{ClientID: "uid", VehicleID: vehicleID, Description: "Brakes"},
			setup: func(m *mockRepo) {
				m.On("GetVehicle", vehicleID).Return(&repair.Vehicle{ID: vehicleID, OwnerID: "other"}, nil)
			},
			wantErr: repair.ErrVehicleMismatch,
		},
		{
			name: "unknown vehicle",
			form: repair.RepairForm{ClientID: "uid", VehicleID: vehicleID, Description: "Brakes"},
			setup: func(m *mockRepo) {
				m.On("GetVehicle", vehicleID).Return(nil, repair.ErrVehicleNotFound)
			},
			wantErr: repair.ErrVehicleNotFound,
		},
		{
			name:    "bad status",
			form:    repair.RepairForm{ClientID: "uid", Description: "Brakes", Status: "Lost"},
			setup:   func(*mockRepo) {},
			wantErr: repair.ErrInvalidStatus,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := new(mockRepo)
			test.setup(m)

			rep, err := newService(m, test.clients).Create(ctx, test.form)

			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
				m.AssertNotCalled(t, "Create", mock.Anything)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, test.status, rep.Status)
			assert.Equal(t, fixedNow, rep.CreatedAt)
		})
	}
}

func TestService_UpdateStatus(t *testing.T) {
	m := new(mockRepo)
	m.On("UpdateStatus", "r1", repair.Completed, fixedNow).Return(&repair.Repair{ID: "r1", Status: repair.Completed}, nil)
	svc := newService(m, clientTable{})

	rep, err := svc.UpdateStatus(ctx, "r1", repair.Completed)
	assert.NoError(t, err)
	assert.Equal(t, repair.Completed, rep.Status)

	_, err = svc.UpdateStatus(ctx, "r1", "Archived")
	assert.ErrorIs(t, err, repair.ErrInvalidStatus)
}

func TestService_Stats(t *testing.T) {
	m := new(mockRepo)
	m.On("CountVehicles").Return(int64(4), nil)
	m.On("CountByStatus", repair.Pending).Return(int64(1), nil)
	m.On("CountByStatus", repair.InProgress).Return(int64(2), nil)
	m.On("CountByStatus", repair.Completed).Return(int64(3), nil)
	m.On("CountByStatus", repair.Cancelled).Return(int64(0), nil)

	stats, err := newService(m, clientTable{n: 5}).Stats(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 5, stats.Clients)
	assert.Equal(t, int64(4), stats.Vehicles)
	assert.Equal(t, map[repair.Status]int64{
		repair.Pending: 1, repair.InProgress: 2, repair.Completed: 3, repair.Cancelled: 0,
	}, stats.Repairs)

	_, err = newService(m, clientTable{err: errors.New("db down")}).Stats(ctx)
	assert.Error(t, err)
}

func TestService_CreateClientLookupFails(t *testing.T) {
	m := new(mockRepo)

	_, err := newService(m, clientTable{err: errors.New("db down")}).Create(ctx, repair.RepairForm{ClientID: "uid", Description: "Oil change"})

	assert.Error(t, err)
	assert.False(t, repair.IsNotFound(err))
	m.AssertNotCalled(t, "Create", mock.Anything)
}

func TestService_UpdateVehicle(t *testing.T) {
	form := repair.VehicleForm{Make: "Audi", Model: "A6", Year: 2019, Color: "Black"}
	m := new(mockRepo)
	m.On("UpdateVehicle", "uid", "v1", form, fixedNow).Return(&repair.Vehicle{ID: "v1", OwnerID: "uid", Make: "Audi", Color: "Black"}, nil)
	m.On("UpdateVehicle", "intruder", "v1", form, fixedNow).Return(nil, repair.ErrVehicleNotFound)
	svc := newService(m, clientTable{})

	v, err := svc.UpdateVehicle(ctx, "uid", "v1", form)
	assert.NoError(t, err)
	assert.Equal(t, "Black", v.Color)

	_, err = svc.UpdateVehicle(ctx, "intruder", "v1", form)
	assert.ErrorIs(t, err, repair.ErrVehicleNotFound)
}

func TestService_VehicleRepairs(t *testing.T) {
	vehicleID := "65f000000000000000000001"
	m := new(mockRepo)
	m.On("GetVehicle", vehicleID).Return(&repair.Vehicle{ID: vehicleID, OwnerID: "uid"}, nil)
	m.On("ByVehicle", "uid", vehicleID).Return([]*repair.Repair{{ID: "r1", VehicleID: vehicleID}}, nil)
	svc := newService(m, clientTable{})

	repairs, err := svc.VehicleRepairs(ctx, "uid", vehicleID)
	assert.NoError(t, err)
	assert.Len(t, repairs, 1)

	_, err = svc.VehicleRepairs(ctx, "other", vehicleID)
	assert.ErrorIs(t, err, repair.ErrVehicleNotFound)
	m.AssertNumberOfCalls(t, "ByVehicle", 1)
}

func TestService_ClientDetails(t *testing.T) {
	m := new(mockRepo)
	m.On("VehiclesByOwner", "uid").Return([]*repair.Vehicle{{ID: "v1"}}, nil)
	m.On("ByClient", "uid").Return([]*repair.Repair{{ID: "r1"}}, nil)
	svc := newService(m, clientTable{})

	d, err := svc.ClientDetails(ctx, "uid")
	assert.NoError(t, err)
	assert.Equal(t, "bob@example.com", d.Profile.Username)
	assert.Len(t, d.Vehicles, 1)
	assert.Len(t, d.Repairs, 1)

	_, err = svc.ClientDetails(ctx, "ghost")
	assert.ErrorIs(t, err, repair.ErrClientNotFound)
	assert.True(t, repair.IsNotFound(err))
}
