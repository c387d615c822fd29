package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"autoportal/pkg/handlers"
	"autoportal/pkg/profile"
	"autoportal/pkg/repair"
	"autoportal/pkg/role"
	"autoportal/pkg/user"
)

type mockProfiles struct {
	mock.Mock
}

func (m *mockProfiles) Create(_ context.Context, p *profile.Profile) error {
	return m.Called(p).Error(0)
}

func (m *mockProfiles) FindByID(_ context.Context, id string) (*profile.Profile, error) {
	args := m.Called(id)
	p, _ := args.Get(0).(*profile.Profile)
	return p, args.Error(1)
}

func (m *mockProfiles) FindByUsername(_ context.Context, username string) (*profile.Profile, error) {
	args := m.Called(username)
	p, _ := args.Get(0).(*profile.Profile)
	return p, args.Error(1)
}

func (m *mockProfiles) List(_ context.Context, r role.Role) ([]*profile.Profile, error) {
	args := m.Called(r)
	p, _ := args.Get(0).([]*profile.Profile)
	return p, args.Error(1)
}

func (m *mockProfiles) Count(_ context.Context, r role.Role) (int, error) {
	args := m.Called(r)
	return args.Int(0), args.Error(1)
}

func (m *mockProfiles) UpdateRole(_ context.Context, id string, r role.Role) error {
	return m.Called(id, r).Error(0)
}

func (m *mockProfiles) UpdateDetails(_ context.Context, id string, d profile.DetailsForm) error {
	return m.Called(id, d).Error(0)
}

func (m *mockProfiles) RoleForUser(_ context.Context, id string) (role.Role, error) {
	args := m.Called(id)
	return args.Get(0).(role.Role), args.Error(1)
}

type mockRepairs struct {
	mock.Mock
}

func (m *mockRepairs) Dashboard(_ context.Context, ownerID string) (*repair.Dashboard, error) {
	args := m.Called(ownerID)
	d, _ := args.Get(0).(*repair.Dashboard)
	return d, args.Error(1)
}

func (m *mockRepairs) AddVehicle(_ context.Context, ownerID string, form repair.VehicleForm) (*repair.Vehicle, error) {
	args := m.Called(ownerID, form)
	v, _ := args.Get(0).(*repair.Vehicle)
	return v, args.Error(1)
}

func (m *mockRepairs) UpdateVehicle(_ context.Context, ownerID, id string, form repair.VehicleForm) (*repair.Vehicle, error) {
	args := m.Called(ownerID, id, form)
	v, _ := args.Get(0).(*repair.Vehicle)
	return v, args.Error(1)
}

func (m *mockRepairs) VehicleRepairs(_ context.Context, ownerID, vehicleID string) ([]*repair.Repair, error) {
	args := m.Called(ownerID, vehicleID)
	r, _ := args.Get(0).([]*repair.Repair)
	return r, args.Error(1)
}

func (m *mockRepairs) ClientDetails(_ context.Context, clientID string) (*repair.ClientDetails, error) {
	args := m.Called(clientID)
	d, _ := args.Get(0).(*repair.ClientDetails)
	return d, args.Error(1)
}

func (m *mockRepairs) All(context.Context) ([]*repair.Repair, error) {
	args := m.Called()
	r, _ := args.Get(0).([]*repair.Repair)
	return r, args.Error(1)
}

func (m *mockRepairs) Create(_ context.Context, form repair.RepairForm) (*repair.Repair, error) {
	args := m.Called(form.ClientID, form.Description)
	r, _ := args.Get(0).(*repair.Repair)
	return r, args.Error(1)
}

func (m *mockRepairs) UpdateStatus(_ context.Context, id string, status repair.Status) (*repair.Repair, error) {
	args := m.Called(id, status)
	r, _ := args.Get(0).(*repair.Repair)
	return r, args.Error(1)
}

func (m *mockRepairs) Stats(context.Context) (*repair.Stats, error) {
	args := m.Called()
	s, _ := args.Get(0).(*repair.Stats)
	return s, args.Error(1)
}

const clientID = "0b7e3c1a-7a9c-4f57-9f2f-2a3c4d5e6f70"

func adminRouter(h *handlers.AdminHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/admin/users", h.CreateUser).Methods(http.MethodPost)
	r.HandleFunc("/api/admin/users/{id}", h.UpdateUser).Methods(http.MethodPut)
	r.HandleFunc("/api/admin/users/{id}/auth-status", h.AuthStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/clients", h.Clients).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/clients/{id}", h.ClientDetails).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/clients/{id}", h.UpdateClient).Methods(http.MethodPut)
	r.HandleFunc("/api/admin/repairs", h.ListRepairs).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/repairs", h.CreateRepair).Methods(http.MethodPost)
	r.HandleFunc("/api/admin/repairs/{id}/status", h.UpdateRepairStatus).Methods(http.MethodPut)
	r.HandleFunc("/api/admin/stats", h.Stats).Methods(http.MethodGet)
	return r
}

func TestAdminCreateUser(t *testing.T) {
	users := new(mockService)
	users.On("CreateUser", "new@example.com").Return(&user.User{ID: "uid"}, nil)
	users.On("CreateUser", "dup@example.com").Return(nil, user.ErrExists)
	users.On("CreateUser", "err@example.com").Return(nil, errors.New("db down"))

	router := adminRouter(handlers.NewAdminHandler(users, new(mockProfiles), new(mockRepairs), logger))

	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"created", `{"email":"new@example.com","password":"secret1","role":"admin"}`, http.StatusCreated, `"userId":"uid"`},
		{"exists", `{"email":"dup@example.com","password":"secret1"}`, http.StatusConflict, "user already exists"},
		{"failure", `{"email":"err@example.com","password":"secret1"}`, http.StatusInternalServerError, "internal error"},
		{"missing password", `{"email":"new@example.com"}`, http.StatusUnprocessableEntity, `"param":"password"`},
		{"unknown role", `{"email":"new@example.com","password":"secret1","role":"owner"}`, http.StatusUnprocessableEntity, "invalid role"},
		{"bad vehicle", `{"email":"new@example.com","password":"secret1","vehicle":{"make":"A"}}`, http.StatusUnprocessableEntity, `"param":"make"`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, jsonRequest(http.MethodPost, "/api/admin/users", test.body))
			assert.Equal(t, test.status, rr.Code)
			assert.Contains(t, rr.Body.String(), test.want)
		})
	}
}

func TestAdminUpdateUser(t *testing.T) {
	admin := role.Admin
	confirmed := true

	users := new(mockService)
	users.On("UpdateUser", "uid", user.UpdateForm{Role: &admin}).Return(true, nil)
	users.On("UpdateUser", "uid", user.UpdateForm{}).Return(false, nil)
	users.On("UpdateUser", "ghost", user.UpdateForm{EmailConfirmed: &confirmed}).Return(false, user.ErrNotFound)

	router := adminRouter(handlers.NewAdminHandler(users, new(mockProfiles), new(mockRepairs), logger))

	tests := []struct {
		name   string
		id     string
		body   string
		status int
		want   string
	}{
		{"role change", "uid", `{"role":"admin"}`, http.StatusOK, "User updated successfully"},
		{"nothing to update", "uid", `{}`, http.StatusOK, `{"message":"No update data provided"}`},
		{"unknown role", "uid", `{"role":"superuser"}`, http.StatusUnprocessableEntity, "invalid role"},
		{"unknown user", "ghost", `{"emailConfirmed":true}`, http.StatusNotFound, "user not found"},
		{"short password", "uid", `{"newPassword":"abc"}`, http.StatusUnprocessableEntity, `"param":"newPassword"`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, jsonRequest(http.MethodPut, "/api/admin/users/"+test.id, test.body))
			assert.Equal(t, test.status, rr.Code)
			assert.Contains(t, rr.Body.String(), test.want)
		})
	}
}

func TestAdminCreateUserWithVehicle(t *testing.T) {
	form := repair.VehicleForm{Make: "Skoda", Model: "Octavia", PlateNumber: "A123BC"}

	users := new(mockService)
	users.On("CreateUser", "carl@example.com").Return(&user.User{ID: "u1"}, nil)
	users.On("CreateUser", "dora@example.com").Return(&user.User{ID: "u2"}, nil)

	repairs := new(mockRepairs)
	repairs.On("AddVehicle", "u1", form).Return(&repair.Vehicle{ID: "v1", OwnerID: "u1"}, nil)
	repairs.On("AddVehicle", "u2", form).Return(nil, errors.New("mongo down"))

	router := adminRouter(handlers.NewAdminHandler(users, new(mockProfiles), repairs, logger))
	vehicle := `"vehicle":{"make":"Skoda","model":"Octavia","plateNumber":"A123BC"}`

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(http.MethodPost, "/api/admin/users", `{"email":"carl@example.com","password":"secret1",`+vehicle+`}`))
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"vehicleId":"v1"`)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(http.MethodPost, "/api/admin/users", `{"email":"dora@example.com","password":"secret1",`+vehicle+`}`))
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"userId":"u2"`)
	assert.Contains(t, rr.Body.String(), "vehicle could not be saved")

	repairs.AssertExpectations(t)
}

func TestAdminCreateUserWithoutVehicle(t *testing.T) {
	users := new(mockService)
	users.On("CreateUser", "new@example.com").Return(&user.User{ID: "uid"}, nil)
	repairs := new(mockRepairs)

	router := adminRouter(handlers.NewAdminHandler(users, new(mockProfiles), repairs, logger))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(http.MethodPost, "/api/admin/users", `{"email":"new@example.com","password":"secret1"}`))

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.NotContains(t, rr.Body.String(), "vehicleId")
	repairs.AssertNotCalled(t, "AddVehicle", mock.Anything, mock.Anything)
}

func TestAdminClientDetails(t *testing.T) {
	repairs := new(mockRepairs)
	repairs.On("ClientDetails", "c1").Return(&repair.ClientDetails{
		Profile:  &profile.Profile{ID: "c1", Username: "ivan", Role: role.Client},
		Vehicles: []*repair.Vehicle{{ID: "v1", Make: "Lada"}},
		Repairs:  []*repair.Repair{{ID: "r1", Status: repair.Completed}},
	}, nil)
	repairs.On("ClientDetails", "ghost").Return(nil, repair.ErrClientNotFound)
	repairs.On("ClientDetails", "broken").Return(nil, errors.New("db down"))

	router := adminRouter(handlers.NewAdminHandler(new(mockService), new(mockProfiles), repairs, logger))

	tests := []struct {
		id     string
		status int
		want   string
	}{
		{"c1", http.StatusOK, `"make":"Lada"`},
		{"ghost", http.StatusNotFound, "client not found"},
		{"broken", http.StatusInternalServerError, "internal error"},
	}

	for _, test := range tests {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/clients/"+test.id, nil))
		assert.Equal(t, test.status, rr.Code, test.id)
		assert.Contains(t, rr.Body.String(), test.want)
	}
}

func TestAdminUpdateClient(t *testing.T) {
	details := profile.DetailsForm{FirstName: "Anna", Phone: "+7 (900) 000-00-00"}

	users := new(mockService)
	users.On("UpdateClient", "c1", profile.ClientForm{DetailsForm: details, Role: "admin"}).
		Return(&profile.Profile{ID: "c1", FirstName: "Anna", Role: role.Admin}, nil)
	users.On("UpdateClient", "ghost", profile.ClientForm{DetailsForm: details}).Return(nil, profile.ErrNotFound)

	router := adminRouter(handlers.NewAdminHandler(users, new(mockProfiles), new(mockRepairs), logger))

	tests := []struct {
		name   string
		id     string
		body   string
		status int
		want   string
	}{
		{"updated", "c1", `{"firstName":"Anna","phone":"+7 (900) 000-00-00","role":"admin"}`, http.StatusOK, `"role":"admin"`},
		{"unknown client", "ghost", `{"firstName":"Anna","phone":"+7 (900) 000-00-00"}`, http.StatusNotFound, "client not found"},
		{"unknown role", "c1", `{"firstName":"Anna","role":"owner"}`, http.StatusUnprocessableEntity, "must be one of"},
		{"bad phone", "c1", `{"firstName":"Anna","phone":"call me"}`, http.StatusUnprocessableEntity, "valid phone number"},
		{"missing first name", "c1", `{"lastName":"Smirnova"}`, http.StatusUnprocessableEntity, `"param":"firstName"`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, jsonRequest(http.MethodPut, "/api/admin/clients/"+test.id, test.body))
			assert.Equal(t, test.status, rr.Code)
			assert.Contains(t, rr.Body.String(), test.want)
		})
	}
}

func TestAdminAuthStatus(t *testing.T) {
	users := new(mockService)
	users.On("AuthStatus", "uid").Return(true, nil)
	users.On("AuthStatus", "ghost").Return(false, user.ErrNotFound)

	router := adminRouter(handlers.NewAdminHandler(users, new(mockProfiles), new(mockRepairs), logger))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/users/uid/auth-status", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"emailConfirmed":true}`, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/users/ghost/auth-status", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminListings(t *testing.T) {
	profiles := new(mockProfiles)
	profiles.On("List", role.Client).Return([]*profile.Profile{{ID: "c1", Username: "ivan", Role: role.Client}}, nil)

	repairs := new(mockRepairs)
	repairs.On("All").Return([]*repair.Repair{{ID: "r1", Status: repair.Pending}}, nil)
	repairs.On("Stats").Return(&repair.Stats{Clients: 1, Vehicles: 2, Repairs: map[repair.Status]int64{repair.Pending: 1}}, nil)

	router := adminRouter(handlers.NewAdminHandler(new(mockService), profiles, repairs, logger))

	tests := []struct {
		path string
		want string
	}{
		{"/api/admin/clients", `"username":"ivan"`},
		{"/api/admin/repairs", `"status":"Pending"`},
		{"/api/admin/stats", `"vehicles":2`},
	}

	for _, test := range tests {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, test.path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, test.path)
		assert.Contains(t, rr.Body.String(), test.want)
	}

	repairs.AssertExpectations(t)
}

func TestAdminCreateRepair(t *testing.T) {
	repairs := new(mockRepairs)
	repairs.On("Create", clientID, "Oil change").Return(&repair.Repair{ID: "r1", ClientID: clientID, Status: repair.Pending}, nil)
	repairs.On("Create", clientID, "Wrong car").Return(nil, repair.ErrVehicleMismatch)
	repairs.On("Create", "7c1f0d7e-3b8a-4e8f-8a55-0f3b9c2d1e00", "Oil change").Return(nil, repair.ErrClientNotFound)

	router := adminRouter(handlers.NewAdminHandler(new(mockService), new(mockProfiles), repairs, logger))

	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"created", `{"clientId":"` + clientID + `","description":"Oil change"}`, http.StatusCreated, `"id":"r1"`},
		{"vehicle mismatch", `{"clientId":"` + clientID + `","description":"Wrong car"}`, http.StatusUnprocessableEntity, "does not belong"},
		{"unknown client", `{"clientId":"7c1f0d7e-3b8a-4e8f-8a55-0f3b9c2d1e00","description":"Oil change"}`, http.StatusNotFound, "client not found"},
		{"short description", `{"clientId":"` + clientID + `","description":"oil"}`, http.StatusUnprocessableEntity, `"param":"description"`},
		{"bad client id", `{"clientId":"nope","description":"Oil change"}`, http.StatusUnprocessableEntity, "must be a valid id"},
		{"bad status", `{"clientId":"` + clientID + `","description":"Oil change","status":"Lost"}`, http.StatusUnprocessableEntity, "must be one of"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, jsonRequest(http.MethodPost, "/api/admin/repairs", test.body))
			assert.Equal(t, test.status, rr.Code)
			assert.Contains(t, rr.Body.String(), test.want)
		})
	}
}

func TestAdminUpdateRepairStatus(t *testing.T) {
	repairs := new(mockRepairs)
	repairs.On("UpdateStatus", "r1", repair.InProgress).Return(&repair.Repair{ID: "r1", Status: repair.InProgress}, nil)
	repairs.On("UpdateStatus", "bad", repair.Completed).Return(nil, repair.ErrInvalidID)
	repairs.On("UpdateStatus", "gone", repair.Completed).Return(nil, repair.ErrNotFound)

	router := adminRouter(handlers.NewAdminHandler(new(mockService), new(mockProfiles), repairs, logger))

	tests := []struct {
		id     string
		body   string
		status int
		want   string
	}{
		{"r1", `{"status":"In Progress"}`, http.StatusOK, `"status":"In Progress"`},
		{"bad", `{"status":"Completed"}`, http.StatusBadRequest, "invalid repair id"},
		{"gone", `{"status":"Completed"}`, http.StatusNotFound, "repair not found"},
		{"r1", `{"status":"Archived"}`, http.StatusUnprocessableEntity, "must be one of"},
	}

	for _, test := range tests {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, jsonRequest(http.MethodPut, "/api/admin/repairs/"+test.id+"/status", test.body))
		assert.Equal(t, test.status, rr.Code, test.body)
		assert.Contains(t, rr.Body.String(), test.want)
	}
}
