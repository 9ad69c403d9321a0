package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"fleetcore.org/internal/auth"
	"fleetcore.org/internal/fleet"
)

// stubDirectory is an in-memory identity store. The record is mutable so
// tests can edit the role payload after login and observe what a session
// snapshot versus a bearer token does with the change.
type stubDirectory struct {
	mu  sync.Mutex
	rec auth.UserRecord
}

func (s *stubDirectory) get() auth.UserRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec
}

func (s *stubDirectory) setPermissions(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec.RawPermissions = []byte(raw)
}

func (s *stubDirectory) FindActiveUserByUsername(_ context.Context, username string) (auth.UserRecord, error) {
	rec := s.get()
	if username != rec.Username || rec.Status != "active" {
		return auth.UserRecord{}, errors.New("no such user")
	}
	return rec, nil
}

func (s *stubDirectory) FindUserByID(_ context.Context, id int64) (auth.UserRecord, error) {
	rec := s.get()
	if id != rec.ID {
		return auth.UserRecord{}, errors.New("no such user")
	}
	return rec, nil
}

func (s *stubDirectory) StampLastLogin(context.Context, int64, time.Time) error { return nil }

type stubVehicles struct {
	listFn           func(context.Context, auth.Scope) ([]fleet.Vehicle, error)
	createFn         func(context.Context, fleet.Vehicle) (fleet.Vehicle, error)
	listByCategoryFn func(context.Context, auth.Scope, int64) ([]fleet.Vehicle, error)
}

func (s *stubVehicles) List(ctx context.Context, scope auth.Scope) ([]fleet.Vehicle, error) {
	if s.listFn != nil {
		return s.listFn(ctx, scope)
	}
	return nil, nil
}

func (s *stubVehicles) Get(_ context.Context, scope auth.Scope, id int64) (fleet.Vehicle, error) {
	return fleet.Vehicle{ID: id, OfficeID: scope.OfficeID, Status: fleet.StatusActive}, nil
}

func (s *stubVehicles) Create(ctx context.Context, v fleet.Vehicle) (fleet.Vehicle, error) {
	if s.createFn != nil {
		return s.createFn(ctx, v)
	}
	v.ID = 1
	return v, nil
}

func (s *stubVehicles) Update(context.Context, auth.Scope, fleet.Vehicle) error { return nil }
func (s *stubVehicles) Delete(context.Context, auth.Scope, int64) error        { return nil }
func (s *stubVehicles) UpdateMileage(context.Context, auth.Scope, int64, int64) error {
	return nil
}

func (s *stubVehicles) ListByCategory(ctx context.Context, scope auth.Scope, categoryID int64) ([]fleet.Vehicle, error) {
	if s.listByCategoryFn != nil {
		return s.listByCategoryFn(ctx, scope, categoryID)
	}
	return nil, nil
}

type stubFuelLogs struct {
	createFn func(context.Context, fleet.FuelLog) (fleet.FuelLog, error)
}

func (s *stubFuelLogs) List(context.Context, auth.Scope) ([]fleet.FuelLog, error) {
	return nil, nil
}

func (s *stubFuelLogs) Get(_ context.Context, _ auth.Scope, id int64) (fleet.FuelLog, error) {
	return fleet.FuelLog{ID: id}, nil
}

func (s *stubFuelLogs) Create(ctx context.Context, log fleet.FuelLog) (fleet.FuelLog, error) {
	if s.createFn != nil {
		return s.createFn(ctx, log)
	}
	log.ID = 1
	return log, nil
}

func (s *stubFuelLogs) Update(context.Context, auth.Scope, fleet.FuelLog) error { return nil }
func (s *stubFuelLogs) Delete(context.Context, auth.Scope, int64) error         { return nil }

type stubMaintenance struct{}

func (stubMaintenance) List(context.Context, auth.Scope) ([]fleet.MaintenanceRecord, error) {
	return nil, nil
}

func (stubMaintenance) Create(_ context.Context, rec fleet.MaintenanceRecord) (fleet.MaintenanceRecord, error) {
	rec.ID = 1
	return rec, nil
}

func (stubMaintenance) Update(context.Context, auth.Scope, fleet.MaintenanceRecord) error {
	return nil
}
func (stubMaintenance) Delete(context.Context, auth.Scope, int64) error { return nil }

type stubEmployees struct{}

func (stubEmployees) List(context.Context, auth.Scope) ([]fleet.Employee, error) { return nil, nil }
func (stubEmployees) Create(_ context.Context, e fleet.Employee) (fleet.Employee, error) {
	e.ID = 1
	return e, nil
}
func (stubEmployees) Update(context.Context, auth.Scope, fleet.Employee) error { return nil }
func (stubEmployees) Delete(context.Context, auth.Scope, int64) error          { return nil }

type stubDepartments struct{}

func (stubDepartments) List(context.Context, auth.Scope) ([]fleet.Department, error) {
	return nil, nil
}
func (stubDepartments) Create(_ context.Context, d fleet.Department) (fleet.Department, error) {
	d.ID = 1
	return d, nil
}
func (stubDepartments) Update(context.Context, auth.Scope, fleet.Department) error { return nil }
func (stubDepartments) Delete(context.Context, auth.Scope, int64) error            { return nil }

type stubUsers struct {
	deleteFn func(context.Context, int64) error
}

func (s *stubUsers) List(context.Context) ([]fleet.User, error) { return nil, nil }
func (s *stubUsers) Get(_ context.Context, id int64) (fleet.User, error) {
	return fleet.User{ID: id}, nil
}
func (s *stubUsers) Create(_ context.Context, u fleet.User) (fleet.User, error) {
	u.ID = 99
	return u, nil
}
func (s *stubUsers) Update(context.Context, int64, fleet.UserUpdate) error { return nil }
func (s *stubUsers) SetStatus(context.Context, int64, string) error        { return nil }
func (s *stubUsers) Delete(ctx context.Context, id int64) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

type stubLookups struct{}

func (stubLookups) Offices(context.Context) ([]fleet.Office, error) { return nil, nil }
func (stubLookups) Roles(context.Context) ([]fleet.Role, error)     { return nil, nil }
func (stubLookups) Categories(context.Context) ([]fleet.VehicleCategory, error) {
	return nil, nil
}

func (stubLookups) Category(_ context.Context, id int64) (fleet.VehicleCategory, error) {
	return fleet.VehicleCategory{ID: id, Name: "Pickup"}, nil
}

type stubReports struct{}

func (stubReports) FuelLogsForReport(context.Context, auth.Scope, fleet.ReportFilter) ([]fleet.FuelLog, error) {
	return nil, nil
}
func (stubReports) ActiveVehicleCount(context.Context, auth.Scope) (int, error) { return 0, nil }
func (stubReports) MonthFuelTotals(context.Context, auth.Scope, time.Time) (float64, float64, error) {
	return 0, 0, nil
}
func (stubReports) RecentFuelLogs(context.Context, auth.Scope, int) ([]fleet.FuelLog, error) {
	return nil, nil
}
func (stubReports) VehiclesByCategory(context.Context, auth.Scope) ([]fleet.CategoryCount, error) {
	return nil, nil
}

type env struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
	dir    *stubDirectory
}

const testPassword = "correct horse"

func defaultRecord(t *testing.T, perms string) auth.UserRecord {
	t.Helper()
	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return auth.UserRecord{
		ID:             10,
		Username:       "jdoe",
		Email:          "jdoe@example.com",
		FullName:       "Jane Doe",
		PasswordHash:   hash,
		Status:         "active",
		RoleID:         2,
		RoleName:       "Office Manager",
		RawPermissions: []byte(perms),
		OfficeID:       2,
		OfficeName:     "Regional Office",
	}
}

func fillStores(st fleet.Stores) fleet.Stores {
	if st.Vehicles == nil {
		st.Vehicles = &stubVehicles{}
	}
	if st.FuelLogs == nil {
		st.FuelLogs = &stubFuelLogs{}
	}
	if st.Maintenance == nil {
		st.Maintenance = stubMaintenance{}
	}
	if st.Employees == nil {
		st.Employees = stubEmployees{}
	}
	if st.Departments == nil {
		st.Departments = stubDepartments{}
	}
	if st.Users == nil {
		st.Users = &stubUsers{}
	}
	if st.Lookups == nil {
		st.Lookups = stubLookups{}
	}
	if st.Reports == nil {
		st.Reports = stubReports{}
	}
	return st
}

func newEnv(t *testing.T, rec auth.UserRecord, stores fleet.Stores) *env {
	t.Helper()
	dir := &stubDirectory{rec: rec}
	authSvc := auth.NewService(dir, auth.WithTokenSecret("test-secret"))
	fleetSvc := fleet.NewService(fillStores(stores))
	api := New(Config{
		Auth:          authSvc,
		Fleet:         fleetSvc,
		Version:       "test",
		SessionSecret: "0123456789abcdef0123456789abcdef",
	})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &env{t: t, srv: srv, client: client, dir: dir}
}

func (e *env) do(method, path string, body any, headers map[string]string) *http.Response {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			e.t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		e.t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		e.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (e *env) login(username, password string) *http.Response {
	e.t.Helper()
	return e.do(http.MethodPost, "/v1/login", map[string]string{
		"username": username,
		"password": password,
	}, nil)
}

func (e *env) mustLogin() {
	e.t.Helper()
	resp := e.login("jdoe", testPassword)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		e.t.Fatalf("login failed with %d", resp.StatusCode)
	}
}

func allPermsJSON(except ...string) string {
	skip := map[string]bool{}
	for _, key := range except {
		skip[key] = true
	}
	perms := map[string]bool{}
	for _, key := range auth.AllPermissions {
		if !skip[key] {
			perms[key] = true
		}
	}
	raw, _ := json.Marshal(perms)
	return string(raw)
}

func TestLoginRejectionsAreIndistinguishable(t *testing.T) {
	e := newEnv(t, defaultRecord(t, allPermsJSON()), fleet.Stores{})

	readBody := func(resp *http.Response) (int, string) {
		defer resp.Body.Close()
		var payload map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		msg, _ := payload["error"].(string)
		return resp.StatusCode, msg
	}

	unknownCode, unknownMsg := readBody(e.login("ghost", "whatever"))
	wrongCode, wrongMsg := readBody(e.login("jdoe", "not the password"))

	if unknownCode != http.StatusUnauthorized || wrongCode != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", unknownCode, wrongCode)
	}
	if unknownMsg != wrongMsg {
		t.Fatalf("rejections differ: %q vs %q", unknownMsg, wrongMsg)
	}
}

func TestUnauthenticatedResponses(t *testing.T) {
	e := newEnv(t, defaultRecord(t, allPermsJSON()), fleet.Stores{})

	resp := e.do(http.MethodGet, "/v1/vehicles", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("API client: expected 401, got %d", resp.StatusCode)
	}

	resp = e.do(http.MethodGet, "/v1/vehicles", nil, map[string]string{
		"Accept": "text/html,application/xhtml+xml",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("browser: expected 302, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/login" {
		t.Fatalf("browser redirect to %q, want /login", loc)
	}
}

func TestEveryMissingKeyIsForbidden(t *testing.T) {
	routes := map[string]struct {
		method string
		path   string
	}{
		auth.PermVehiclesView:      {http.MethodGet, "/v1/vehicles"},
		auth.PermVehiclesEdit:      {http.MethodPost, "/v1/vehicles"},
		auth.PermFuelLogsView:      {http.MethodGet, "/v1/fuel-logs"},
		auth.PermFuelLogsEdit:      {http.MethodPost, "/v1/fuel-logs"},
		auth.PermEmployeesView:     {http.MethodGet, "/v1/employees"},
		auth.PermDepartmentsView:   {http.MethodGet, "/v1/departments"},
		auth.PermReportsView:       {http.MethodGet, "/v1/reports/fuel"},
		auth.PermUsersView:         {http.MethodGet, "/v1/users"},
		auth.PermUsersEdit:         {http.MethodPost, "/v1/users"},
		auth.PermMaintenanceView:   {http.MethodGet, "/v1/maintenance"},
		auth.PermMaintenanceEdit:   {http.MethodPost, "/v1/maintenance"},
		auth.PermMaintenanceDelete: {http.MethodDelete, "/v1/maintenance/1"},
	}
	for _, key := range auth.AllPermissions {
		route, ok := routes[key]
		if !ok {
			t.Fatalf("no route mapped for permission %s", key)
		}
		t.Run(key, func(t *testing.T) {
			e := newEnv(t, defaultRecord(t, allPermsJSON(key)), fleet.Stores{})
			e.mustLogin()
			resp := e.do(route.method, route.path, nil, nil)
			resp.Body.Close()
			if resp.StatusCode != http.StatusForbidden {
				t.Fatalf("%s %s without %s: expected 403, got %d",
					route.method, route.path, key, resp.StatusCode)
			}
		})
	}
}

func TestFuelLogCreateForbiddenLeavesStoreUntouched(t *testing.T) {
	var created bool
	e := newEnv(t, defaultRecord(t, `{"fuel_logs_view": true, "fuel_logs_edit": false}`), fleet.Stores{
		FuelLogs: &stubFuelLogs{
			createFn: func(_ context.Context, log fleet.FuelLog) (fleet.FuelLog, error) {
				created = true
				return log, nil
			},
		},
	})
	e.mustLogin()

	resp := e.do(http.MethodPost, "/v1/fuel-logs", map[string]any{
		"vehicle_id":    3,
		"date":          "2025-05-01T00:00:00Z",
		"mileage":       42000,
		"fuel_quantity": 55.5,
		"cost":          120,
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if created {
		t.Fatal("fuel log row was created despite the denial")
	}
}

func TestVehicleListCarriesBoundScope(t *testing.T) {
	var seen auth.Scope
	e := newEnv(t, defaultRecord(t, allPermsJSON()), fleet.Stores{
		Vehicles: &stubVehicles{
			listFn: func(_ context.Context, scope auth.Scope) ([]fleet.Vehicle, error) {
				seen = scope
				return []fleet.Vehicle{{ID: 1, OfficeID: scope.OfficeID}}, nil
			},
		},
	})
	e.mustLogin()

	resp := e.do(http.MethodGet, "/v1/vehicles", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if seen.All || seen.OfficeID != 2 {
		t.Fatalf("expected scope pinned to office 2, got %+v", seen)
	}
}

func TestSuperAdminScopeIsUnrestricted(t *testing.T) {
	rec := defaultRecord(t, allPermsJSON())
	rec.RoleName = "Super Admin"
	var seen auth.Scope
	e := newEnv(t, rec, fleet.Stores{
		Vehicles: &stubVehicles{
			listFn: func(_ context.Context, scope auth.Scope) ([]fleet.Vehicle, error) {
				seen = scope
				return nil, nil
			},
		},
	})
	e.mustLogin()

	resp := e.do(http.MethodGet, "/v1/vehicles", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !seen.All {
		t.Fatalf("expected unrestricted scope, got %+v", seen)
	}
}

func TestSessionSnapshotSurvivesRoleEdit(t *testing.T) {
	e := newEnv(t, defaultRecord(t, allPermsJSON()), fleet.Stores{})
	e.mustLogin()

	// The role loses every permission after login. The open session keeps
	// the snapshot it materialized.
	e.dir.setPermissions(`{}`)

	resp := e.do(http.MethodGet, "/v1/vehicles", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("session snapshot lost: got %d", resp.StatusCode)
	}

	var sessionID auth.Identity
	resp = e.do(http.MethodGet, "/v1/session", nil, nil)
	if err := json.NewDecoder(resp.Body).Decode(&sessionID); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	resp.Body.Close()
	if !sessionID.Permissions[auth.PermVehiclesView] {
		t.Fatal("session permissions should match the login-time role")
	}
}

func TestBearerTokenSeesFreshPermissions(t *testing.T) {
	e := newEnv(t, defaultRecord(t, allPermsJSON()), fleet.Stores{})

	resp := e.do(http.MethodPost, "/v1/token", map[string]string{
		"username": "jdoe", "password": testPassword,
	}, nil)
	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	resp.Body.Close()
	if tok.Token == "" {
		t.Fatal("empty token")
	}
	authz := map[string]string{"Authorization": "Bearer " + tok.Token}

	resp = e.do(http.MethodGet, "/v1/vehicles", nil, authz)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with bearer token, got %d", resp.StatusCode)
	}

	// Unlike a session, the token path re-reads the directory per request.
	e.dir.setPermissions(`{}`)
	resp = e.do(http.MethodGet, "/v1/vehicles", nil, authz)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 after role edit, got %d", resp.StatusCode)
	}
}

func TestSelfDeleteForbidden(t *testing.T) {
	rec := defaultRecord(t, allPermsJSON())
	rec.RoleName = "Super Admin"
	var deleted bool
	e := newEnv(t, rec, fleet.Stores{
		Users: &stubUsers{
			deleteFn: func(context.Context, int64) error {
				deleted = true
				return nil
			},
		},
	})
	e.mustLogin()

	resp := e.do(http.MethodDelete, fmt.Sprintf("/v1/users/%d", rec.ID), nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if deleted {
		t.Fatal("own account was deleted")
	}

	resp = e.do(http.MethodDelete, "/v1/users/77", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("deleting another user: expected 204, got %d", resp.StatusCode)
	}
}

func TestUserEditRequiresAllOffices(t *testing.T) {
	// users_edit alone is not enough for edit/delete; the caller must also
	// hold the all-offices role.
	e := newEnv(t, defaultRecord(t, allPermsJSON()), fleet.Stores{})
	e.mustLogin()

	resp := e.do(http.MethodPut, "/v1/users/77", map[string]any{"full_name": "X"}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	// Status toggles stay available to office-bound admins.
	resp = e.do(http.MethodPut, "/v1/users/77/status", map[string]string{"status": "inactive"}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status toggle: expected 204, got %d", resp.StatusCode)
	}
}

func TestCategoryVehicleListing(t *testing.T) {
	e := newEnv(t, defaultRecord(t, allPermsJSON()), fleet.Stores{
		Vehicles: &stubVehicles{
			listByCategoryFn: func(_ context.Context, scope auth.Scope, categoryID int64) ([]fleet.Vehicle, error) {
				if scope.All || scope.OfficeID != 2 {
					t.Fatalf("scope not forwarded: %+v", scope)
				}
				return []fleet.Vehicle{
					{ID: 1, CategoryID: categoryID, OfficeID: 2, Status: fleet.StatusActive},
					{ID: 2, CategoryID: categoryID, OfficeID: 2, Status: fleet.StatusInactive},
				}, nil
			},
		},
	})
	e.mustLogin()

	resp := e.do(http.MethodGet, "/v1/categories/5/vehicles", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var detail fleet.CategoryVehicles
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if detail.Category.ID != 5 || detail.Total != 2 {
		t.Fatalf("unexpected detail %+v", detail)
	}
	if detail.StatusCounts[fleet.StatusActive] != 1 || detail.StatusCounts[fleet.StatusInactive] != 1 {
		t.Fatalf("status counts = %v", detail.StatusCounts)
	}
}

func TestCategoryVehicleListingNeedsVehiclesView(t *testing.T) {
	e := newEnv(t, defaultRecord(t, allPermsJSON(auth.PermVehiclesView)), fleet.Stores{})
	e.mustLogin()

	resp := e.do(http.MethodGet, "/v1/categories/5/vehicles", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestLoginRateLimit(t *testing.T) {
	e := newEnv(t, defaultRecord(t, allPermsJSON()), fleet.Stores{})

	var limited bool
	for i := 0; i < 10; i++ {
		resp := e.login("ghost", "spray")
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatal("login endpoint never rate limited")
	}
}

func TestHealthzIsPublic(t *testing.T) {
	e := newEnv(t, defaultRecord(t, allPermsJSON()), fleet.Stores{})
	resp := e.do(http.MethodGet, "/healthz", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["service"] != "fleet-api" {
		t.Fatalf("unexpected service name %v", payload["service"])
	}
}
