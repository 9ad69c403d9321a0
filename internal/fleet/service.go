package fleet

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"fleetcore.org/internal/auth"
)

// Service validates inputs and applies cross-entity rules before touching
// any store. A validation failure never reaches the database.
type Service struct {
	vehicles    VehicleStore
	fuelLogs    FuelLogStore
	maintenance MaintenanceStore
	employees   EmployeeStore
	departments DepartmentStore
	users       UserStore
	lookups     LookupStore
	reports     ReportStore
	now         func() time.Time
}

// Stores bundles the repositories the service delegates to.
type Stores struct {
	Vehicles    VehicleStore
	FuelLogs    FuelLogStore
	Maintenance MaintenanceStore
	Employees   EmployeeStore
	Departments DepartmentStore
	Users       UserStore
	Lookups     LookupStore
	Reports     ReportStore
}

// NewService constructs the domain service.
func NewService(st Stores) *Service {
	return &Service{
		vehicles:    st.Vehicles,
		fuelLogs:    st.FuelLogs,
		maintenance: st.Maintenance,
		employees:   st.Employees,
		departments: st.Departments,
		users:       st.Users,
		lookups:     st.Lookups,
		reports:     st.Reports,
		now:         time.Now,
	}
}

// WithClock overrides the time source (useful for tests).
func (s *Service) WithClock(fn func() time.Time) *Service {
	if fn != nil {
		s.now = fn
	}
	return s
}

// assignOffice pins a row to the caller's office. All-offices callers must
// name a target office explicitly; everyone else writes into their own
// office regardless of what the request claimed.
func assignOffice(scope auth.Scope, requested int64) (int64, error) {
	if scope.All {
		if requested <= 0 {
			return 0, fmt.Errorf("%w: office_id is required", ErrInvalidInput)
		}
		return requested, nil
	}
	return scope.OfficeID, nil
}

// --- Vehicles ---

func (s *Service) ListVehicles(ctx context.Context, scope auth.Scope) ([]Vehicle, error) {
	return s.vehicles.List(ctx, scope)
}

func (s *Service) GetVehicle(ctx context.Context, scope auth.Scope, id int64) (Vehicle, error) {
	if id <= 0 {
		return Vehicle{}, fmt.Errorf("%w: vehicle id is required", ErrInvalidInput)
	}
	return s.vehicles.Get(ctx, scope, id)
}

func validateVehicle(v *Vehicle) error {
	v.RegistrationNumber = strings.TrimSpace(v.RegistrationNumber)
	v.Make = strings.TrimSpace(v.Make)
	v.Model = strings.TrimSpace(v.Model)
	v.Department = strings.TrimSpace(v.Department)
	if v.RegistrationNumber == "" || v.Make == "" || v.Model == "" {
		return fmt.Errorf("%w: registration number, make and model are required", ErrInvalidInput)
	}
	if v.Year < 1900 || v.Year > 2100 {
		return fmt.Errorf("%w: year is out of range", ErrInvalidInput)
	}
	if v.CategoryID <= 0 {
		return fmt.Errorf("%w: category_id is required", ErrInvalidInput)
	}
	if v.CurrentMileage < 0 {
		return fmt.Errorf("%w: mileage cannot be negative", ErrInvalidInput)
	}
	return nil
}

func (s *Service) CreateVehicle(ctx context.Context, scope auth.Scope, v Vehicle) (Vehicle, error) {
	if err := validateVehicle(&v); err != nil {
		return Vehicle{}, err
	}
	officeID, err := assignOffice(scope, v.OfficeID)
	if err != nil {
		return Vehicle{}, err
	}
	v.OfficeID = officeID
	if v.Status == "" {
		v.Status = StatusActive
	}
	return s.vehicles.Create(ctx, v)
}

func (s *Service) UpdateVehicle(ctx context.Context, scope auth.Scope, v Vehicle) error {
	if v.ID <= 0 {
		return fmt.Errorf("%w: vehicle id is required", ErrInvalidInput)
	}
	if err := validateVehicle(&v); err != nil {
		return err
	}
	return s.vehicles.Update(ctx, scope, v)
}

func (s *Service) DeleteVehicle(ctx context.Context, scope auth.Scope, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: vehicle id is required", ErrInvalidInput)
	}
	return s.vehicles.Delete(ctx, scope, id)
}

// --- Fuel logs ---

func (s *Service) ListFuelLogs(ctx context.Context, scope auth.Scope) ([]FuelLog, error) {
	return s.fuelLogs.List(ctx, scope)
}

func (s *Service) GetFuelLog(ctx context.Context, scope auth.Scope, id int64) (FuelLog, error) {
	if id <= 0 {
		return FuelLog{}, fmt.Errorf("%w: log id is required", ErrInvalidInput)
	}
	return s.fuelLogs.Get(ctx, scope, id)
}

func validateFuelLog(log *FuelLog) error {
	log.Notes = strings.TrimSpace(log.Notes)
	if log.VehicleID <= 0 {
		return fmt.Errorf("%w: vehicle_id is required", ErrInvalidInput)
	}
	if log.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	if log.Mileage < 0 {
		return fmt.Errorf("%w: mileage cannot be negative", ErrInvalidInput)
	}
	if log.FuelQuantity <= 0 {
		return fmt.Errorf("%w: fuel quantity must be positive", ErrInvalidInput)
	}
	if log.Cost < 0 {
		return fmt.Errorf("%w: cost cannot be negative", ErrInvalidInput)
	}
	return nil
}

// CreateFuelLog records a fill-up and then advances the vehicle's odometer.
// The two writes are separate statements that fail independently; a mileage
// update failure does not roll the log back.
func (s *Service) CreateFuelLog(ctx context.Context, scope auth.Scope, log FuelLog) (FuelLog, error) {
	if err := validateFuelLog(&log); err != nil {
		return FuelLog{}, err
	}
	if _, err := s.vehicles.Get(ctx, scope, log.VehicleID); err != nil {
		return FuelLog{}, err
	}
	created, err := s.fuelLogs.Create(ctx, log)
	if err != nil {
		return FuelLog{}, err
	}
	if err := s.vehicles.UpdateMileage(ctx, scope, log.VehicleID, log.Mileage); err != nil {
		return created, fmt.Errorf("fuel log saved but mileage update failed: %w", err)
	}
	return created, nil
}

func (s *Service) UpdateFuelLog(ctx context.Context, scope auth.Scope, log FuelLog) error {
	if log.ID <= 0 {
		return fmt.Errorf("%w: log id is required", ErrInvalidInput)
	}
	if err := validateFuelLog(&log); err != nil {
		return err
	}
	if _, err := s.vehicles.Get(ctx, scope, log.VehicleID); err != nil {
		return err
	}
	if err := s.fuelLogs.Update(ctx, scope, log); err != nil {
		return err
	}
	if err := s.vehicles.UpdateMileage(ctx, scope, log.VehicleID, log.Mileage); err != nil {
		return fmt.Errorf("fuel log saved but mileage update failed: %w", err)
	}
	return nil
}

func (s *Service) DeleteFuelLog(ctx context.Context, scope auth.Scope, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: log id is required", ErrInvalidInput)
	}
	return s.fuelLogs.Delete(ctx, scope, id)
}

// --- Maintenance ---

func (s *Service) ListMaintenance(ctx context.Context, scope auth.Scope) ([]MaintenanceRecord, error) {
	return s.maintenance.List(ctx, scope)
}

func validateMaintenance(rec *MaintenanceRecord) error {
	rec.MaintenanceType = strings.TrimSpace(rec.MaintenanceType)
	rec.Description = strings.TrimSpace(rec.Description)
	rec.MechanicName = strings.TrimSpace(rec.MechanicName)
	rec.Notes = strings.TrimSpace(rec.Notes)
	if rec.VehicleID <= 0 {
		return fmt.Errorf("%w: vehicle_id is required", ErrInvalidInput)
	}
	if rec.MaintenanceType == "" {
		return fmt.Errorf("%w: maintenance type is required", ErrInvalidInput)
	}
	if rec.MaintenanceDate.IsZero() {
		return fmt.Errorf("%w: maintenance date is required", ErrInvalidInput)
	}
	if rec.Cost < 0 {
		return fmt.Errorf("%w: cost cannot be negative", ErrInvalidInput)
	}
	if rec.MileageAtMaintenance < 0 {
		return fmt.Errorf("%w: mileage cannot be negative", ErrInvalidInput)
	}
	return nil
}

func (s *Service) CreateMaintenance(ctx context.Context, scope auth.Scope, actorID int64, rec MaintenanceRecord) (MaintenanceRecord, error) {
	if err := validateMaintenance(&rec); err != nil {
		return MaintenanceRecord{}, err
	}
	vehicle, err := s.vehicles.Get(ctx, scope, rec.VehicleID)
	if err != nil {
		return MaintenanceRecord{}, err
	}
	rec.OfficeID = vehicle.OfficeID
	rec.CreatedBy = actorID
	return s.maintenance.Create(ctx, rec)
}

func (s *Service) UpdateMaintenance(ctx context.Context, scope auth.Scope, rec MaintenanceRecord) error {
	if rec.ID <= 0 {
		return fmt.Errorf("%w: record id is required", ErrInvalidInput)
	}
	if err := validateMaintenance(&rec); err != nil {
		return err
	}
	return s.maintenance.Update(ctx, scope, rec)
}

func (s *Service) DeleteMaintenance(ctx context.Context, scope auth.Scope, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: record id is required", ErrInvalidInput)
	}
	return s.maintenance.Delete(ctx, scope, id)
}

// --- Employees ---

func (s *Service) ListEmployees(ctx context.Context, scope auth.Scope) ([]Employee, error) {
	return s.employees.List(ctx, scope)
}

func (s *Service) CreateEmployee(ctx context.Context, scope auth.Scope, e Employee) (Employee, error) {
	e.Name = strings.TrimSpace(e.Name)
	e.Email = strings.TrimSpace(strings.ToLower(e.Email))
	e.Phone = strings.TrimSpace(e.Phone)
	e.Department = strings.TrimSpace(e.Department)
	if e.Name == "" {
		return Employee{}, fmt.Errorf("%w: employee name is required", ErrInvalidInput)
	}
	officeID, err := assignOffice(scope, e.OfficeID)
	if err != nil {
		return Employee{}, err
	}
	e.OfficeID = officeID
	return s.employees.Create(ctx, e)
}

func (s *Service) UpdateEmployee(ctx context.Context, scope auth.Scope, e Employee) error {
	if e.ID <= 0 {
		return fmt.Errorf("%w: employee id is required", ErrInvalidInput)
	}
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return fmt.Errorf("%w: employee name is required", ErrInvalidInput)
	}
	return s.employees.Update(ctx, scope, e)
}

func (s *Service) DeleteEmployee(ctx context.Context, scope auth.Scope, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: employee id is required", ErrInvalidInput)
	}
	return s.employees.Delete(ctx, scope, id)
}

// --- Departments ---

func (s *Service) ListDepartments(ctx context.Context, scope auth.Scope) ([]Department, error) {
	return s.departments.List(ctx, scope)
}

func (s *Service) CreateDepartment(ctx context.Context, scope auth.Scope, d Department) (Department, error) {
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)
	if d.Name == "" {
		return Department{}, fmt.Errorf("%w: department name is required", ErrInvalidInput)
	}
	officeID, err := assignOffice(scope, d.OfficeID)
	if err != nil {
		return Department{}, err
	}
	d.OfficeID = officeID
	return s.departments.Create(ctx, d)
}

func (s *Service) UpdateDepartment(ctx context.Context, scope auth.Scope, d Department) error {
	if d.ID <= 0 {
		return fmt.Errorf("%w: department id is required", ErrInvalidInput)
	}
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return fmt.Errorf("%w: department name is required", ErrInvalidInput)
	}
	return s.departments.Update(ctx, scope, d)
}

func (s *Service) DeleteDepartment(ctx context.Context, scope auth.Scope, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: department id is required", ErrInvalidInput)
	}
	return s.departments.Delete(ctx, scope, id)
}

// --- Users ---

func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.users.List(ctx)
}

func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	if id <= 0 {
		return User{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.users.Get(ctx, id)
}

func (s *Service) CreateUser(ctx context.Context, u User, password string) (User, error) {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	u.FullName = strings.TrimSpace(u.FullName)
	if u.Username == "" || u.FullName == "" {
		return User{}, fmt.Errorf("%w: username and full name are required", ErrInvalidInput)
	}
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		return User{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(password) == "" {
		return User{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if u.RoleID <= 0 || u.OfficeID <= 0 {
		return User{}, fmt.Errorf("%w: role_id and office_id are required", ErrInvalidInput)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, err
	}
	u.PasswordHash = hash
	if u.Status == "" {
		u.Status = StatusActive
	}
	return s.users.Create(ctx, u)
}

func (s *Service) UpdateUser(ctx context.Context, targetID int64, upd UserUpdate) error {
	if targetID <= 0 {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if upd.Username != nil {
		trimmed := strings.TrimSpace(*upd.Username)
		if trimmed == "" {
			return fmt.Errorf("%w: username is required", ErrInvalidInput)
		}
		upd.Username = &trimmed
	}
	if upd.Email != nil {
		trimmed := strings.TrimSpace(strings.ToLower(*upd.Email))
		if trimmed == "" || !strings.Contains(trimmed, "@") {
			return fmt.Errorf("%w: valid email is required", ErrInvalidInput)
		}
		upd.Email = &trimmed
	}
	if upd.FullName != nil {
		trimmed := strings.TrimSpace(*upd.FullName)
		if trimmed == "" {
			return fmt.Errorf("%w: full name is required", ErrInvalidInput)
		}
		upd.FullName = &trimmed
	}
	if upd.Password != nil {
		pw := strings.TrimSpace(*upd.Password)
		if pw == "" {
			return fmt.Errorf("%w: password is required", ErrInvalidInput)
		}
		hash, err := auth.HashPassword(pw)
		if err != nil {
			return err
		}
		upd.Password = &hash
	}
	return s.users.Update(ctx, targetID, upd)
}

// SetUserStatus toggles an account between active and inactive. A user can
// never deactivate their own account.
func (s *Service) SetUserStatus(ctx context.Context, actorID, targetID int64, status string) error {
	if targetID <= 0 {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	status = strings.TrimSpace(strings.ToLower(status))
	if status != StatusActive && status != StatusInactive {
		return fmt.Errorf("%w: unsupported status %s", ErrInvalidInput, status)
	}
	if targetID == actorID && status == StatusInactive {
		return ErrSelfAction
	}
	return s.users.SetStatus(ctx, targetID, status)
}

// DeleteUser removes an account. A user can never delete their own.
func (s *Service) DeleteUser(ctx context.Context, actorID, targetID int64) error {
	if targetID <= 0 {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if targetID == actorID {
		return ErrSelfAction
	}
	return s.users.Delete(ctx, targetID)
}

// --- Lookups ---

func (s *Service) Offices(ctx context.Context) ([]Office, error) {
	return s.lookups.Offices(ctx)
}

func (s *Service) Roles(ctx context.Context) ([]Role, error) {
	return s.lookups.Roles(ctx)
}

func (s *Service) Categories(ctx context.Context) ([]VehicleCategory, error) {
	return s.lookups.Categories(ctx)
}

// VehiclesInCategory serves the category detail page: every vehicle of one
// category within scope together with counts by status.
func (s *Service) VehiclesInCategory(ctx context.Context, scope auth.Scope, categoryID int64) (CategoryVehicles, error) {
	if categoryID <= 0 {
		return CategoryVehicles{}, fmt.Errorf("%w: category id is required", ErrInvalidInput)
	}
	category, err := s.lookups.Category(ctx, categoryID)
	if err != nil {
		return CategoryVehicles{}, err
	}
	vehicles, err := s.vehicles.ListByCategory(ctx, scope, categoryID)
	if err != nil {
		return CategoryVehicles{}, err
	}
	counts := make(map[string]int, 2)
	for _, v := range vehicles {
		counts[v.Status]++
	}
	return CategoryVehicles{
		Category:     category,
		Vehicles:     vehicles,
		StatusCounts: counts,
		Total:        len(vehicles),
	}, nil
}

// --- Reports ---

// FuelReport runs the filtered office-scoped query and derives the
// aggregates in memory, the same shape the original report produced.
func (s *Service) FuelReport(ctx context.Context, scope auth.Scope, filter ReportFilter) (FuelReport, error) {
	now := s.now()
	if filter.Start.IsZero() {
		filter.Start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}
	if filter.End.IsZero() {
		filter.End = now
	}
	if filter.End.Before(filter.Start) {
		return FuelReport{}, fmt.Errorf("%w: end date precedes start date", ErrInvalidInput)
	}
	if !scope.All {
		// Office filter is a super-admin convenience only; everyone else is
		// already pinned by the scope.
		filter.OfficeID = 0
	}
	logs, err := s.reports.FuelLogsForReport(ctx, scope, filter)
	if err != nil {
		return FuelReport{}, err
	}
	report := FuelReport{Logs: logs, TotalLogs: len(logs)}

	type window struct {
		stat       VehicleFuelStat
		minMileage int64
		maxMileage int64
	}
	perVehicle := map[int64]*window{}
	for _, log := range logs {
		report.TotalCost += log.Cost
		report.TotalFuel += log.FuelQuantity
		w, ok := perVehicle[log.VehicleID]
		if !ok {
			w = &window{
				stat: VehicleFuelStat{
					VehicleID: log.VehicleID,
					Vehicle:   fmt.Sprintf("%s - %s %s", log.RegistrationNumber, log.Make, log.Model),
					Category:  log.CategoryName,
					Office:    log.OfficeName,
				},
				minMileage: log.Mileage,
				maxMileage: log.Mileage,
			}
			perVehicle[log.VehicleID] = w
		}
		w.stat.LogCount++
		w.stat.TotalCost += log.Cost
		w.stat.TotalFuel += log.FuelQuantity
		if log.Mileage < w.minMileage {
			w.minMileage = log.Mileage
		}
		if log.Mileage > w.maxMileage {
			w.maxMileage = log.Mileage
		}
	}
	for _, w := range perVehicle {
		w.stat.Distance = w.maxMileage - w.minMileage
		w.stat.Efficiency = ratio(float64(w.stat.Distance), w.stat.TotalFuel)
		report.TotalDistance += w.stat.Distance
		report.PerVehicle = append(report.PerVehicle, w.stat)
	}
	sort.Slice(report.PerVehicle, func(i, j int) bool {
		return report.PerVehicle[i].Vehicle < report.PerVehicle[j].Vehicle
	})
	report.TotalVehicles = len(report.PerVehicle)
	// Fleet-wide efficiency is the aggregate ratio, not a mean of the
	// per-vehicle averages.
	report.Efficiency = ratio(float64(report.TotalDistance), report.TotalFuel)
	return report, nil
}

// Dashboard assembles the landing-page statistics for one scope.
func (s *Service) Dashboard(ctx context.Context, scope auth.Scope) (DashboardStats, error) {
	stats := DashboardStats{}
	count, err := s.reports.ActiveVehicleCount(ctx, scope)
	if err != nil {
		return DashboardStats{}, err
	}
	stats.ActiveVehicles = count

	cost, volume, err := s.reports.MonthFuelTotals(ctx, scope, s.now())
	if err != nil {
		return DashboardStats{}, err
	}
	stats.MonthFuelCost = cost
	stats.MonthFuelVolume = volume

	recent, err := s.reports.RecentFuelLogs(ctx, scope, 5)
	if err != nil {
		return DashboardStats{}, err
	}
	stats.RecentLogs = recent

	byCategory, err := s.reports.VehiclesByCategory(ctx, scope)
	if err != nil {
		return DashboardStats{}, err
	}
	stats.ByCategory = byCategory
	return stats, nil
}

// ratio divides distance by fuel, rounded to two decimals, zero when the
// denominator is zero.
func ratio(distance, fuel float64) float64 {
	if fuel <= 0 {
		return 0
	}
	return math.Round(distance/fuel*100) / 100
}
