package fleet

import (
	"context"
	"time"

	"fleetcore.org/internal/auth"
)

// Every read and write on an office-partitioned table takes the caller's
// scope and intersects it with its own filters. Repositories never decide
// scoping policy themselves; they only apply the predicate they are handed.

// VehicleStore manages the vehicles table.
type VehicleStore interface {
	List(ctx context.Context, scope auth.Scope) ([]Vehicle, error)
	Get(ctx context.Context, scope auth.Scope, id int64) (Vehicle, error)
	Create(ctx context.Context, v Vehicle) (Vehicle, error)
	Update(ctx context.Context, scope auth.Scope, v Vehicle) error
	Delete(ctx context.Context, scope auth.Scope, id int64) error
	// UpdateMileage is the separate, independently-failing statement that
	// follows a fuel log write.
	UpdateMileage(ctx context.Context, scope auth.Scope, id, mileage int64) error
	// ListByCategory returns a category's vehicles within scope, all
	// statuses included so callers can break the list down by status.
	ListByCategory(ctx context.Context, scope auth.Scope, categoryID int64) ([]Vehicle, error)
}

// FuelLogStore manages fuel_logs. Rows scope to an office through their
// vehicle; callers resolve the vehicle within scope before writing.
type FuelLogStore interface {
	List(ctx context.Context, scope auth.Scope) ([]FuelLog, error)
	Get(ctx context.Context, scope auth.Scope, id int64) (FuelLog, error)
	Create(ctx context.Context, log FuelLog) (FuelLog, error)
	Update(ctx context.Context, scope auth.Scope, log FuelLog) error
	Delete(ctx context.Context, scope auth.Scope, id int64) error
}

// MaintenanceStore manages vehicle_maintenance.
type MaintenanceStore interface {
	List(ctx context.Context, scope auth.Scope) ([]MaintenanceRecord, error)
	Create(ctx context.Context, rec MaintenanceRecord) (MaintenanceRecord, error)
	Update(ctx context.Context, scope auth.Scope, rec MaintenanceRecord) error
	Delete(ctx context.Context, scope auth.Scope, id int64) error
}

// EmployeeStore manages employees.
type EmployeeStore interface {
	List(ctx context.Context, scope auth.Scope) ([]Employee, error)
	Create(ctx context.Context, e Employee) (Employee, error)
	Update(ctx context.Context, scope auth.Scope, e Employee) error
	Delete(ctx context.Context, scope auth.Scope, id int64) error
}

// DepartmentStore manages departments.
type DepartmentStore interface {
	List(ctx context.Context, scope auth.Scope) ([]Department, error)
	Create(ctx context.Context, d Department) (Department, error)
	Update(ctx context.Context, scope auth.Scope, d Department) error
	Delete(ctx context.Context, scope auth.Scope, id int64) error
}

// UserUpdate carries partial user edits; nil fields are left untouched.
type UserUpdate struct {
	Username *string
	Email    *string
	FullName *string
	Password *string // already hashed by the service
	RoleID   *int64
	OfficeID *int64
}

// UserStore manages staff accounts. The user directory itself is not
// office-partitioned; access is gated on the users_* permission keys.
type UserStore interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, u User) (User, error)
	Update(ctx context.Context, id int64, upd UserUpdate) error
	SetStatus(ctx context.Context, id int64, status string) error
	Delete(ctx context.Context, id int64) error
}

// LookupStore serves the reference tables admin forms need.
type LookupStore interface {
	Offices(ctx context.Context) ([]Office, error)
	Roles(ctx context.Context) ([]Role, error)
	Categories(ctx context.Context) ([]VehicleCategory, error)
	Category(ctx context.Context, id int64) (VehicleCategory, error)
}

// ReportStore runs the report and dashboard queries. Each takes the scope
// explicitly so ad-hoc filters can never displace the office restriction.
type ReportStore interface {
	FuelLogsForReport(ctx context.Context, scope auth.Scope, filter ReportFilter) ([]FuelLog, error)
	ActiveVehicleCount(ctx context.Context, scope auth.Scope) (int, error)
	MonthFuelTotals(ctx context.Context, scope auth.Scope, month time.Time) (cost, volume float64, err error)
	RecentFuelLogs(ctx context.Context, scope auth.Scope, limit int) ([]FuelLog, error)
	VehiclesByCategory(ctx context.Context, scope auth.Scope) ([]CategoryCount, error)
}
