package fleet

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("fleet: not found")
	ErrConflict     = errors.New("fleet: resource conflict")
	ErrInvalidInput = errors.New("fleet: invalid input")
	// ErrSelfAction rejects mutations whose target is the acting user's own
	// account (self-deactivation, self-deletion).
	ErrSelfAction = errors.New("fleet: action targets own account")
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Office is the tenant boundary. Nearly every other entity carries its id.
type Office struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Role owns the permission map every session of its users snapshots at login.
type Role struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Permissions map[string]bool `json:"permissions"`
	CreatedAt   time.Time       `json:"created_at"`
}

// User is a staff account. Username and email are unique across users.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	PasswordHash string     `json:"-"`
	RoleID       int64      `json:"role_id"`
	RoleName     string     `json:"role_name,omitempty"`
	OfficeID     int64      `json:"office_id"`
	OfficeName   string     `json:"office_name,omitempty"`
	Status       string     `json:"status"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type Department struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OfficeID    int64     `json:"office_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type Employee struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Department string    `json:"department,omitempty"`
	OfficeID   int64     `json:"office_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type VehicleCategory struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Vehicle is the central fleet record. Fuel logs scope to an office
// through their vehicle.
type Vehicle struct {
	ID                 int64     `json:"id"`
	RegistrationNumber string    `json:"registration_number"`
	Make               string    `json:"make"`
	Model              string    `json:"model"`
	Year               int       `json:"year"`
	CategoryID         int64     `json:"category_id"`
	CategoryName       string    `json:"category_name,omitempty"`
	AssignedEmployeeID *int64    `json:"assigned_employee_id,omitempty"`
	EmployeeName       string    `json:"employee_name,omitempty"`
	Department         string    `json:"department,omitempty"`
	CurrentMileage     int64     `json:"current_mileage"`
	Status             string    `json:"status"`
	OfficeID           int64     `json:"office_id"`
	OfficeName         string    `json:"office_name,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

type FuelLog struct {
	ID                 int64     `json:"id"`
	VehicleID          int64     `json:"vehicle_id"`
	RegistrationNumber string    `json:"registration_number,omitempty"`
	Make               string    `json:"make,omitempty"`
	Model              string    `json:"model,omitempty"`
	CategoryName       string    `json:"category_name,omitempty"`
	OfficeName         string    `json:"office_name,omitempty"`
	Date               time.Time `json:"date"`
	Mileage            int64     `json:"mileage"`
	FuelQuantity       float64   `json:"fuel_quantity"`
	Cost               float64   `json:"cost"`
	Notes              string    `json:"notes,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

type MaintenanceRecord struct {
	ID                   int64     `json:"id"`
	VehicleID            int64     `json:"vehicle_id"`
	RegistrationNumber   string    `json:"registration_number,omitempty"`
	MaintenanceType      string    `json:"maintenance_type"`
	Description          string    `json:"description,omitempty"`
	Cost                 float64   `json:"cost"`
	MaintenanceDate      time.Time `json:"maintenance_date"`
	MileageAtMaintenance int64     `json:"mileage_at_maintenance"`
	MechanicName         string    `json:"mechanic_name,omitempty"`
	Notes                string    `json:"notes,omitempty"`
	OfficeID             int64     `json:"office_id"`
	OfficeName           string    `json:"office_name,omitempty"`
	CreatedBy            int64     `json:"created_by"`
	CreatedAt            time.Time `json:"created_at"`
}

// ReportFilter narrows the fuel report on top of the office scope.
// Zero values mean "no additional restriction".
type ReportFilter struct {
	Start      time.Time
	End        time.Time
	VehicleID  int64
	CategoryID int64
	OfficeID   int64 // honored only for all-offices callers
}

// VehicleFuelStat aggregates fuel usage for a single vehicle in a report.
type VehicleFuelStat struct {
	VehicleID    int64   `json:"vehicle_id"`
	Vehicle      string  `json:"vehicle"`
	Category     string  `json:"category,omitempty"`
	Office       string  `json:"office,omitempty"`
	LogCount     int     `json:"log_count"`
	TotalCost    float64 `json:"total_cost"`
	TotalFuel    float64 `json:"total_fuel"`
	Distance     int64   `json:"distance"`
	Efficiency   float64 `json:"efficiency"` // km per litre over the period
}

// FuelReport carries the filtered rows plus derived aggregates. The fleet
// efficiency figure is the aggregate ratio total distance / total fuel, not
// a mean of per-vehicle averages.
type FuelReport struct {
	Logs          []FuelLog         `json:"logs"`
	TotalCost     float64           `json:"total_cost"`
	TotalFuel     float64           `json:"total_fuel"`
	TotalLogs     int               `json:"total_logs"`
	TotalVehicles int               `json:"total_vehicles"`
	TotalDistance int64             `json:"total_distance"`
	Efficiency    float64           `json:"efficiency"`
	PerVehicle    []VehicleFuelStat `json:"per_vehicle"`
}

// CategoryCount backs the dashboard "vehicles by category" breakdown.
type CategoryCount struct {
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
	Count      int    `json:"count"`
}

// CategoryVehicles is the per-category detail listing: the category's
// vehicles visible to the caller plus counts broken down by status.
type CategoryVehicles struct {
	Category     VehicleCategory `json:"category"`
	Vehicles     []Vehicle       `json:"vehicles"`
	StatusCounts map[string]int  `json:"status_counts"`
	Total        int             `json:"total"`
}

// DashboardStats bundles the landing-page numbers for one office scope.
type DashboardStats struct {
	ActiveVehicles  int             `json:"active_vehicles"`
	MonthFuelCost   float64         `json:"month_fuel_cost"`
	MonthFuelVolume float64         `json:"month_fuel_volume"`
	RecentLogs      []FuelLog       `json:"recent_logs"`
	ByCategory      []CategoryCount `json:"by_category"`
}
