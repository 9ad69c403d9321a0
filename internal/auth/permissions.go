package auth

import (
	"encoding/json"
	"fmt"
)

// Permission keys form a closed set. Every state-mutating action gates on
// its own key; holding a view key never implies the matching edit key.
const (
	PermVehiclesView      = "vehicles_view"
	PermVehiclesEdit      = "vehicles_edit"
	PermFuelLogsView      = "fuel_logs_view"
	PermFuelLogsEdit      = "fuel_logs_edit"
	PermEmployeesView     = "employees_view"
	PermDepartmentsView   = "departments_view"
	PermReportsView       = "reports_view"
	PermUsersView         = "users_view"
	PermUsersEdit         = "users_edit"
	PermMaintenanceView   = "maintenance_view"
	PermMaintenanceEdit   = "maintenance_edit"
	PermMaintenanceDelete = "maintenance_delete"
)

// AllPermissions lists every recognized key, in display order.
var AllPermissions = []string{
	PermVehiclesView,
	PermVehiclesEdit,
	PermFuelLogsView,
	PermFuelLogsEdit,
	PermEmployeesView,
	PermDepartmentsView,
	PermReportsView,
	PermUsersView,
	PermUsersEdit,
	PermMaintenanceView,
	PermMaintenanceEdit,
	PermMaintenanceDelete,
}

var knownPermissions = func() map[string]struct{} {
	set := make(map[string]struct{}, len(AllPermissions))
	for _, key := range AllPermissions {
		set[key] = struct{}{}
	}
	return set
}()

// ValidPermission reports whether key belongs to the closed set.
func ValidPermission(key string) bool {
	_, ok := knownPermissions[key]
	return ok
}

// DecodePermissions parses a role's stored permissions map and validates it
// against the closed key set. Unknown keys are rejected rather than ignored
// so a corrupted role row cannot smuggle capabilities into a session.
// A nil or empty payload yields an empty (deny-everything) map.
func DecodePermissions(raw []byte) (map[string]bool, error) {
	if len(raw) == 0 {
		return map[string]bool{}, nil
	}
	var decoded map[string]bool
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}
	perms := make(map[string]bool, len(decoded))
	for key, granted := range decoded {
		if !ValidPermission(key) {
			return nil, fmt.Errorf("unknown permission key %q", key)
		}
		perms[key] = granted
	}
	return perms, nil
}
