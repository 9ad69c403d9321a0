package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fleetcore.org/internal/auth"
	"fleetcore.org/internal/fleet"
)

func (a *API) handleOffices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.ensurePermission(w, r, auth.PermUsersView); !ok {
		return
	}
	offices, err := a.fleet.Offices(r.Context())
	if err != nil {
		a.handleFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"offices": offices})
}

func (a *API) handleRoles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.ensurePermission(w, r, auth.PermUsersView); !ok {
		return
	}
	roles, err := a.fleet.Roles(r.Context())
	if err != nil {
		a.handleFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (a *API) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.ensurePermission(w, r, auth.PermVehiclesView); !ok {
		return
	}
	categories, err := a.fleet.Categories(r.Context())
	if err != nil {
		a.handleFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (a *API) handleCategoryResource(w http.ResponseWriter, r *http.Request) {
	categoryID, rest, ok := pathID(r.URL.Path, "/v1/categories/")
	if !ok || rest != "vehicles" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id, ok := a.ensurePermission(w, r, auth.PermVehiclesView)
	if !ok {
		return
	}
	scope, ok := a.scopeFor(w, r, id)
	if !ok {
		return
	}
	detail, err := a.fleet.VehiclesInCategory(r.Context(), scope, categoryID)
	if err != nil {
		a.handleFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (a *API) handleFuelReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id, ok := a.ensurePermission(w, r, auth.PermReportsView)
	if !ok {
		return
	}
	scope, ok := a.scopeFor(w, r, id)
	if !ok {
		return
	}
	filter, err := parseReportFilter(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	report, err := a.fleet.FuelReport(r.Context(), scope, filter)
	if err != nil {
		a.handleFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		a.unauthenticated(w, r)
		return
	}
	scope, ok := a.scopeFor(w, r, id)
	if !ok {
		return
	}
	stats, err := a.fleet.Dashboard(r.Context(), scope)
	if err != nil {
		a.handleFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func parseReportFilter(r *http.Request) (fleet.ReportFilter, error) {
	q := r.URL.Query()
	var filter fleet.ReportFilter

	parseDate := func(key string) (time.Time, error) {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			return time.Time{}, nil
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, errParam(key, "must be a YYYY-MM-DD date")
		}
		return t, nil
	}
	parseID := func(key string) (int64, error) {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			return 0, nil
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return 0, errParam(key, "must be a positive integer")
		}
		return id, nil
	}

	var err error
	if filter.Start, err = parseDate("start"); err != nil {
		return fleet.ReportFilter{}, err
	}
	if filter.End, err = parseDate("end"); err != nil {
		return fleet.ReportFilter{}, err
	}
	if !filter.End.IsZero() {
		// Inclusive end day.
		filter.End = filter.End.Add(24*time.Hour - time.Nanosecond)
	}
	if filter.VehicleID, err = parseID("vehicle_id"); err != nil {
		return fleet.ReportFilter{}, err
	}
	if filter.CategoryID, err = parseID("category_id"); err != nil {
		return fleet.ReportFilter{}, err
	}
	if filter.OfficeID, err = parseID("office_id"); err != nil {
		return fleet.ReportFilter{}, err
	}
	return filter, nil
}

func errParam(key, reason string) error {
	return fmt.Errorf("%s %s", key, reason)
}
