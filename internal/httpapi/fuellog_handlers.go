package httpapi

import (
	"fmt"
	"net/http"

	"fleetcore.org/internal/audit"
	"fleetcore.org/internal/auth"
	"fleetcore.org/internal/fleet"
)

func (a *API) handleFuelLogs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		id, ok := a.ensurePermission(w, r, auth.PermFuelLogsView)
		if !ok {
			return
		}
		scope, ok := a.scopeFor(w, r, id)
		if !ok {
			return
		}
		logs, err := a.fleet.ListFuelLogs(r.Context(), scope)
		if err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"fuel_logs": logs})
	case http.MethodPost:
		id, ok := a.ensurePermission(w, r, auth.PermFuelLogsEdit)
		if !ok {
			return
		}
		scope, ok := a.scopeFor(w, r, id)
		if !ok {
			return
		}
		var req fleet.FuelLog
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		created, err := a.fleet.CreateFuelLog(r.Context(), scope, req)
		if err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		w.Header().Set("Location", fmt.Sprintf("/v1/fuel-logs/%d", created.ID))
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleFuelLogResource(w http.ResponseWriter, r *http.Request) {
	logID, rest, ok := pathID(r.URL.Path, "/v1/fuel-logs/")
	if !ok || rest != "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		id, ok := a.ensurePermission(w, r, auth.PermFuelLogsView)
		if !ok {
			return
		}
		scope, ok := a.scopeFor(w, r, id)
		if !ok {
			return
		}
		log, err := a.fleet.GetFuelLog(r.Context(), scope, logID)
		if err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, log)
	case http.MethodPut:
		id, ok := a.ensurePermission(w, r, auth.PermFuelLogsEdit)
		if !ok {
			return
		}
		scope, ok := a.scopeFor(w, r, id)
		if !ok {
			return
		}
		var req fleet.FuelLog
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		req.ID = logID
		if err := a.fleet.UpdateFuelLog(r.Context(), scope, req); err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		id, ok := a.ensurePermission(w, r, auth.PermFuelLogsEdit)
		if !ok {
			return
		}
		scope, ok := a.scopeFor(w, r, id)
		if !ok {
			return
		}
		if err := a.fleet.DeleteFuelLog(r.Context(), scope, logID); err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "fleet.fuel_log.delete", map[string]any{
			"fuel_log_id": logID,
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
