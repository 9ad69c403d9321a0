package httpapi

import (
	"fmt"
	"net/http"

	"fleetcore.org/internal/audit"
	"fleetcore.org/internal/auth"
	"fleetcore.org/internal/fleet"
)

func (a *API) handleMaintenance(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		id, ok := a.ensurePermission(w, r, auth.PermMaintenanceView)
		if !ok {
			return
		}
		scope, ok := a.scopeFor(w, r, id)
		if !ok {
			return
		}
		records, err := a.fleet.ListMaintenance(r.Context(), scope)
		if err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"maintenance": records})
	case http.MethodPost:
		id, ok := a.ensurePermission(w, r, auth.PermMaintenanceEdit)
		if !ok {
			return
		}
		scope, ok := a.scopeFor(w, r, id)
		if !ok {
			return
		}
		var req fleet.MaintenanceRecord
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		created, err := a.fleet.CreateMaintenance(r.Context(), scope, id.UserID, req)
		if err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		w.Header().Set("Location", fmt.Sprintf("/v1/maintenance/%d", created.ID))
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleMaintenanceResource(w http.ResponseWriter, r *http.Request) {
	recordID, rest, ok := pathID(r.URL.Path, "/v1/maintenance/")
	if !ok || rest != "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodPut:
		id, ok := a.ensurePermission(w, r, auth.PermMaintenanceEdit)
		if !ok {
			return
		}
		scope, ok := a.scopeFor(w, r, id)
		if !ok {
			return
		}
		var req fleet.MaintenanceRecord
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		req.ID = recordID
		if err := a.fleet.UpdateMaintenance(r.Context(), scope, req); err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		// Deleting history has its own key, separate from edit.
		id, ok := a.ensurePermission(w, r, auth.PermMaintenanceDelete)
		if !ok {
			return
		}
		scope, ok := a.scopeFor(w, r, id)
		if !ok {
			return
		}
		if err := a.fleet.DeleteMaintenance(r.Context(), scope, recordID); err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "fleet.maintenance.delete", map[string]any{
			"record_id": recordID,
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodPut, http.MethodDelete)
	}
}
