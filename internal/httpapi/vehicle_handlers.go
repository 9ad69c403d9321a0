package httpapi

import (
	"fmt"
	"net/http"

	"fleetcore.org/internal/audit"
	"fleetcore.org/internal/auth"
	"fleetcore.org/internal/fleet"
)

func (a *API) handleVehicles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		id, ok := a.ensurePermission(w, r, auth.PermVehiclesView)
		if !ok {
			return
		}
		scope, ok := a.scopeFor(w, r, id)
		if !ok {
			return
		}
		vehicles, err := a.fleet.ListVehicles(r.Context(), scope)
		if err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"vehicles": vehicles})
	case http.MethodPost:
		id, ok := a.ensurePermission(w, r, auth.PermVehiclesEdit)
		if !ok {
			return
		}
		scope, ok := a.scopeFor(w, r, id)
		if !ok {
			return
		}
		var req fleet.Vehicle
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		created, err := a.fleet.CreateVehicle(r.Context(), scope, req)
		if err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		w.Header().Set("Location", fmt.Sprintf("/v1/vehicles/%d", created.ID))
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleVehicleResource(w http.ResponseWriter, r *http.Request) {
	vehicleID, rest, ok := pathID(r.URL.Path, "/v1/vehicles/")
	if !ok || rest != "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		id, ok := a.ensurePermission(w, r, auth.PermVehiclesView)
		if !ok {
			return
		}
		scope, ok := a.scopeFor(w, r, id)
		if !ok {
			return
		}
		vehicle, err := a.fleet.GetVehicle(r.Context(), scope, vehicleID)
		if err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, vehicle)
	case http.MethodPut:
		id, ok := a.ensurePermission(w, r, auth.PermVehiclesEdit)
		if !ok {
			return
		}
		scope, ok := a.scopeFor(w, r, id)
		if !ok {
			return
		}
		var req fleet.Vehicle
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		req.ID = vehicleID
		if err := a.fleet.UpdateVehicle(r.Context(), scope, req); err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		id, ok := a.ensurePermission(w, r, auth.PermVehiclesEdit)
		if !ok {
			return
		}
		scope, ok := a.scopeFor(w, r, id)
		if !ok {
			return
		}
		if err := a.fleet.DeleteVehicle(r.Context(), scope, vehicleID); err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "fleet.vehicle.delete", map[string]any{
			"vehicle_id": vehicleID,
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
