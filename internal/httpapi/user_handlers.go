package httpapi

import (
	"fmt"
	"net/http"

	"fleetcore.org/internal/audit"
	"fleetcore.org/internal/auth"
	"fleetcore.org/internal/fleet"
)

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
	RoleID   int64  `json:"role_id"`
	OfficeID int64  `json:"office_id"`
}

type updateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
	RoleID   *int64  `json:"role_id"`
	OfficeID *int64  `json:"office_id"`
}

type setUserStatusRequest struct {
	Status string `json:"status"`
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.ensurePermission(w, r, auth.PermUsersView); !ok {
			return
		}
		users, err := a.fleet.ListUsers(r.Context())
		if err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users})
	case http.MethodPost:
		if _, ok := a.ensurePermission(w, r, auth.PermUsersEdit); !ok {
			return
		}
		var req createUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		created, err := a.fleet.CreateUser(r.Context(), fleet.User{
			Username: req.Username,
			Email:    req.Email,
			FullName: req.FullName,
			RoleID:   req.RoleID,
			OfficeID: req.OfficeID,
		}, req.Password)
		if err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "fleet.user.create", map[string]any{
			"target_id": created.ID,
			"username":  created.Username,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/users/%d", created.ID))
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	targetID, rest, ok := pathID(r.URL.Path, "/v1/users/")
	if !ok {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch rest {
	case "":
		a.handleUserByID(w, r, targetID)
	case "status":
		a.handleUserStatus(w, r, targetID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleUserByID(w http.ResponseWriter, r *http.Request, targetID int64) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.ensurePermission(w, r, auth.PermUsersView); !ok {
			return
		}
		user, err := a.fleet.GetUser(r.Context(), targetID)
		if err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPut:
		// Editing accounts reaches across offices, so beyond the edit key it
		// takes the all-offices role.
		id, ok := a.ensurePermission(w, r, auth.PermUsersEdit)
		if !ok {
			return
		}
		if !id.AllOffices {
			a.forbidden(w, r)
			return
		}
		var req updateUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		upd := fleet.UserUpdate{
			Username: req.Username,
			Email:    req.Email,
			FullName: req.FullName,
			Password: req.Password,
			RoleID:   req.RoleID,
			OfficeID: req.OfficeID,
		}
		if err := a.fleet.UpdateUser(r.Context(), targetID, upd); err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "fleet.user.update", map[string]any{
			"target_id": targetID,
		})
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		id, ok := a.ensurePermission(w, r, auth.PermUsersEdit)
		if !ok {
			return
		}
		if !id.AllOffices {
			a.forbidden(w, r)
			return
		}
		if err := a.fleet.DeleteUser(r.Context(), id.UserID, targetID); err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "fleet.user.delete", map[string]any{
			"target_id": targetID,
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleUserStatus(w http.ResponseWriter, r *http.Request, targetID int64) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	id, ok := a.ensurePermission(w, r, auth.PermUsersEdit)
	if !ok {
		return
	}
	var req setUserStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.fleet.SetUserStatus(r.Context(), id.UserID, targetID, req.Status); err != nil {
		a.handleFleetError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "fleet.user.status", map[string]any{
		"target_id": targetID,
		"status":    req.Status,
	})
	w.WriteHeader(http.StatusNoContent)
}
