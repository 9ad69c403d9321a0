package httpapi

import (
	"fmt"
	"net/http"

	"fleetcore.org/internal/audit"
	"fleetcore.org/internal/auth"
	"fleetcore.org/internal/fleet"
)

// Employees and departments carry a single view key each; holding it
// covers their mutations as well.

func (a *API) handleEmployees(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		id, ok := a.ensurePermission(w, r, auth.PermEmployeesView)
		if !ok {
			return
		}
		scope, ok := a.scopeFor(w, r, id)
		if !ok {
			return
		}
		employees, err := a.fleet.ListEmployees(r.Context(), scope)
		if err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"employees": employees})
	case http.MethodPost:
		id, ok := a.ensurePermission(w, r, auth.PermEmployeesView)
		if !ok {
			return
		}
		scope, ok := a.scopeFor(w, r, id)
		if !ok {
			return
		}
		var req fleet.Employee
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		created, err := a.fleet.CreateEmployee(r.Context(), scope, req)
		if err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		w.Header().Set("Location", fmt.Sprintf("/v1/employees/%d", created.ID))
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleEmployeeResource(w http.ResponseWriter, r *http.Request) {
	employeeID, rest, ok := pathID(r.URL.Path, "/v1/employees/")
	if !ok || rest != "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	id, ok := a.ensurePermission(w, r, auth.PermEmployeesView)
	if !ok {
		return
	}
	scope, ok := a.scopeFor(w, r, id)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPut:
		var req fleet.Employee
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		req.ID = employeeID
		if err := a.fleet.UpdateEmployee(r.Context(), scope, req); err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		if err := a.fleet.DeleteEmployee(r.Context(), scope, employeeID); err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "fleet.employee.delete", map[string]any{
			"employee_id": employeeID,
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleDepartments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		id, ok := a.ensurePermission(w, r, auth.PermDepartmentsView)
		if !ok {
			return
		}
		scope, ok := a.scopeFor(w, r, id)
		if !ok {
			return
		}
		departments, err := a.fleet.ListDepartments(r.Context(), scope)
		if err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"departments": departments})
	case http.MethodPost:
		id, ok := a.ensurePermission(w, r, auth.PermDepartmentsView)
		if !ok {
			return
		}
		scope, ok := a.scopeFor(w, r, id)
		if !ok {
			return
		}
		var req fleet.Department
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		created, err := a.fleet.CreateDepartment(r.Context(), scope, req)
		if err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		w.Header().Set("Location", fmt.Sprintf("/v1/departments/%d", created.ID))
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleDepartmentResource(w http.ResponseWriter, r *http.Request) {
	departmentID, rest, ok := pathID(r.URL.Path, "/v1/departments/")
	if !ok || rest != "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	id, ok := a.ensurePermission(w, r, auth.PermDepartmentsView)
	if !ok {
		return
	}
	scope, ok := a.scopeFor(w, r, id)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPut:
		var req fleet.Department
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		req.ID = departmentID
		if err := a.fleet.UpdateDepartment(r.Context(), scope, req); err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		if err := a.fleet.DeleteDepartment(r.Context(), scope, departmentID); err != nil {
			a.handleFleetError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "fleet.department.delete", map[string]any{
			"department_id": departmentID,
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodPut, http.MethodDelete)
	}
}
