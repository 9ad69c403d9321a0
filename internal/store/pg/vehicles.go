package pg

import (
	"context"
	"database/sql"
	"errors"

	"fleetcore.org/internal/auth"
	"fleetcore.org/internal/fleet"
)

// Vehicles is the vehicles repository.
type Vehicles struct {
	db *sql.DB
}

var _ fleet.VehicleStore = (*Vehicles)(nil)

const vehicleColumns = `
	v.id, v.registration_number, v.make, v.model, v.year,
	v.category_id, vc.name, v.assigned_employee_id, coalesce(e.name, ''),
	coalesce(v.department, ''), v.current_mileage, v.status,
	v.office_id, o.name, v.created_at`

func scanVehicle(scanner interface{ Scan(...any) error }) (fleet.Vehicle, error) {
	var v fleet.Vehicle
	err := scanner.Scan(
		&v.ID, &v.RegistrationNumber, &v.Make, &v.Model, &v.Year,
		&v.CategoryID, &v.CategoryName, &v.AssignedEmployeeID, &v.EmployeeName,
		&v.Department, &v.CurrentMileage, &v.Status,
		&v.OfficeID, &v.OfficeName, &v.CreatedAt,
	)
	return v, err
}

func (r *Vehicles) List(ctx context.Context, scope auth.Scope) ([]fleet.Vehicle, error) {
	query := `
		select` + vehicleColumns + `
		from vehicles v
		join vehicle_categories vc on v.category_id = vc.id
		join offices o on v.office_id = o.id
		left join employees e on v.assigned_employee_id = e.id
		where v.status = 'active'`
	clause, args := scope.SQL("v", 1)
	query += clause + ` order by v.registration_number`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []fleet.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

// ListByCategory keeps inactive vehicles in the result so the category
// detail page can break the list down by status.
func (r *Vehicles) ListByCategory(ctx context.Context, scope auth.Scope, categoryID int64) ([]fleet.Vehicle, error) {
	query := `
		select` + vehicleColumns + `
		from vehicles v
		join vehicle_categories vc on v.category_id = vc.id
		join offices o on v.office_id = o.id
		left join employees e on v.assigned_employee_id = e.id
		where v.category_id = $1`
	args := []any{categoryID}
	clause, scopeArgs := scope.SQL("v", 2)
	query += clause + ` order by v.registration_number`
	args = append(args, scopeArgs...)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []fleet.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

func (r *Vehicles) Get(ctx context.Context, scope auth.Scope, id int64) (fleet.Vehicle, error) {
	query := `
		select` + vehicleColumns + `
		from vehicles v
		join vehicle_categories vc on v.category_id = vc.id
		join offices o on v.office_id = o.id
		left join employees e on v.assigned_employee_id = e.id
		where v.id = $1`
	args := []any{id}
	clause, scopeArgs := scope.SQL("v", 2)
	query += clause
	args = append(args, scopeArgs...)

	v, err := scanVehicle(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return fleet.Vehicle{}, fleet.ErrNotFound
	}
	if err != nil {
		return fleet.Vehicle{}, err
	}
	return v, nil
}

func (r *Vehicles) Create(ctx context.Context, v fleet.Vehicle) (fleet.Vehicle, error) {
	err := r.db.QueryRowContext(ctx, `
		insert into vehicles
			(registration_number, make, model, year, category_id,
			 assigned_employee_id, department, current_mileage, status, office_id)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		returning id, created_at
	`, v.RegistrationNumber, v.Make, v.Model, v.Year, v.CategoryID,
		v.AssignedEmployeeID, v.Department, v.CurrentMileage, v.Status, v.OfficeID,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return fleet.Vehicle{}, mapWriteError(err)
	}
	return v, nil
}

func (r *Vehicles) Update(ctx context.Context, scope auth.Scope, v fleet.Vehicle) error {
	query := `
		update vehicles v set
			registration_number = $1, make = $2, model = $3, year = $4,
			category_id = $5, assigned_employee_id = $6, department = $7,
			current_mileage = $8
		where v.id = $9`
	args := []any{
		v.RegistrationNumber, v.Make, v.Model, v.Year,
		v.CategoryID, v.AssignedEmployeeID, v.Department,
		v.CurrentMileage, v.ID,
	}
	clause, scopeArgs := scope.SQL("v", 10)
	query += clause
	args = append(args, scopeArgs...)

	return affectedOrNotFound(r.db.ExecContext(ctx, query, args...))
}

func (r *Vehicles) Delete(ctx context.Context, scope auth.Scope, id int64) error {
	query := `delete from vehicles v where v.id = $1`
	args := []any{id}
	clause, scopeArgs := scope.SQL("v", 2)
	query += clause
	args = append(args, scopeArgs...)

	return affectedOrNotFound(r.db.ExecContext(ctx, query, args...))
}

// UpdateMileage advances the odometer after a fuel log write.
func (r *Vehicles) UpdateMileage(ctx context.Context, scope auth.Scope, id, mileage int64) error {
	query := `update vehicles v set current_mileage = $1 where v.id = $2`
	args := []any{mileage, id}
	clause, scopeArgs := scope.SQL("v", 3)
	query += clause
	args = append(args, scopeArgs...)

	return affectedOrNotFound(r.db.ExecContext(ctx, query, args...))
}
