package pg

import (
	"context"
	"database/sql"
	"errors"

	"fleetcore.org/internal/auth"
	"fleetcore.org/internal/fleet"
)

// FuelLogs is the fuel_logs repository. Rows have no office column of
// their own; the scope predicate always lands on the joined vehicle.
type FuelLogs struct {
	db *sql.DB
}

var _ fleet.FuelLogStore = (*FuelLogs)(nil)

const fuelLogColumns = `
	fl.id, fl.vehicle_id, v.registration_number, v.make, v.model,
	vc.name, o.name, fl.date, fl.mileage, fl.fuel_quantity, fl.cost,
	coalesce(fl.notes, ''), fl.created_at`

func scanFuelLog(scanner interface{ Scan(...any) error }) (fleet.FuelLog, error) {
	var log fleet.FuelLog
	err := scanner.Scan(
		&log.ID, &log.VehicleID, &log.RegistrationNumber, &log.Make, &log.Model,
		&log.CategoryName, &log.OfficeName, &log.Date, &log.Mileage,
		&log.FuelQuantity, &log.Cost, &log.Notes, &log.CreatedAt,
	)
	return log, err
}

func (r *FuelLogs) List(ctx context.Context, scope auth.Scope) ([]fleet.FuelLog, error) {
	query := `
		select` + fuelLogColumns + `
		from fuel_logs fl
		join vehicles v on fl.vehicle_id = v.id
		join vehicle_categories vc on v.category_id = vc.id
		join offices o on v.office_id = o.id
		where true`
	clause, args := scope.SQL("v", 1)
	query += clause + ` order by fl.date desc, fl.id desc`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []fleet.FuelLog
	for rows.Next() {
		log, err := scanFuelLog(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, log)
	}
	return result, rows.Err()
}

func (r *FuelLogs) Get(ctx context.Context, scope auth.Scope, id int64) (fleet.FuelLog, error) {
	query := `
		select` + fuelLogColumns + `
		from fuel_logs fl
		join vehicles v on fl.vehicle_id = v.id
		join vehicle_categories vc on v.category_id = vc.id
		join offices o on v.office_id = o.id
		where fl.id = $1`
	args := []any{id}
	clause, scopeArgs := scope.SQL("v", 2)
	query += clause
	args = append(args, scopeArgs...)

	log, err := scanFuelLog(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return fleet.FuelLog{}, fleet.ErrNotFound
	}
	if err != nil {
		return fleet.FuelLog{}, err
	}
	return log, nil
}

func (r *FuelLogs) Create(ctx context.Context, log fleet.FuelLog) (fleet.FuelLog, error) {
	err := r.db.QueryRowContext(ctx, `
		insert into fuel_logs (vehicle_id, date, mileage, fuel_quantity, cost, notes)
		values ($1, $2, $3, $4, $5, $6)
		returning id, created_at
	`, log.VehicleID, log.Date, log.Mileage, log.FuelQuantity, log.Cost, log.Notes,
	).Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		return fleet.FuelLog{}, mapWriteError(err)
	}
	return log, nil
}

func (r *FuelLogs) Update(ctx context.Context, scope auth.Scope, log fleet.FuelLog) error {
	// The predicate constrains the row's current vehicle; the caller has
	// already resolved the (possibly new) vehicle within scope.
	query := `
		update fuel_logs fl set
			vehicle_id = $1, date = $2, mileage = $3,
			fuel_quantity = $4, cost = $5, notes = $6
		from vehicles v
		where fl.id = $7 and v.id = fl.vehicle_id`
	args := []any{
		log.VehicleID, log.Date, log.Mileage,
		log.FuelQuantity, log.Cost, log.Notes, log.ID,
	}
	clause, scopeArgs := scope.SQL("v", 8)
	query += clause
	args = append(args, scopeArgs...)

	return affectedOrNotFound(r.db.ExecContext(ctx, query, args...))
}

func (r *FuelLogs) Delete(ctx context.Context, scope auth.Scope, id int64) error {
	query := `
		delete from fuel_logs fl
		using vehicles v
		where fl.id = $1 and v.id = fl.vehicle_id`
	args := []any{id}
	clause, scopeArgs := scope.SQL("v", 2)
	query += clause
	args = append(args, scopeArgs...)

	return affectedOrNotFound(r.db.ExecContext(ctx, query, args...))
}
