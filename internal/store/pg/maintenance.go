package pg

import (
	"context"
	"database/sql"

	"fleetcore.org/internal/auth"
	"fleetcore.org/internal/fleet"
)

// Maintenance is the vehicle_maintenance repository. Rows carry their own
// office column, stamped from the vehicle at creation time.
type Maintenance struct {
	db *sql.DB
}

var _ fleet.MaintenanceStore = (*Maintenance)(nil)

const maintenanceColumns = `
	vm.id, vm.vehicle_id, v.registration_number, vm.maintenance_type,
	coalesce(vm.description, ''), vm.cost, vm.maintenance_date,
	vm.mileage_at_maintenance, coalesce(vm.mechanic_name, ''),
	coalesce(vm.notes, ''), vm.office_id, o.name, vm.created_by, vm.created_at`

func scanMaintenance(scanner interface{ Scan(...any) error }) (fleet.MaintenanceRecord, error) {
	var rec fleet.MaintenanceRecord
	err := scanner.Scan(
		&rec.ID, &rec.VehicleID, &rec.RegistrationNumber, &rec.MaintenanceType,
		&rec.Description, &rec.Cost, &rec.MaintenanceDate,
		&rec.MileageAtMaintenance, &rec.MechanicName,
		&rec.Notes, &rec.OfficeID, &rec.OfficeName, &rec.CreatedBy, &rec.CreatedAt,
	)
	return rec, err
}

func (r *Maintenance) List(ctx context.Context, scope auth.Scope) ([]fleet.MaintenanceRecord, error) {
	query := `
		select` + maintenanceColumns + `
		from vehicle_maintenance vm
		join vehicles v on vm.vehicle_id = v.id
		join offices o on vm.office_id = o.id
		where true`
	clause, args := scope.SQL("vm", 1)
	query += clause + ` order by vm.maintenance_date desc, vm.id desc`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []fleet.MaintenanceRecord
	for rows.Next() {
		rec, err := scanMaintenance(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (r *Maintenance) Create(ctx context.Context, rec fleet.MaintenanceRecord) (fleet.MaintenanceRecord, error) {
	err := r.db.QueryRowContext(ctx, `
		insert into vehicle_maintenance
			(vehicle_id, maintenance_type, description, cost, maintenance_date,
			 mileage_at_maintenance, mechanic_name, notes, office_id, created_by)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		returning id, created_at
	`, rec.VehicleID, rec.MaintenanceType, rec.Description, rec.Cost, rec.MaintenanceDate,
		rec.MileageAtMaintenance, rec.MechanicName, rec.Notes, rec.OfficeID, rec.CreatedBy,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fleet.MaintenanceRecord{}, mapWriteError(err)
	}
	return rec, nil
}

func (r *Maintenance) Update(ctx context.Context, scope auth.Scope, rec fleet.MaintenanceRecord) error {
	query := `
		update vehicle_maintenance vm set
			vehicle_id = $1, maintenance_type = $2, description = $3, cost = $4,
			maintenance_date = $5, mileage_at_maintenance = $6,
			mechanic_name = $7, notes = $8
		where vm.id = $9`
	args := []any{
		rec.VehicleID, rec.MaintenanceType, rec.Description, rec.Cost,
		rec.MaintenanceDate, rec.MileageAtMaintenance,
		rec.MechanicName, rec.Notes, rec.ID,
	}
	clause, scopeArgs := scope.SQL("vm", 10)
	query += clause
	args = append(args, scopeArgs...)

	return affectedOrNotFound(r.db.ExecContext(ctx, query, args...))
}

func (r *Maintenance) Delete(ctx context.Context, scope auth.Scope, id int64) error {
	query := `delete from vehicle_maintenance vm where vm.id = $1`
	args := []any{id}
	clause, scopeArgs := scope.SQL("vm", 2)
	query += clause
	args = append(args, scopeArgs...)

	return affectedOrNotFound(r.db.ExecContext(ctx, query, args...))
}
