package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fleetcore.org/internal/auth"
	"fleetcore.org/internal/fleet"
)

// Reports runs the report and dashboard aggregation queries. Every query
// takes the caller's scope explicitly so ad-hoc filters can only narrow,
// never widen, the visible office.
type Reports struct {
	db *sql.DB
}

var _ fleet.ReportStore = (*Reports)(nil)

func (r *Reports) FuelLogsForReport(ctx context.Context, scope auth.Scope, filter fleet.ReportFilter) ([]fleet.FuelLog, error) {
	query := `
		select` + fuelLogColumns + `
		from fuel_logs fl
		join vehicles v on fl.vehicle_id = v.id
		join vehicle_categories vc on v.category_id = vc.id
		join offices o on v.office_id = o.id
		where fl.date >= $1 and fl.date <= $2`
	args := []any{filter.Start, filter.End}

	clause, scopeArgs := scope.SQL("v", len(args)+1)
	query += clause
	args = append(args, scopeArgs...)

	if filter.VehicleID > 0 {
		query += fmt.Sprintf(" and fl.vehicle_id = $%d", len(args)+1)
		args = append(args, filter.VehicleID)
	}
	if filter.CategoryID > 0 {
		query += fmt.Sprintf(" and v.category_id = $%d", len(args)+1)
		args = append(args, filter.CategoryID)
	}
	if filter.OfficeID > 0 {
		query += fmt.Sprintf(" and v.office_id = $%d", len(args)+1)
		args = append(args, filter.OfficeID)
	}
	query += ` order by fl.date asc, fl.id asc`

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

func (r *Reports) ActiveVehicleCount(ctx context.Context, scope auth.Scope) (int, error) {
	query := `select count(*) from vehicles v where v.status = 'active'`
	clause, args := scope.SQL("v", 1)
	query += clause

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Reports) MonthFuelTotals(ctx context.Context, scope auth.Scope, month time.Time) (float64, float64, error) {
	query := `
		select coalesce(sum(fl.cost), 0), coalesce(sum(fl.fuel_quantity), 0)
		from fuel_logs fl
		join vehicles v on fl.vehicle_id = v.id
		where date_trunc('month', fl.date) = date_trunc('month', $1::timestamptz)`
	args := []any{month}
	clause, scopeArgs := scope.SQL("v", 2)
	query += clause
	args = append(args, scopeArgs...)

	var cost, volume float64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&cost, &volume); err != nil {
		return 0, 0, err
	}
	return cost, volume, nil
}

func (r *Reports) RecentFuelLogs(ctx context.Context, scope auth.Scope, limit int) ([]fleet.FuelLog, error) {
	query := `
		select` + fuelLogColumns + `
		from fuel_logs fl
		join vehicles v on fl.vehicle_id = v.id
		join vehicle_categories vc on v.category_id = vc.id
		join offices o on v.office_id = o.id
		where true`
	args := []any{}
	clause, scopeArgs := scope.SQL("v", 1)
	query += clause
	args = append(args, scopeArgs...)

	query += fmt.Sprintf(" order by fl.date desc, fl.id desc limit $%d", len(args)+1)
	args = append(args, limit)

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

func (r *Reports) VehiclesByCategory(ctx context.Context, scope auth.Scope) ([]fleet.CategoryCount, error) {
	query := `
		select vc.id, vc.name, count(v.id)
		from vehicle_categories vc
		left join vehicles v on v.category_id = vc.id and v.status = 'active'`
	var args []any
	if !scope.All {
		query += ` and v.office_id = $1`
		args = append(args, scope.OfficeID)
	}
	query += `
		group by vc.id, vc.name
		order by vc.name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []fleet.CategoryCount
	for rows.Next() {
		var c fleet.CategoryCount
		if err := rows.Scan(&c.CategoryID, &c.Name, &c.Count); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
