package pg

import (
	"context"
	"database/sql"
	"errors"

	"fleetcore.org/internal/auth"
	"fleetcore.org/internal/fleet"
)

// Lookups serves the reference tables admin forms need. These are global:
// offices and roles back the super-admin user forms, categories apply to
// every office alike.
type Lookups struct {
	db *sql.DB
}

var _ fleet.LookupStore = (*Lookups)(nil)

func (r *Lookups) Offices(ctx context.Context) ([]fleet.Office, error) {
	rows, err := r.db.QueryContext(ctx, `
		select id, name, status, created_at
		from offices
		where status = 'active'
		order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []fleet.Office
	for rows.Next() {
		var o fleet.Office
		if err := rows.Scan(&o.ID, &o.Name, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func (r *Lookups) Roles(ctx context.Context) ([]fleet.Role, error) {
	rows, err := r.db.QueryContext(ctx, `
		select id, name, permissions, created_at
		from roles
		order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []fleet.Role
	for rows.Next() {
		var (
			role fleet.Role
			raw  []byte
		)
		if err := rows.Scan(&role.ID, &role.Name, &raw, &role.CreatedAt); err != nil {
			return nil, err
		}
		perms, err := auth.DecodePermissions(raw)
		if err != nil {
			return nil, err
		}
		role.Permissions = perms
		result = append(result, role)
	}
	return result, rows.Err()
}

func (r *Lookups) Categories(ctx context.Context) ([]fleet.VehicleCategory, error) {
	rows, err := r.db.QueryContext(ctx, `
		select id, name, coalesce(description, ''), created_at
		from vehicle_categories
		order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []fleet.VehicleCategory
	for rows.Next() {
		var c fleet.VehicleCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *Lookups) Category(ctx context.Context, id int64) (fleet.VehicleCategory, error) {
	var c fleet.VehicleCategory
	err := r.db.QueryRowContext(ctx, `
		select id, name, coalesce(description, ''), created_at
		from vehicle_categories
		where id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fleet.VehicleCategory{}, fleet.ErrNotFound
	}
	if err != nil {
		return fleet.VehicleCategory{}, err
	}
	return c, nil
}
