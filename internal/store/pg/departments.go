package pg

import (
	"context"
	"database/sql"

	"fleetcore.org/internal/auth"
	"fleetcore.org/internal/fleet"
)

// Departments is the departments repository.
type Departments struct {
	db *sql.DB
}

var _ fleet.DepartmentStore = (*Departments)(nil)

func (r *Departments) List(ctx context.Context, scope auth.Scope) ([]fleet.Department, error) {
	query := `
		select d.id, d.name, coalesce(d.description, ''), d.office_id, d.created_at
		from departments d
		where true`
	clause, args := scope.SQL("d", 1)
	query += clause + ` order by d.name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []fleet.Department
	for rows.Next() {
		var d fleet.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.OfficeID, &d.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (r *Departments) Create(ctx context.Context, d fleet.Department) (fleet.Department, error) {
	err := r.db.QueryRowContext(ctx, `
		insert into departments (name, description, office_id)
		values ($1, $2, $3)
		returning id, created_at
	`, d.Name, d.Description, d.OfficeID,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fleet.Department{}, mapWriteError(err)
	}
	return d, nil
}

func (r *Departments) Update(ctx context.Context, scope auth.Scope, d fleet.Department) error {
	query := `update departments d set name = $1, description = $2 where d.id = $3`
	args := []any{d.Name, d.Description, d.ID}
	clause, scopeArgs := scope.SQL("d", 4)
	query += clause
	args = append(args, scopeArgs...)

	return affectedOrNotFound(r.db.ExecContext(ctx, query, args...))
}

func (r *Departments) Delete(ctx context.Context, scope auth.Scope, id int64) error {
	query := `delete from departments d where d.id = $1`
	args := []any{id}
	clause, scopeArgs := scope.SQL("d", 2)
	query += clause
	args = append(args, scopeArgs...)

	return affectedOrNotFound(r.db.ExecContext(ctx, query, args...))
}
