package pg

import (
	"context"
	"database/sql"

	"fleetcore.org/internal/auth"
	"fleetcore.org/internal/fleet"
)

// Employees is the employees repository.
type Employees struct {
	db *sql.DB
}

var _ fleet.EmployeeStore = (*Employees)(nil)

func (r *Employees) List(ctx context.Context, scope auth.Scope) ([]fleet.Employee, error) {
	query := `
		select e.id, e.name, coalesce(e.email, ''), coalesce(e.phone, ''),
		       coalesce(e.department, ''), e.office_id, e.created_at
		from employees e
		where true`
	clause, args := scope.SQL("e", 1)
	query += clause + ` order by e.name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []fleet.Employee
	for rows.Next() {
		var e fleet.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.Phone, &e.Department, &e.OfficeID, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (r *Employees) Create(ctx context.Context, e fleet.Employee) (fleet.Employee, error) {
	err := r.db.QueryRowContext(ctx, `
		insert into employees (name, email, phone, department, office_id)
		values ($1, $2, $3, $4, $5)
		returning id, created_at
	`, e.Name, e.Email, e.Phone, e.Department, e.OfficeID,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fleet.Employee{}, mapWriteError(err)
	}
	return e, nil
}

func (r *Employees) Update(ctx context.Context, scope auth.Scope, e fleet.Employee) error {
	query := `
		update employees e set name = $1, email = $2, phone = $3, department = $4
		where e.id = $5`
	args := []any{e.Name, e.Email, e.Phone, e.Department, e.ID}
	clause, scopeArgs := scope.SQL("e", 6)
	query += clause
	args = append(args, scopeArgs...)

	return affectedOrNotFound(r.db.ExecContext(ctx, query, args...))
}

func (r *Employees) Delete(ctx context.Context, scope auth.Scope, id int64) error {
	query := `delete from employees e where e.id = $1`
	args := []any{id}
	clause, scopeArgs := scope.SQL("e", 2)
	query += clause
	args = append(args, scopeArgs...)

	return affectedOrNotFound(r.db.ExecContext(ctx, query, args...))
}
