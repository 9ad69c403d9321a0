package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fleetcore.org/internal/fleet"
)

// Users is the staff account repository. The user directory is not
// office-partitioned; access is gated on the users_* permission keys.
type Users struct {
	db *sql.DB
}

var _ fleet.UserStore = (*Users)(nil)

const userColumns = `
	u.id, u.username, u.email, u.full_name, u.role_id, r.name,
	u.office_id, o.name, u.status, u.last_login, u.created_at`

func scanUser(scanner interface{ Scan(...any) error }) (fleet.User, error) {
	var u fleet.User
	err := scanner.Scan(
		&u.ID, &u.Username, &u.Email, &u.FullName, &u.RoleID, &u.RoleName,
		&u.OfficeID, &u.OfficeName, &u.Status, &u.LastLogin, &u.CreatedAt,
	)
	return u, err
}

func (r *Users) List(ctx context.Context) ([]fleet.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		select`+userColumns+`
		from users u
		join roles r on u.role_id = r.id
		join offices o on u.office_id = o.id
		order by u.username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []fleet.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (r *Users) Get(ctx context.Context, id int64) (fleet.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `
		select`+userColumns+`
		from users u
		join roles r on u.role_id = r.id
		join offices o on u.office_id = o.id
		where u.id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return fleet.User{}, fleet.ErrNotFound
	}
	if err != nil {
		return fleet.User{}, err
	}
	return u, nil
}

func (r *Users) Create(ctx context.Context, u fleet.User) (fleet.User, error) {
	err := r.db.QueryRowContext(ctx, `
		insert into users (username, email, full_name, password_hash, role_id, office_id, status)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning id, created_at
	`, u.Username, u.Email, u.FullName, u.PasswordHash, u.RoleID, u.OfficeID, u.Status,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fleet.User{}, mapWriteError(err)
	}
	u.PasswordHash = ""
	return u, nil
}

func (r *Users) Update(ctx context.Context, id int64, upd fleet.UserUpdate) error {
	var (
		setClauses []string
		args       []any
		idx        = 1
	)
	appendSet := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}
	if upd.Username != nil {
		appendSet("username", *upd.Username)
	}
	if upd.Email != nil {
		appendSet("email", *upd.Email)
	}
	if upd.FullName != nil {
		appendSet("full_name", *upd.FullName)
	}
	if upd.Password != nil {
		appendSet("password_hash", *upd.Password)
	}
	if upd.RoleID != nil {
		appendSet("role_id", *upd.RoleID)
	}
	if upd.OfficeID != nil {
		appendSet("office_id", *upd.OfficeID)
	}
	if len(setClauses) == 0 {
		return nil
	}
	query := fmt.Sprintf(`update users set %s where id = $%d`, strings.Join(setClauses, ", "), idx)
	args = append(args, id)

	return affectedOrNotFound(r.db.ExecContext(ctx, query, args...))
}

func (r *Users) SetStatus(ctx context.Context, id int64, status string) error {
	return affectedOrNotFound(r.db.ExecContext(ctx,
		`update users set status = $1 where id = $2`, status, id))
}

func (r *Users) Delete(ctx context.Context, id int64) error {
	return affectedOrNotFound(r.db.ExecContext(ctx,
		`delete from users where id = $1`, id))
}
