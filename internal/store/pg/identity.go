package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"fleetcore.org/internal/auth"
	"fleetcore.org/internal/fleet"
)

const identityColumns = `
	u.id, u.username, u.email, u.full_name, u.password_hash, u.status,
	u.role_id, r.name, r.permissions,
	u.office_id, o.name`

func scanUserRecord(row *sql.Row) (auth.UserRecord, error) {
	var rec auth.UserRecord
	err := row.Scan(
		&rec.ID, &rec.Username, &rec.Email, &rec.FullName, &rec.PasswordHash, &rec.Status,
		&rec.RoleID, &rec.RoleName, &rec.RawPermissions,
		&rec.OfficeID, &rec.OfficeName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.UserRecord{}, fleet.ErrNotFound
	}
	if err != nil {
		return auth.UserRecord{}, err
	}
	return rec, nil
}

// FindActiveUserByUsername resolves the user->role->office join for login.
// Only active accounts are eligible.
func (s *Store) FindActiveUserByUsername(ctx context.Context, username string) (auth.UserRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		select`+identityColumns+`
		from users u
		join roles r on u.role_id = r.id
		join offices o on u.office_id = o.id
		where u.username = $1 and u.status = 'active'
	`, username)
	return scanUserRecord(row)
}

// FindUserByID resolves the same join by primary key, the bearer-token path.
func (s *Store) FindUserByID(ctx context.Context, id int64) (auth.UserRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		select`+identityColumns+`
		from users u
		join roles r on u.role_id = r.id
		join offices o on u.office_id = o.id
		where u.id = $1
	`, id)
	return scanUserRecord(row)
}

// StampLastLogin records a successful login.
func (s *Store) StampLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `update users set last_login = $1 where id = $2`, at, id)
	return err
}
