package pg

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"fleetcore.org/internal/auth"
	"fleetcore.org/internal/fleet"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// Store bundles every repository on one shared connection pool. The
// identity lookups the auth service needs live directly on Store; the
// entity repositories hang off the accessors below.
type Store struct {
	db *sql.DB
}

var _ auth.IdentityStore = (*Store)(nil)

// Open connects to Postgres through the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle (tests use this with sqlmock).
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Vehicles() *Vehicles       { return &Vehicles{db: s.db} }
func (s *Store) FuelLogs() *FuelLogs       { return &FuelLogs{db: s.db} }
func (s *Store) Maintenance() *Maintenance { return &Maintenance{db: s.db} }
func (s *Store) Employees() *Employees     { return &Employees{db: s.db} }
func (s *Store) Departments() *Departments { return &Departments{db: s.db} }
func (s *Store) Users() *Users             { return &Users{db: s.db} }
func (s *Store) Lookups() *Lookups         { return &Lookups{db: s.db} }
func (s *Store) Reports() *Reports         { return &Reports{db: s.db} }

// FleetStores assembles the repository bundle the domain service takes.
func (s *Store) FleetStores() fleet.Stores {
	return fleet.Stores{
		Vehicles:    s.Vehicles(),
		FuelLogs:    s.FuelLogs(),
		Maintenance: s.Maintenance(),
		Employees:   s.Employees(),
		Departments: s.Departments(),
		Users:       s.Users(),
		Lookups:     s.Lookups(),
		Reports:     s.Reports(),
	}
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// mapWriteError folds driver errors into domain sentinels without leaking
// constraint or schema names to callers.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation, pgErrForeignKeyViolation:
			return fleet.ErrConflict
		}
	}
	return err
}

// affectedOrNotFound turns a zero-row write into ErrNotFound, which is also
// what an out-of-scope row looks like to the caller.
func affectedOrNotFound(res sql.Result, err error) error {
	if err != nil {
		return mapWriteError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fleet.ErrNotFound
	}
	return nil
}
