package pg

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"fleetcore.org/internal/fleet"
)

func TestUsersUpdateBuildsPartialSet(t *testing.T) {
	store, mock := newMock(t)

	email := "new@example.com"
	roleID := int64(3)
	mock.ExpectExec(`update users set email = \$1, role_id = \$2 where id = \$3`).
		WithArgs(email, roleID, int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Users().Update(context.Background(), 10, fleet.UserUpdate{
		Email:  &email,
		RoleID: &roleID,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUsersUpdateNoFieldsIsNoop(t *testing.T) {
	store, mock := newMock(t)

	if err := store.Users().Update(context.Background(), 10, fleet.UserUpdate{}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no statement should run: %v", err)
	}
}

func TestUsersCreateUniqueViolationIsConflict(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`(?s)insert into users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	_, err := store.Users().Create(context.Background(), fleet.User{
		Username: "jdoe", Email: "jdoe@example.com", FullName: "Jane Doe",
		PasswordHash: "hash", RoleID: 1, OfficeID: 1, Status: "active",
	})
	if !errors.Is(err, fleet.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUsersDeleteMissingIsNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec(`delete from users where id = \$1`).
		WithArgs(int64(44)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Users().Delete(context.Background(), 44); !errors.Is(err, fleet.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
