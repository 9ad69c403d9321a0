package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"fleetcore.org/internal/auth"
	"fleetcore.org/internal/fleet"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func vehicleRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "registration_number", "make", "model", "year",
		"category_id", "category_name", "assigned_employee_id", "employee_name",
		"department", "current_mileage", "status", "office_id", "office_name", "created_at",
	})
}

func TestVehiclesListAppliesScope(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`(?s)select.+from vehicles v.+where v\.status = 'active' and v\.office_id = \$1`).
		WithArgs(int64(2)).
		WillReturnRows(vehicleRows().AddRow(
			int64(1), "AB-123", "Toyota", "Hilux", 2022,
			int64(1), "Pickup", nil, "", "", int64(42000), "active",
			int64(2), "Regional Office", time.Now(),
		))

	vehicles, err := store.Vehicles().List(context.Background(), auth.Scope{OfficeID: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(vehicles) != 1 || vehicles[0].OfficeID != 2 {
		t.Fatalf("unexpected result %+v", vehicles)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestVehiclesListUnrestrictedScopeHasNoOfficeArg(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`(?s)select.+from vehicles v.+where v\.status = 'active' order by`).
		WillReturnRows(vehicleRows())

	if _, err := store.Vehicles().List(context.Background(), auth.Scope{All: true}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestVehiclesListByCategoryComposesFilters(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`(?s)select.+from vehicles v.+where v\.category_id = \$1 and v\.office_id = \$2`).
		WithArgs(int64(5), int64(2)).
		WillReturnRows(vehicleRows().AddRow(
			int64(1), "AB-123", "Toyota", "Hilux", 2022,
			int64(5), "Pickup", nil, "", "", int64(42000), "inactive",
			int64(2), "Regional Office", time.Now(),
		))

	vehicles, err := store.Vehicles().ListByCategory(context.Background(), auth.Scope{OfficeID: 2}, 5)
	if err != nil {
		t.Fatalf("ListByCategory: %v", err)
	}
	// Inactive vehicles stay in the category listing.
	if len(vehicles) != 1 || vehicles[0].Status != "inactive" {
		t.Fatalf("unexpected result %+v", vehicles)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestVehiclesGetOutOfScopeIsNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`(?s)select.+from vehicles v.+where v\.id = \$1 and v\.office_id = \$2`).
		WithArgs(int64(9), int64(2)).
		WillReturnRows(vehicleRows())

	_, err := store.Vehicles().Get(context.Background(), auth.Scope{OfficeID: 2}, 9)
	if !errors.Is(err, fleet.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestVehiclesUpdateMileageZeroRowsIsNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec(`update vehicles v set current_mileage = \$1 where v\.id = \$2 and v\.office_id = \$3`).
		WithArgs(int64(50000), int64(9), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Vehicles().UpdateMileage(context.Background(), auth.Scope{OfficeID: 2}, 9, 50000)
	if !errors.Is(err, fleet.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestVehiclesDeleteScoped(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec(`delete from vehicles v where v\.id = \$1 and v\.office_id = \$2`).
		WithArgs(int64(4), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Vehicles().Delete(context.Background(), auth.Scope{OfficeID: 2}, 4); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
