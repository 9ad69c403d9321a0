package auth

import (
	"errors"
	"testing"
)

func TestScopeForAllOffices(t *testing.T) {
	id := Identity{
		UserID: 1, Username: "root", RoleID: 1, RoleName: "Super Admin",
		OfficeID: 1, AllOffices: true, Permissions: map[string]bool{},
	}
	scope, err := ScopeFor(id)
	if err != nil {
		t.Fatalf("ScopeFor: %v", err)
	}
	if !scope.All {
		t.Fatal("expected unrestricted scope")
	}
	clause, args := scope.SQL("v", 1)
	if clause != "" || args != nil {
		t.Fatalf("unrestricted scope must render empty, got %q %v", clause, args)
	}
	if !scope.Allows(1) || !scope.Allows(99) {
		t.Fatal("unrestricted scope must allow every office")
	}
}

func TestScopeForOfficeBound(t *testing.T) {
	id := Identity{
		UserID: 2, Username: "mgr", RoleID: 2, RoleName: "Office Manager",
		OfficeID: 7, Permissions: map[string]bool{},
	}
	scope, err := ScopeFor(id)
	if err != nil {
		t.Fatalf("ScopeFor: %v", err)
	}
	clause, args := scope.SQL("v", 3)
	if clause != " and v.office_id = $3" {
		t.Fatalf("unexpected clause %q", clause)
	}
	if len(args) != 1 || args[0] != int64(7) {
		t.Fatalf("unexpected args %v", args)
	}
	if scope.Allows(8) {
		t.Fatal("scope must reject foreign offices")
	}
	if !scope.Allows(7) {
		t.Fatal("scope must allow own office")
	}
}

func TestScopeForMissingOfficeFailsClosed(t *testing.T) {
	id := Identity{
		UserID: 3, Username: "lost", RoleID: 2, RoleName: "Office Manager",
		Permissions: map[string]bool{},
	}
	if _, err := ScopeFor(id); !errors.Is(err, ErrNoOffice) {
		t.Fatalf("expected ErrNoOffice, got %v", err)
	}
}

func TestScopeSQLWithoutAlias(t *testing.T) {
	scope := Scope{OfficeID: 4}
	clause, args := scope.SQL("", 1)
	if clause != " and office_id = $1" {
		t.Fatalf("unexpected clause %q", clause)
	}
	if len(args) != 1 || args[0] != int64(4) {
		t.Fatalf("unexpected args %v", args)
	}
}
