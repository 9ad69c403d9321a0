package auth

import (
	"testing"
)

func TestDecodePermissionsRejectsUnknownKeys(t *testing.T) {
	raw := []byte(`{"vehicles_view": true, "launch_missiles": true}`)
	if _, err := DecodePermissions(raw); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestDecodePermissionsEmptyPayloadDeniesEverything(t *testing.T) {
	for _, raw := range [][]byte{nil, {}, []byte(`{}`)} {
		perms, err := DecodePermissions(raw)
		if err != nil {
			t.Fatalf("DecodePermissions(%q): %v", raw, err)
		}
		id := Identity{
			UserID: 1, Username: "u", RoleID: 1, RoleName: "r",
			OfficeID: 1, Permissions: perms,
		}
		for _, key := range AllPermissions {
			if id.HasPermission(key) {
				t.Fatalf("empty map granted %s", key)
			}
		}
	}
}

func TestDecodePermissionsKeepsExplicitDenials(t *testing.T) {
	raw := []byte(`{"fuel_logs_view": true, "fuel_logs_edit": false}`)
	perms, err := DecodePermissions(raw)
	if err != nil {
		t.Fatalf("DecodePermissions: %v", err)
	}
	id := Identity{
		UserID: 1, Username: "u", RoleID: 1, RoleName: "r",
		OfficeID: 1, Permissions: perms,
	}
	if !id.HasPermission(PermFuelLogsView) {
		t.Fatal("view should be granted")
	}
	if id.HasPermission(PermFuelLogsEdit) {
		t.Fatal("view must not imply edit")
	}
}

func TestHasPermissionFailsClosedPerKey(t *testing.T) {
	// Granting every key but one must not leak the missing one.
	for _, missing := range AllPermissions {
		perms := make(map[string]bool, len(AllPermissions))
		for _, key := range AllPermissions {
			if key != missing {
				perms[key] = true
			}
		}
		id := Identity{
			UserID: 1, Username: "u", RoleID: 1, RoleName: "r",
			OfficeID: 1, Permissions: perms,
		}
		if id.HasPermission(missing) {
			t.Fatalf("absent key %s was granted", missing)
		}
	}
}

func TestDecodePermissionsMalformedJSON(t *testing.T) {
	if _, err := DecodePermissions([]byte(`{"vehicles_view": `)); err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if _, err := DecodePermissions([]byte(`["vehicles_view"]`)); err == nil {
		t.Fatal("expected error for non-object payload")
	}
}
