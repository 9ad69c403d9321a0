package auth

// Identity is the session-held snapshot of a user's role, office and
// permissions, materialized once at login. Role edits made afterwards do
// not reach sessions that are already open.
type Identity struct {
	UserID      int64           `json:"user_id"`
	Username    string          `json:"username"`
	FullName    string          `json:"full_name"`
	RoleID      int64           `json:"role_id"`
	RoleName    string          `json:"role_name"`
	OfficeID    int64           `json:"office_id"`
	OfficeName  string          `json:"office_name"`
	AllOffices  bool            `json:"all_offices"`
	Permissions map[string]bool `json:"permissions"`
}

// Valid reports whether the identity is fully populated. A partially
// populated identity is treated as unauthenticated, never as a lesser
// authenticated state.
func (id Identity) Valid() bool {
	return id.UserID > 0 &&
		id.Username != "" &&
		id.RoleID > 0 &&
		id.RoleName != "" &&
		id.OfficeID > 0 &&
		id.Permissions != nil
}

// HasPermission answers the permission oracle query. A missing map or
// missing key is false: the check fails closed.
func (id Identity) HasPermission(key string) bool {
	if id.Permissions == nil {
		return false
	}
	return id.Permissions[key]
}
