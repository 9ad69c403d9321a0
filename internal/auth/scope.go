package auth

import "fmt"

// Scope restricts a query or write to the caller's office. It is always
// intersected with whatever filters the repository applies itself; it never
// replaces them.
type Scope struct {
	// All marks the distinguished all-offices role. No rows are excluded.
	All bool
	// OfficeID is the partition the caller is confined to when All is false.
	OfficeID int64
}

// ScopeFor derives the office scope from an identity. If the identity is
// neither flagged all-offices nor bound to an office the scope cannot be
// determined and the operation must fail closed.
func ScopeFor(id Identity) (Scope, error) {
	if id.AllOffices {
		return Scope{All: true}, nil
	}
	if id.OfficeID <= 0 {
		return Scope{}, ErrNoOffice
	}
	return Scope{OfficeID: id.OfficeID}, nil
}

// Allows is the in-memory predicate: may the caller touch a row that
// belongs to officeID?
func (s Scope) Allows(officeID int64) bool {
	return s.All || officeID == s.OfficeID
}

// SQL renders the scope as an AND-composable predicate fragment for the
// given table alias, using $argn for the office id placeholder. An
// unrestricted scope renders as the empty fragment with no argument.
//
//	clause, args := scope.SQL("v", 3)
//	// clause == " and v.office_id = $3" for office-bound scopes
func (s Scope) SQL(alias string, argn int) (string, []any) {
	if s.All {
		return "", nil
	}
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	return fmt.Sprintf(" and %soffice_id = $%d", prefix, argn), []any{s.OfficeID}
}
