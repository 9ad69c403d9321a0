package auth

import "errors"

var (
	// ErrUnauthenticated means no fully populated identity was presented.
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	// ErrForbidden means the identity lacks the permission for the action.
	ErrForbidden = errors.New("auth: forbidden")
	// ErrInvalidCredentials is the single rejection for unknown username,
	// inactive account and wrong password alike.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrNoOffice means office scoping could not be determined for a
	// caller that is not exempt from it. Callers must fail closed.
	ErrNoOffice = errors.New("auth: office scope unavailable")
	// ErrInvalidToken indicates a bearer token failed validation.
	ErrInvalidToken = errors.New("auth: invalid token")
)
