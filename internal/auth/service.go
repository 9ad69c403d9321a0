package auth

import (
	"context"
	"strings"
	"time"
)

// DefaultSuperRole is the role name exempt from office partitioning unless
// deployment configuration overrides it. It is compared by name: the
// distinguished role is data, not a structural constant.
const DefaultSuperRole = "Super Admin"

// dummyHash is a throwaway bcrypt digest compared against when the username
// does not resolve, so unknown-user and wrong-password rejections cost the
// same and stay externally indistinguishable.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// UserRecord is the flat user->role->office join the identity store returns.
type UserRecord struct {
	ID             int64
	Username       string
	Email          string
	FullName       string
	PasswordHash   string
	Status         string
	RoleID         int64
	RoleName       string
	RawPermissions []byte
	OfficeID       int64
	OfficeName     string
}

// IdentityStore is the persistence surface the auth service needs. The
// Postgres store satisfies it.
type IdentityStore interface {
	// FindActiveUserByUsername resolves an active-status user with role and
	// office joined. Missing or inactive users report fleet.ErrNotFound-like
	// absence via any error; the service folds every failure into the one
	// generic rejection.
	FindActiveUserByUsername(ctx context.Context, username string) (UserRecord, error)
	FindUserByID(ctx context.Context, id int64) (UserRecord, error)
	StampLastLogin(ctx context.Context, id int64, at time.Time) error
}

// Service materializes identities and answers login attempts.
type Service struct {
	store     IdentityStore
	superRole string
	now       func() time.Time

	tokenSecret []byte
	tokenTTL    time.Duration
	issuer      string
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithSuperRole overrides the all-offices role name.
func WithSuperRole(name string) ServiceOption {
	return func(s *Service) {
		if strings.TrimSpace(name) != "" {
			s.superRole = strings.TrimSpace(name)
		}
	}
}

// WithTokenSecret enables bearer token issuance for API clients.
func WithTokenSecret(secret string) ServiceOption {
	return func(s *Service) {
		if strings.TrimSpace(secret) != "" {
			s.tokenSecret = []byte(secret)
		}
	}
}

// WithTokenTTL overrides the bearer token lifetime.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) {
		if strings.TrimSpace(issuer) != "" {
			s.issuer = strings.TrimSpace(issuer)
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the auth service.
func NewService(store IdentityStore, opts ...ServiceOption) *Service {
	svc := &Service{
		store:     store,
		superRole: DefaultSuperRole,
		now:       time.Now,
		tokenTTL:  defaultTokenTTL,
		issuer:    defaultIssuer,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// SuperRole returns the configured all-offices role name.
func (s *Service) SuperRole() string { return s.superRole }

// Authenticate verifies the credentials and materializes the full identity.
// Unknown username, inactive account and wrong password all return the same
// ErrInvalidCredentials; the password hash is always verified so the
// failure modes cost the same.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Identity{}, ErrInvalidCredentials
	}
	rec, err := s.store.FindActiveUserByUsername(ctx, username)
	if err != nil {
		_ = VerifyPassword(dummyHash, password)
		return Identity{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(rec.PasswordHash, password); err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	id, err := s.materialize(rec)
	if err != nil {
		return Identity{}, err
	}
	if err := s.store.StampLastLogin(ctx, rec.ID, s.now().UTC()); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// Identity materializes a fresh identity for an already-authenticated user
// id, the bearer-token path. Inactive users are rejected.
func (s *Service) Identity(ctx context.Context, userID int64) (Identity, error) {
	rec, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return Identity{}, ErrUnauthenticated
	}
	if rec.Status != "active" {
		return Identity{}, ErrUnauthenticated
	}
	return s.materialize(rec)
}

func (s *Service) materialize(rec UserRecord) (Identity, error) {
	perms, err := DecodePermissions(rec.RawPermissions)
	if err != nil {
		return Identity{}, err
	}
	id := Identity{
		UserID:      rec.ID,
		Username:    rec.Username,
		FullName:    rec.FullName,
		RoleID:      rec.RoleID,
		RoleName:    rec.RoleName,
		OfficeID:    rec.OfficeID,
		OfficeName:  rec.OfficeName,
		AllOffices:  rec.RoleName == s.superRole,
		Permissions: perms,
	}
	if !id.Valid() {
		return Identity{}, ErrUnauthenticated
	}
	return id, nil
}
