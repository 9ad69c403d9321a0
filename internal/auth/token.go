package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer   = "fleetcore"
	defaultTokenTTL = 15 * time.Minute
)

// Claims are the JWT claims carried by API bearer tokens. The token only
// names the subject; permissions are re-materialized from the directory on
// every request, so a stale token cannot outlive a role change the way a
// browser session deliberately does.
type Claims struct {
	jwt.RegisteredClaims
}

// SupportsTokens reports whether bearer token issuance is configured.
func (s *Service) SupportsTokens() bool {
	return len(s.tokenSecret) > 0
}

// IssueToken authenticates the credentials and signs a short-lived HS256
// bearer token for non-browser API clients.
func (s *Service) IssueToken(ctx context.Context, username, password string) (string, time.Time, error) {
	if !s.SupportsTokens() {
		return "", time.Time{}, errors.New("token issuance is not configured")
	}
	id, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", time.Time{}, err
	}
	now := s.now().UTC()
	exp := now.Add(s.tokenTTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.tokenSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// AuthenticateToken validates a bearer token and materializes a fresh
// identity for its subject.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (Identity, error) {
	if !s.SupportsTokens() {
		return Identity{}, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.tokenSecret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, ErrInvalidToken
	}
	return s.Identity(ctx, userID)
}
