package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"fleetcore.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/login",
	"/v1/logout",
	"/v1/token",
	"/metrics",
	"/healthz",
	"/readyz",
	"/",
}

// withAuth resolves the caller's identity before any /v1 handler runs.
// Browser sessions are checked first, then API bearer tokens. A session
// carries the login-time snapshot; a token re-materializes the identity
// from the directory on every request.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if id, err := a.sessions.Load(r); err == nil {
			ctx := auth.ContextWithIdentity(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if token, err := extractBearerToken(r.Header.Get(authHeader)); err == nil {
			id, err := a.auth.AuthenticateToken(r.Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrUnauthenticated) {
					writeError(w, r, http.StatusUnauthorized, "invalid token")
				} else {
					writeError(w, r, http.StatusInternalServerError, "authentication error")
				}
				return
			}
			ctx := auth.ContextWithIdentity(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		a.unauthenticated(w, r)
	})
}

// ensurePermission composes the identity gate with one permission check.
// It answers false after writing the response; handlers just return.
func (a *API) ensurePermission(w http.ResponseWriter, r *http.Request, perm string) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		a.unauthenticated(w, r)
		return auth.Identity{}, false
	}
	if !id.HasPermission(perm) {
		a.forbidden(w, r)
		return auth.Identity{}, false
	}
	return id, true
}

// scopeFor converts the identity into the query predicate. A non-super
// identity with no office fails closed as forbidden.
func (a *API) scopeFor(w http.ResponseWriter, r *http.Request, id auth.Identity) (auth.Scope, bool) {
	scope, err := auth.ScopeFor(id)
	if err != nil {
		a.forbidden(w, r)
		return auth.Scope{}, false
	}
	return scope, true
}

func (a *API) unauthenticated(w http.ResponseWriter, r *http.Request) {
	if wantsHTML(r) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	writeError(w, r, http.StatusUnauthorized, "authentication required")
}

func (a *API) forbidden(w http.ResponseWriter, r *http.Request) {
	if wantsHTML(r) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	writeError(w, r, http.StatusForbidden, "permission denied")
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
