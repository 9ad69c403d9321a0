package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/sessions"

	"fleetcore.org/internal/auth"
)

const sessionName = "fleet_session"

// SessionManager persists the materialized identity snapshot in a signed
// cookie. The snapshot is taken at login and deliberately never refreshed:
// role edits apply to the next login, not to open sessions.
type SessionManager struct {
	store *sessions.CookieStore
}

func NewSessionManager(secret string) *SessionManager {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   8 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store}
}

// Save writes the identity into the session cookie.
func (m *SessionManager) Save(w http.ResponseWriter, r *http.Request, id auth.Identity) error {
	payload, err := json.Marshal(id)
	if err != nil {
		return err
	}
	// A fresh session drops whatever a stale or tampered cookie carried.
	sess := sessions.NewSession(m.store, sessionName)
	sess.Options = m.store.Options
	sess.IsNew = true
	sess.Values["identity"] = string(payload)
	return m.store.Save(r, w, sess)
}

// Load reconstructs the identity from the cookie. Any decode failure or a
// partially populated snapshot reads as "not logged in".
func (m *SessionManager) Load(r *http.Request) (auth.Identity, error) {
	sess, err := m.store.Get(r, sessionName)
	if err != nil {
		return auth.Identity{}, auth.ErrUnauthenticated
	}
	raw, ok := sess.Values["identity"].(string)
	if !ok || raw == "" {
		return auth.Identity{}, auth.ErrUnauthenticated
	}
	var id auth.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return auth.Identity{}, auth.ErrUnauthenticated
	}
	if !id.Valid() {
		return auth.Identity{}, auth.ErrUnauthenticated
	}
	return id, nil
}

// Clear expires the session cookie. Get hands back a usable session even
// when the incoming cookie fails to decode, so logout always succeeds.
func (m *SessionManager) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.store.Get(r, sessionName)
	sess.Options.MaxAge = -1
	sess.Values = map[any]any{}
	return m.store.Save(r, w, sess)
}
