// Package session implements the server-side token store for browser
// sessions. The browser holds only an opaque session ID cookie plus a
// non-cryptographic "auth" flag cookie used for route gating; the backend
// access and refresh tokens never leave the server.
package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sayonsom/workpal/internal/domain"
	"github.com/sayonsom/workpal/internal/store"
)

const (
	// CookieName is the opaque session ID cookie.
	CookieName = "workpal_session"
	// AuthFlagCookieName is a UX convenience flag only. It carries no
	// authorization weight; real authorization is the bearer token sent
	// to the backend on every API call.
	AuthFlagCookieName = "auth"
	authFlagValue      = "1"
)

// Manager owns session rows and the paired cookies.
type Manager struct {
	repo   store.Repository
	ttl    time.Duration
	secure bool
}

// NewManager creates a session manager. Cookies are marked Secure outside
// of development.
func NewManager(repo store.Repository, ttl time.Duration, isDev bool) *Manager {
	return &Manager{repo: repo, ttl: ttl, secure: !isDev}
}

// Save persists both tokens under the request's session ID (minting a new
// ID when none exists) and sets the session and auth-flag cookies.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, r *http.Request, access, refresh string) (string, error) {
	sessionID := idFromRequest(r)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	now := time.Now()
	if err := m.repo.UpsertSession(ctx, &domain.Session{
		ID:           sessionID,
		AccessToken:  access,
		RefreshToken: refresh,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	m.setCookie(w, CookieName, sessionID, true)
	m.setCookie(w, AuthFlagCookieName, authFlagValue, false)
	return sessionID, nil
}

// SaveAccessOnly updates the access token of an existing session, leaving
// the refresh token in place. Used after a successful token refresh.
func (m *Manager) SaveAccessOnly(ctx context.Context, sessionID, access string) error {
	return m.repo.UpdateAccessToken(ctx, sessionID, access)
}

// Get loads the session identified by the request cookie. Returns
// (nil, nil) when no session cookie is present or the row is gone.
func (m *Manager) Get(ctx context.Context, r *http.Request) (*domain.Session, error) {
	sessionID := idFromRequest(r)
	if sessionID == "" {
		return nil, nil
	}
	return m.repo.GetSession(ctx, sessionID)
}

// GetByID loads a session by its ID directly.
func (m *Manager) GetByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	return m.repo.GetSession(ctx, sessionID)
}

// Clear removes the session row and expires both cookies. Safe to call for
// requests with no session.
func (m *Manager) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	m.expireCookie(w, CookieName, true)
	m.expireCookie(w, AuthFlagCookieName, false)

	sessionID := idFromRequest(r)
	if sessionID == "" {
		return nil
	}
	if err := m.repo.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// ClearByID removes only the session row, for call sites that have no
// response writer (e.g. the gateway after a failed refresh).
func (m *Manager) ClearByID(ctx context.Context, sessionID string) error {
	return m.repo.DeleteSession(ctx, sessionID)
}

// IsPresent reports whether the request maps to a stored access token.
// Presence only; validity is discovered on the first rejected backend call.
func (m *Manager) IsPresent(ctx context.Context, r *http.Request) bool {
	sess, err := m.Get(ctx, r)
	if err != nil {
		return false
	}
	return sess.HasAccessToken()
}

func (m *Manager) setCookie(w http.ResponseWriter, name, value string, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		Expires:  time.Now().Add(m.ttl),
		HttpOnly: httpOnly,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.secure,
	})
}

func (m *Manager) expireCookie(w http.ResponseWriter, name string, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: httpOnly,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.secure,
	})
}

func idFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}
