// Package auth exposes the login/signup/logout HTTP surface. Credentials
// are exchanged with the backend for an access/refresh token pair, which
// is stored server-side; the browser receives only the session cookie and
// the route-gating flag cookie.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sayonsom/workpal/internal/api"
	"github.com/sayonsom/workpal/internal/session"
)

// PublicCaller is the unauthenticated slice of the gateway client.
type PublicCaller interface {
	CallPublic(ctx context.Context, method, path string, body, out any) error
}

// Handler serves the auth endpoints.
type Handler struct {
	gw       PublicCaller
	sessions *session.Manager
}

// NewHandler creates the auth handler.
func NewHandler(gw PublicCaller, sessions *session.Manager) *Handler {
	return &Handler{gw: gw, sessions: sessions}
}

// RegisterRoutes mounts the auth endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/auth/signup", h.handleSignup)
	r.Post("/api/auth/login", h.handleLogin)
	r.Post("/api/auth/logout", h.handleLogout)
	r.Get("/api/auth/me", h.handleMe)
}

type credentialsRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	h.exchange(w, r, "/signup", true)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	h.exchange(w, r, "/login", false)
}

func (h *Handler) exchange(w http.ResponseWriter, r *http.Request, path string, requireName bool) {
	var req credentialsRequest
	if !api.DecodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" || (requireName && strings.TrimSpace(req.Name) == "") {
		api.Error(w, http.StatusBadRequest, "Missing required fields.")
		return
	}

	var tokens tokenResponse
	if err := h.gw.CallPublic(r.Context(), http.MethodPost, path, req, &tokens); err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		slog.Error("Backend returned incomplete token pair", "path", path)
		api.Error(w, http.StatusBadGateway, "Authentication service unavailable.")
		return
	}

	if _, err := h.sessions.Save(r.Context(), w, r, tokens.AccessToken, tokens.RefreshToken); err != nil {
		slog.Error("Failed to persist session", "error", err)
		api.Error(w, http.StatusInternalServerError, "Failed to establish session.")
		return
	}

	api.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Best-effort token revocation upstream; local logout proceeds even
	// when the backend is unreachable.
	if sess, err := h.sessions.Get(r.Context(), r); err == nil && sess != nil && sess.RefreshToken != "" {
		body := map[string]string{"refresh_token": sess.RefreshToken}
		if err := h.gw.CallPublic(r.Context(), http.MethodPost, "/logout", body, nil); err != nil {
			slog.Debug("Backend logout failed", "error", err)
		}
	}

	if err := h.sessions.Clear(r.Context(), w, r); err != nil {
		slog.Warn("Failed to clear session on logout", "error", err)
	}
	api.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, map[string]bool{
		"authenticated": h.sessions.IsPresent(r.Context(), r),
	})
}
