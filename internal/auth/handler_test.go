package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sayonsom/workpal/internal/domain"
	"github.com/sayonsom/workpal/internal/gateway"
	"github.com/sayonsom/workpal/internal/session"
)

type fakeRepo struct {
	sessions map[string]*domain.Session
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: make(map[string]*domain.Session)}
}

func (f *fakeRepo) GetSession(_ context.Context, id string) (*domain.Session, error) {
	return f.sessions[id], nil
}

func (f *fakeRepo) UpsertSession(_ context.Context, s *domain.Session) error {
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeRepo) UpdateAccessToken(_ context.Context, id, token string) error {
	if s, ok := f.sessions[id]; ok {
		s.AccessToken = token
	}
	return nil
}

func (f *fakeRepo) DeleteSession(_ context.Context, id string) error {
	delete(f.sessions, id)
	return nil
}

func (f *fakeRepo) DeleteExpiredSessions(context.Context, time.Duration) (int64, error) {
	return 0, nil
}

func (f *fakeRepo) Ping(context.Context) error { return nil }
func (f *fakeRepo) Close() error               { return nil }

type fakeBackend struct {
	tokens map[string]string
	err    error
	path   string
	body   any
}

func (f *fakeBackend) CallPublic(_ context.Context, _, path string, body, out any) error {
	f.path = path
	f.body = body
	if f.err != nil {
		return f.err
	}
	if out == nil {
		return nil
	}
	raw, _ := json.Marshal(f.tokens)
	return json.Unmarshal(raw, out)
}

func newAuthRouter(backend *fakeBackend, repo *fakeRepo) http.Handler {
	r := chi.NewRouter()
	NewHandler(backend, session.NewManager(repo, time.Hour, true)).RegisterRoutes(r)
	return r
}

func post(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestLoginEstablishesSession(t *testing.T) {
	repo := newFakeRepo()
	backend := &fakeBackend{tokens: map[string]string{"access_token": "at-1", "refresh_token": "rt-1"}}
	router := newAuthRouter(backend, repo)

	rec := post(t, router, "/api/auth/login", `{"email":"ada@example.com","password":"pw"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if backend.path != "/login" {
		t.Errorf("Expected credentials sent to /login, got %q", backend.path)
	}

	if len(repo.sessions) != 1 {
		t.Fatalf("Expected 1 stored session, got %d", len(repo.sessions))
	}
	for _, s := range repo.sessions {
		if s.AccessToken != "at-1" || s.RefreshToken != "rt-1" {
			t.Errorf("Unexpected stored tokens %+v", s)
		}
	}

	var hasSession, hasFlag bool
	for _, c := range rec.Result().Cookies() {
		switch c.Name {
		case session.CookieName:
			hasSession = true
		case session.AuthFlagCookieName:
			hasFlag = c.Value == "1"
		}
	}
	if !hasSession || !hasFlag {
		t.Error("Expected both session and auth flag cookies set")
	}
}

func TestSignupRequiresName(t *testing.T) {
	router := newAuthRouter(&fakeBackend{}, newFakeRepo())

	rec := post(t, router, "/api/auth/signup", `{"email":"ada@example.com","password":"pw"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for signup without name, got %d", rec.Code)
	}
}

func TestLoginValidation(t *testing.T) {
	backend := &fakeBackend{}
	router := newAuthRouter(backend, newFakeRepo())

	for _, body := range []string{`{}`, `{"email":"ada@example.com"}`, `{"password":"pw"}`, `{"email":" ","password":"pw"}`} {
		rec := post(t, router, "/api/auth/login", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Body %s: expected 400, got %d", body, rec.Code)
		}
	}
	if backend.path != "" {
		t.Error("Backend must not be called for invalid credentials payloads")
	}
}

func TestLoginSurfacesBackendRejection(t *testing.T) {
	backend := &fakeBackend{err: &gateway.APIError{Status: http.StatusUnauthorized, Message: "invalid credentials"}}
	router := newAuthRouter(backend, newFakeRepo())

	rec := post(t, router, "/api/auth/login", `{"email":"ada@example.com","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["error"] != "invalid credentials" {
		t.Errorf("Unexpected error message %q", body["error"])
	}
}

func TestLoginRejectsIncompleteTokenPair(t *testing.T) {
	backend := &fakeBackend{tokens: map[string]string{"access_token": "at-1"}}
	router := newAuthRouter(backend, newFakeRepo())

	rec := post(t, router, "/api/auth/login", `{"email":"ada@example.com","password":"pw"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502 for a half token pair, got %d", rec.Code)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	repo := newFakeRepo()
	backend := &fakeBackend{tokens: map[string]string{"access_token": "at", "refresh_token": "rt"}}
	router := newAuthRouter(backend, repo)

	rec := post(t, router, "/api/auth/login", `{"email":"ada@example.com","password":"pw"}`)
	var sessionID string
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			sessionID = c.Value
		}
	}
	if sessionID == "" {
		t.Fatal("Expected a session cookie after login")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sessionID})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if repo.sessions[sessionID] != nil {
		t.Error("Expected session row deleted on logout")
	}
}

func TestMeReportsPresence(t *testing.T) {
	repo := newFakeRepo()
	backend := &fakeBackend{tokens: map[string]string{"access_token": "at", "refresh_token": "rt"}}
	router := newAuthRouter(backend, repo)

	check := func(cookie *http.Cookie, want bool) {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		if cookie != nil {
			req.AddCookie(cookie)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		var body map[string]bool
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode body: %v", err)
		}
		if body["authenticated"] != want {
			t.Errorf("Expected authenticated=%v, got %v", want, body["authenticated"])
		}
	}

	check(nil, false)

	rec := post(t, router, "/api/auth/login", `{"email":"ada@example.com","password":"pw"}`)
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			check(&http.Cookie{Name: c.Name, Value: c.Value}, true)
		}
	}
}
