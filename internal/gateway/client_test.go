package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sayonsom/workpal/internal/domain"
)

type fakeTokenStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{sessions: make(map[string]*domain.Session)}
}

func (f *fakeTokenStore) put(sess *domain.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *sess
	f.sessions[sess.ID] = &copy
}

func (f *fakeTokenStore) GetByID(_ context.Context, sessionID string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess := f.sessions[sessionID]
	if sess == nil {
		return nil, nil
	}
	copy := *sess
	return &copy, nil
}

func (f *fakeTokenStore) SaveAccessOnly(_ context.Context, sessionID, access string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sess := f.sessions[sessionID]; sess != nil {
		sess.AccessToken = access
	}
	return nil
}

func (f *fakeTokenStore) ClearByID(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sessionID)
	return nil
}

func seedSession(store *fakeTokenStore, id, access, refresh string) {
	store.put(&domain.Session{
		ID:           id,
		AccessToken:  access,
		RefreshToken: refresh,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	})
}

func TestCallRefreshesOnceAndRetries(t *testing.T) {
	var refreshCalls, dataCalls int32

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/refresh":
			atomic.AddInt32(&refreshCalls, 1)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"fresh-token"}`))
		case "/data":
			atomic.AddInt32(&dataCalls, 1)
			if r.Header.Get("Authorization") != "Bearer fresh-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"value":"ok"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer backend.Close()

	store := newFakeTokenStore()
	seedSession(store, "s1", "stale-token", "refresh-token")
	client := New(backend.URL, store)

	var out struct {
		Value string `json:"value"`
	}
	if err := client.Call(context.Background(), "s1", http.MethodGet, "/data", nil, &out); err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	if out.Value != "ok" {
		t.Errorf("Expected value ok, got %q", out.Value)
	}
	if n := atomic.LoadInt32(&refreshCalls); n != 1 {
		t.Errorf("Expected exactly 1 refresh call, got %d", n)
	}
	if n := atomic.LoadInt32(&dataCalls); n != 2 {
		t.Errorf("Expected original + one retry (2 data calls), got %d", n)
	}

	sess, _ := store.GetByID(context.Background(), "s1")
	if sess.AccessToken != "fresh-token" {
		t.Errorf("Expected stored access token updated to fresh-token, got %q", sess.AccessToken)
	}
}

func TestConcurrent401sFanInToOneRefresh(t *testing.T) {
	const concurrency = 8

	var refreshCalls int32
	var unauthorized int32
	allRejected := make(chan struct{})

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/refresh":
			// Hold the refresh until every caller has seen its 401, so
			// all of them are forced to fan in to this one call.
			<-allRejected
			atomic.AddInt32(&refreshCalls, 1)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"fresh-token"}`))
		case "/data":
			if r.Header.Get("Authorization") != "Bearer fresh-token" {
				if atomic.AddInt32(&unauthorized, 1) == concurrency {
					close(allRejected)
				}
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"value":"ok"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer backend.Close()

	store := newFakeTokenStore()
	seedSession(store, "s1", "stale-token", "refresh-token")
	client := New(backend.URL, store)

	var wg sync.WaitGroup
	errs := make(chan error, concurrency)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out struct {
				Value string `json:"value"`
			}
			errs <- client.Call(context.Background(), "s1", http.MethodGet, "/data", nil, &out)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Concurrent call failed: %v", err)
		}
	}
	if n := atomic.LoadInt32(&refreshCalls); n != 1 {
		t.Errorf("Expected exactly 1 refresh call for %d concurrent 401s, got %d", concurrency, n)
	}
}

func TestRefreshFailureClearsSession(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/refresh":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer backend.Close()

	store := newFakeTokenStore()
	seedSession(store, "s1", "stale-token", "dead-refresh-token")
	client := New(backend.URL, store)

	err := client.Call(context.Background(), "s1", http.MethodGet, "/data", nil, nil)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("Expected ErrSessionExpired, got %v", err)
	}

	sess, _ := store.GetByID(context.Background(), "s1")
	if sess != nil {
		t.Error("Expected session cleared after refresh failure")
	}
}

func TestNoRetryOnNon401Errors(t *testing.T) {
	var dataCalls int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&dataCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"backend down","code":"unavailable"}`))
	}))
	defer backend.Close()

	store := newFakeTokenStore()
	seedSession(store, "s1", "token", "refresh")
	client := New(backend.URL, store)

	err := client.Call(context.Background(), "s1", http.MethodGet, "/data", nil, nil)
	apiErr, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", apiErr.Status)
	}
	if apiErr.Code != "unavailable" || apiErr.Message != "backend down" {
		t.Errorf("Expected code/message from body, got %q/%q", apiErr.Code, apiErr.Message)
	}
	if n := atomic.LoadInt32(&dataCalls); n != 1 {
		t.Errorf("Expected no retry on 503, got %d calls", n)
	}
}

func TestErrorMessageFallsBackToStatusText(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer backend.Close()

	store := newFakeTokenStore()
	seedSession(store, "s1", "token", "refresh")
	client := New(backend.URL, store)

	err := client.Call(context.Background(), "s1", http.MethodGet, "/data", nil, nil)
	apiErr, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.Message != http.StatusText(http.StatusBadGateway) {
		t.Errorf("Expected status-text message, got %q", apiErr.Message)
	}
}

func TestNoContentYieldsEmptySuccess(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer backend.Close()

	store := newFakeTokenStore()
	seedSession(store, "s1", "token", "refresh")
	client := New(backend.URL, store)

	var out struct {
		Value string `json:"value"`
	}
	if err := client.Call(context.Background(), "s1", http.MethodDelete, "/thing", nil, &out); err != nil {
		t.Fatalf("Expected 204 to be an empty success, got %v", err)
	}
	if out.Value != "" {
		t.Errorf("Expected out untouched on 204, got %q", out.Value)
	}
}

func TestCallWithoutStoredTokenFails(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("No request should reach the backend without a token")
	}))
	defer backend.Close()

	client := New(backend.URL, newFakeTokenStore())
	err := client.Call(context.Background(), "missing", http.MethodGet, "/data", nil, nil)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("Expected ErrSessionExpired for unknown session, got %v", err)
	}
}
