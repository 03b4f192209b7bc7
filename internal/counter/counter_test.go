package counter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestUnconfiguredClient(t *testing.T) {
	c := New("", "")
	if _, err := c.Get(context.Background(), "beta_signups"); !errors.Is(err, ErrUnconfigured) {
		t.Errorf("Expected ErrUnconfigured from Get, got %v", err)
	}
	if _, err := c.Incr(context.Background(), "beta_signups"); !errors.Is(err, ErrUnconfigured) {
		t.Errorf("Expected ErrUnconfigured from Incr, got %v", err)
	}
}

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get/beta_signups" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer token-1" {
			t.Errorf("Missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		fmt.Fprint(w, `{"result":"1041"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "token-1")
	n, err := c.Get(context.Background(), "beta_signups")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if n != 1041 {
		t.Errorf("Expected 1041, got %d", n)
	}
}

func TestGetMissingKeyIsZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":null}`)
	}))
	defer srv.Close()

	n, err := New(srv.URL, "t").Get(context.Background(), "beta_signups")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 for a missing key, got %d", n)
	}
}

func TestGetNonNumericValueFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":"lots"}`)
	}))
	defer srv.Close()

	if _, err := New(srv.URL, "t").Get(context.Background(), "beta_signups"); err == nil {
		t.Fatal("Expected error for a non-numeric value")
	}
}

func TestIncr(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/incr/beta_signups" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"result":1042}`)
	}))
	defer srv.Close()

	n, err := New(srv.URL, "t").Incr(context.Background(), "beta_signups")
	if err != nil {
		t.Fatalf("Incr failed: %v", err)
	}
	if n != 1042 {
		t.Errorf("Expected 1042, got %d", n)
	}
}

func TestStoreErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := New(srv.URL, "t").Get(context.Background(), "beta_signups"); err == nil {
		t.Fatal("Expected error for a 503 from the store")
	}
}
