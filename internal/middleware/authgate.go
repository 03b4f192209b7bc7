package middleware

import (
	"net/http"
	"strings"

	"github.com/sayonsom/workpal/internal/session"
)

// Paths gated behind the auth flag, and entry points authenticated users
// are bounced away from.
var (
	protectedPrefixes = []string{"/inbox", "/settings", "/admin"}
	entryPaths        = map[string]bool{"/": true, "/login": true}
)

// AuthGate redirects page requests based on the presence of the "auth=1"
// cookie: unauthenticated users are sent from protected pages to /login,
// and authenticated users are sent from / and /login to /inbox.
//
// The cookie is a UX convenience only and carries no authorization
// weight; every data request still authenticates against the backend
// with the session's bearer token.
func AuthGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only gate page navigations, never API or websocket traffic.
		if r.Method != http.MethodGet || strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/ws/") {
			next.ServeHTTP(w, r)
			return
		}

		authed := hasAuthFlag(r)

		if !authed && isProtected(r.URL.Path) {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		if authed && entryPaths[r.URL.Path] {
			http.Redirect(w, r, "/inbox", http.StatusFound)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func hasAuthFlag(r *http.Request) bool {
	c, err := r.Cookie(session.AuthFlagCookieName)
	return err == nil && c.Value == "1"
}

func isProtected(path string) bool {
	for _, prefix := range protectedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
