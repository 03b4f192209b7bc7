package session

import (
	"context"
	"net/http"
)

type contextKey int

const sessionIDKey contextKey = iota

// IDFromContext extracts the session ID from the request context.
func IDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// Require is middleware that resolves the request's session and injects
// its ID into the context. Requests without a stored access token get a
// 401; route-level gating may have let them through cosmetically, but
// data access always re-derives authorization here.
func (m *Manager) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.Get(r.Context(), r)
		if err != nil {
			http.Error(w, `{"error":"failed to load session"}`, http.StatusInternalServerError)
			return
		}
		if !sess.HasAccessToken() {
			http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), sessionIDKey, sess.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
