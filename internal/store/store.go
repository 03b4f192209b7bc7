// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/sayonsom/workpal/internal/domain"
)

// Repository defines the interface for persisting browser sessions.
type Repository interface {
	// GetSession retrieves a session by its ID. Returns (nil, nil) when
	// the session does not exist.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// UpsertSession creates or replaces a session record.
	UpsertSession(ctx context.Context, session *domain.Session) error

	// UpdateAccessToken replaces only the access token of an existing
	// session (used after a token refresh).
	UpdateAccessToken(ctx context.Context, sessionID, accessToken string) error

	// DeleteSession removes a session record.
	DeleteSession(ctx context.Context, sessionID string) error

	// DeleteExpiredSessions removes sessions whose last update is older
	// than ttl and reports how many were deleted.
	DeleteExpiredSessions(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
