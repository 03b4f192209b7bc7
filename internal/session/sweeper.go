package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/sayonsom/workpal/internal/shared"
	"github.com/sayonsom/workpal/internal/store"
)

const sweepInterval = time.Hour

// StartSweeper runs a background goroutine that periodically deletes
// sessions that have not been touched within ttl. Bounded retries absorb
// transient SQLITE_BUSY failures.
func StartSweeper(ctx context.Context, repo store.Repository, ttl time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", sweepInterval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				sweepOnce(ctx, repo, ttl)
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepOnce(ctx context.Context, repo store.Repository, ttl time.Duration) {
	var deleted int64
	err := shared.RetrySQLite(ctx, 3, 100*time.Millisecond, func() error {
		var err error
		deleted, err = repo.DeleteExpiredSessions(ctx, ttl)
		return err
	})
	if err != nil {
		slog.Error("Session sweeper failed to delete expired sessions", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Session sweeper deleted expired sessions", "count", deleted)
	}
}
