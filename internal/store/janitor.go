package store

import (
	"context"
	"log/slog"
	"time"
)

const defaultJanitorInterval = 10 * time.Minute

// StartJanitor runs a background goroutine that periodically purges cache
// entries older than ttl. It stops when ctx is done; the returned channel is
// closed once the goroutine has exited.
func StartJanitor(ctx context.Context, repo Repository, interval, ttl time.Duration) <-chan struct{} {
	if interval <= 0 {
		interval = defaultJanitorInterval
	}
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		slog.Info("Plan cache janitor started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				purgeExpired(ctx, repo, ttl)
			case <-ctx.Done():
				slog.Info("Plan cache janitor shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return done
}

func purgeExpired(ctx context.Context, repo Repository, ttl time.Duration) {
	deleted, err := repo.PurgePlans(ctx, ttl)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("Plan cache janitor failed to purge", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Plan cache janitor purged expired entries", "count", deleted)
	}
}
