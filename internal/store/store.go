// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"
)

// Repository persists generator output so repeated prompts can skip the
// generator. It holds no solve results.
type Repository interface {
	// GetPlan returns the cached text for key and its write time if it is
	// younger than maxAge.
	GetPlan(ctx context.Context, key string, maxAge time.Duration) (string, time.Time, bool, error)

	// PutPlan stores or replaces the cached text for key.
	PutPlan(ctx context.Context, key, prompt, plan string) error

	// PurgePlans removes entries older than ttl and returns how many were removed.
	PurgePlans(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
