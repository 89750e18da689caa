package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/stepwise/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// WAL mode for concurrent readers while the janitor writes.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS plan_cache (
		cache_key TEXT PRIMARY KEY,
		prompt TEXT NOT NULL,
		plan TEXT NOT NULL,
		hits INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_plan_cache_created ON plan_cache(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetPlan retrieves a fresh cached plan with its write time and bumps its hit
// counter.
func (s *SQLiteStore) GetPlan(ctx context.Context, key string, maxAge time.Duration) (string, time.Time, bool, error) {
	query := `SELECT plan, created_at FROM plan_cache WHERE cache_key = ?`

	var plan string
	var createdUnix int64
	err := s.db.QueryRowContext(ctx, query, key).Scan(&plan, &createdUnix)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, false, nil
	}
	if err != nil {
		return "", time.Time{}, false, fmt.Errorf("scan plan row: %w", err)
	}

	createdAt := time.Unix(createdUnix, 0)
	if maxAge > 0 && s.now().Sub(createdAt) >= maxAge {
		return "", time.Time{}, false, nil
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE plan_cache SET hits = hits + 1 WHERE cache_key = ?`, key); err != nil {
		slog.Debug("failed to bump plan cache hits", "error", err)
	}

	return plan, createdAt, true, nil
}

// PutPlan creates or replaces a cached plan. Lock conflicts are retried with
// exponential backoff.
func (s *SQLiteStore) PutPlan(ctx context.Context, key, prompt, plan string) error {
	query := `
	INSERT INTO plan_cache (cache_key, prompt, plan, hits, created_at, updated_at)
	VALUES (?, ?, ?, 0, ?, ?)
	ON CONFLICT(cache_key) DO UPDATE SET
		plan = excluded.plan,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at`

	maxRetries := 3
	baseDelay := 50 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		now := s.now().Unix()
		_, err = s.db.ExecContext(ctx, query, key, prompt, plan, now, now)
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<i) // 50ms, 100ms, 200ms
		slog.Debug("PutPlan hit a locked database, retrying",
			"attempt", i+1,
			"delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("upsert plan: %w", err)
}

// PurgePlans removes entries older than ttl.
func (s *SQLiteStore) PurgePlans(ctx context.Context, ttl time.Duration) (int64, error) {
	threshold := s.now().Add(-ttl).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM plan_cache WHERE created_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("purge plans: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
