package generator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultCacheSize = 256
	defaultCacheTTL  = 24 * time.Hour
)

// Cache lookup outcomes reported to CacheObserver.
const (
	CacheHitMemory = "hit_memory"
	CacheHitStore  = "hit_store"
	CacheMiss      = "miss"
)

// Backing is a durable second cache tier. GetPlan reports when the entry was
// written so the memory tier keeps the original age.
type Backing interface {
	GetPlan(ctx context.Context, key string, maxAge time.Duration) (string, time.Time, bool, error)
	PutPlan(ctx context.Context, key, prompt, plan string) error
}

// CacheObserver receives one call per lookup.
type CacheObserver interface {
	ObserveCache(result string)
}

// CacheConfig controls the caching decorator.
type CacheConfig struct {
	Size int
	TTL  time.Duration
}

type cacheEntry struct {
	text     string
	storedAt time.Time
}

// Cached memoises successful responses of another generator, keyed by the
// SHA-256 of the prompt. Lookups go memory, then backing store, then the
// wrapped generator. Errors are never cached.
type Cached struct {
	next     Generator
	mem      *lru.Cache[string, cacheEntry]
	backing  Backing
	ttl      time.Duration
	observer CacheObserver
	logger   *slog.Logger
	now      func() time.Time
}

// NewCached wraps next. backing and observer may be nil.
func NewCached(next Generator, backing Backing, cfg CacheConfig, observer CacheObserver, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Size <= 0 {
		cfg.Size = defaultCacheSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultCacheTTL
	}
	// lru.New only errors on non-positive size which we guard above.
	mem, _ := lru.New[string, cacheEntry](cfg.Size)
	return &Cached{
		next:     next,
		mem:      mem,
		backing:  backing,
		ttl:      cfg.TTL,
		observer: observer,
		logger:   logger,
		now:      time.Now,
	}
}

// Generate returns a cached response when a fresh one exists.
func (c *Cached) Generate(ctx context.Context, prompt string) (string, error) {
	key := CacheKey(prompt)

	if e, ok := c.mem.Get(key); ok {
		if c.now().Sub(e.storedAt) < c.ttl {
			c.observe(CacheHitMemory)
			return e.text, nil
		}
		c.mem.Remove(key)
	}

	if c.backing != nil {
		text, createdAt, ok, err := c.backing.GetPlan(ctx, key, c.ttl)
		if err != nil {
			c.logger.Warn("plan cache read failed", "error", err)
		} else if ok {
			if c.now().Sub(createdAt) < c.ttl {
				c.mem.Add(key, cacheEntry{text: text, storedAt: createdAt})
			}
			c.observe(CacheHitStore)
			return text, nil
		}
	}

	c.observe(CacheMiss)
	text, err := c.next.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	c.mem.Add(key, cacheEntry{text: text, storedAt: c.now()})
	if c.backing != nil {
		if err := c.backing.PutPlan(ctx, key, prompt, text); err != nil {
			c.logger.Warn("plan cache write failed", "error", err)
		}
	}
	return text, nil
}

// Len returns the number of in-memory entries.
func (c *Cached) Len() int {
	return c.mem.Len()
}

func (c *Cached) observe(result string) {
	if c.observer != nil {
		c.observer.ObserveCache(result)
	}
}

// CacheKey derives the cache key for a prompt.
func CacheKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
