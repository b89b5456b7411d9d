// Package cache implements the two-tier genre classification cache: a
// process-local map in front of a durable record store. The memory tier is a
// throwaway accelerator rebuilt lazily from the durable tier; the durable
// tier is always treated as possibly behind and never as the sole truth
// during a request.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/justestif/moodfm/internal/db"
	"github.com/justestif/moodfm/internal/genre"
	"github.com/justestif/moodfm/internal/retry"
)

// TTL is the fixed lifetime of a cached classification. Entries older than
// this are misses and eligible for physical deletion.
const TTL = 7 * 24 * time.Hour

// Store is the durable tier contract, satisfied by db.GenreCacheRepository.
type Store interface {
	Get(ctx context.Context, key string) (*db.GenreCacheEntry, error)
	Upsert(ctx context.Context, entry *db.GenreCacheEntry) error
	Delete(ctx context.Context, key string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type memEntry struct {
	result    genre.Classification
	updatedAt time.Time
}

// GenreCache is the cache service, constructed once per process and injected
// into the classification entry point.
type GenreCache struct {
	mu      sync.RWMutex
	entries map[string]memEntry

	store Store
	log   *slog.Logger
	now   func() time.Time
}

// Option configures a GenreCache.
type Option func(*GenreCache)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *GenreCache) {
		if log != nil {
			c.log = log
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *GenreCache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a genre cache over the given durable store.
func New(store Store, opts ...Option) *GenreCache {
	c := &GenreCache{
		entries: make(map[string]memEntry),
		store:   store,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached classification for key, if present and within TTL.
// The memory tier is checked without I/O; on a miss the durable tier is read
// through the retry executor and, when fresh, hydrated into memory. Durable
// read failures are misses, never surfaced.
func (c *GenreCache) Get(ctx context.Context, key string) (genre.Classification, bool) {
	now := c.now()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && now.Sub(entry.updatedAt) < TTL {
		return entry.result, true
	}

	stored, err := retry.Do(ctx, "genre-cache-get", func(ctx context.Context) (*db.GenreCacheEntry, error) {
		return c.store.Get(ctx, key)
	}, retry.WithLogger(c.log))
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			c.log.Warn("durable cache read failed, treating as miss", "key", key, "error", err)
		}
		return genre.Classification{}, false
	}

	if now.Sub(stored.UpdatedAt) >= TTL {
		return genre.Classification{}, false
	}

	result := fromStored(stored)
	c.mu.Lock()
	c.entries[key] = memEntry{result: result, updatedAt: stored.UpdatedAt}
	c.mu.Unlock()

	return result, true
}

// Set stores a classification write-through: memory synchronously, then the
// durable tier through the retry executor. A durable failure is logged and
// swallowed; the memory tier keeps the fresher value for this process's
// lifetime.
func (c *GenreCache) Set(ctx context.Context, key string, result genre.Classification) {
	now := c.now()

	c.mu.Lock()
	c.entries[key] = memEntry{result: result, updatedAt: now}
	c.mu.Unlock()

	_, err := retry.Do(ctx, "genre-cache-set", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.store.Upsert(ctx, toStored(key, result, now))
	}, retry.WithLogger(c.log))
	if err != nil {
		c.log.Warn("durable cache write failed, memory tier retains value", "key", key, "error", err)
	}
}

// Invalidate removes key from both tiers. A durable not-found is success.
func (c *GenreCache) Invalidate(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	_, err := retry.Do(ctx, "genre-cache-invalidate", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.store.Delete(ctx, key)
	}, retry.WithLogger(c.log))
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		c.log.Warn("durable cache invalidation failed", "key", key, "error", err)
	}
}

// Cleanup sweeps both tiers and deletes every entry older than TTL. Safe to
// run concurrently with Get and Set; entries deleted mid-sweep simply become
// future misses. Returns the number of entries removed.
func (c *GenreCache) Cleanup(ctx context.Context) int {
	cutoff := c.now().Add(-TTL)

	c.mu.Lock()
	var removed int
	for key, entry := range c.entries {
		if entry.updatedAt.Before(cutoff) || entry.updatedAt.Equal(cutoff) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	durableRemoved, err := retry.Do(ctx, "genre-cache-cleanup", func(ctx context.Context) (int64, error) {
		return c.store.DeleteOlderThan(ctx, cutoff)
	}, retry.WithLogger(c.log))
	if err != nil {
		c.log.Warn("durable cache cleanup failed", "error", err)
	} else {
		removed += int(durableRemoved)
	}

	c.log.Info("genre cache cleanup complete", "removed", removed)
	return removed
}

// Len reports the memory tier's entry count.
func (c *GenreCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func toStored(key string, result genre.Classification, at time.Time) *db.GenreCacheEntry {
	return &db.GenreCacheEntry{
		Key:        key,
		MainGenres: toStrings(result.MainGenres),
		SubGenres:  toStrings(result.SubGenres),
		UpdatedAt:  at,
	}
}

func fromStored(entry *db.GenreCacheEntry) genre.Classification {
	return genre.Classification{
		MainGenres: toCanonical(entry.MainGenres),
		SubGenres:  toCanonical(entry.SubGenres),
	}
}

func toStrings(genres []genre.Canonical) []string {
	out := make([]string, len(genres))
	for i, g := range genres {
		out[i] = string(g)
	}
	return out
}

func toCanonical(names []string) []genre.Canonical {
	out := make([]genre.Canonical, len(names))
	for i, name := range names {
		out[i] = genre.Canonical(name)
	}
	return out
}
