package classify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/justestif/moodfm/internal/cache"
	"github.com/justestif/moodfm/internal/db"
	"github.com/justestif/moodfm/internal/genre"
)

// memStore is a minimal durable tier for service tests.
type memStore struct {
	mu      sync.Mutex
	entries map[string]db.GenreCacheEntry
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]db.GenreCacheEntry)}
}

func (s *memStore) Get(_ context.Context, key string) (*db.GenreCacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &entry, nil
}

func (s *memStore) Upsert(_ context.Context, entry *db.GenreCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Key] = *entry
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *memStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for key, entry := range s.entries {
		if entry.UpdatedAt.Before(cutoff) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// countingClassifier returns a fixed result and counts invocations.
type countingClassifier struct {
	result genre.Classification
	calls  int
}

func (c *countingClassifier) Aggregate(context.Context, string, string) genre.Classification {
	c.calls++
	return c.result
}

func TestCacheKey(t *testing.T) {
	tests := []struct {
		artist, track, want string
	}{
		{"Radiohead", "", "artist:radiohead"},
		{"  Radiohead ", "", "artist:radiohead"},
		{"Radiohead", "Airbag", "track:radiohead:airbag"},
		{"RADIOHEAD", "AIRBAG", "track:radiohead:airbag"},
	}
	for _, tt := range tests {
		if got := CacheKey(tt.artist, tt.track); got != tt.want {
			t.Errorf("CacheKey(%q, %q) = %q, want %q", tt.artist, tt.track, got, tt.want)
		}
	}
}

func TestClassifyGenreReadThrough(t *testing.T) {
	classifier := &countingClassifier{
		result: genre.Classification{MainGenres: []genre.Canonical{genre.Jazz}, SubGenres: []genre.Canonical{}},
	}
	svc := NewService(classifier, cache.New(newMemStore()), nil)
	ctx := context.Background()

	first := svc.ClassifyGenre(ctx, "Mingus", "")
	second := svc.ClassifyGenre(ctx, "mingus", "")

	if first.MainGenres[0] != genre.Jazz || second.MainGenres[0] != genre.Jazz {
		t.Errorf("results: %v, %v", first, second)
	}
	// Second call differs only in casing and must hit the cache.
	if classifier.calls != 1 {
		t.Errorf("classifier calls = %d, want 1", classifier.calls)
	}
}

func TestInvalidateGenreForcesReclassification(t *testing.T) {
	classifier := &countingClassifier{
		result: genre.Classification{MainGenres: []genre.Canonical{genre.Rock}, SubGenres: []genre.Canonical{}},
	}
	svc := NewService(classifier, cache.New(newMemStore()), nil)
	ctx := context.Background()

	svc.ClassifyGenre(ctx, "Fugazi", "")
	svc.InvalidateGenre(ctx, "Fugazi")
	svc.ClassifyGenre(ctx, "Fugazi", "")

	if classifier.calls != 2 {
		t.Errorf("classifier calls = %d, want 2", classifier.calls)
	}
}

func TestCleanupExpiredGenres(t *testing.T) {
	classifier := &countingClassifier{
		result: genre.Classification{MainGenres: []genre.Canonical{genre.Pop}, SubGenres: []genre.Canonical{}},
	}

	now := time.Now()
	clock := now
	genreCache := cache.New(newMemStore(), cache.WithClock(func() time.Time { return clock }))
	svc := NewService(classifier, genreCache, nil)
	ctx := context.Background()

	svc.ClassifyGenre(ctx, "Carly", "")
	clock = now.Add(cache.TTL + time.Minute)

	if removed := svc.CleanupExpiredGenres(ctx); removed != 2 {
		t.Errorf("removed = %d, want 2 (memory + durable)", removed)
	}

	svc.ClassifyGenre(ctx, "Carly", "")
	if classifier.calls != 2 {
		t.Errorf("classifier calls = %d, want 2 after cleanup", classifier.calls)
	}
}
