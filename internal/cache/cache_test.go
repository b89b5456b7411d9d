package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/justestif/moodfm/internal/db"
	"github.com/justestif/moodfm/internal/genre"
)

// fakeStore is an in-memory durable tier.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string]db.GenreCacheEntry

	getErr    error
	upsertErr error

	getCalls    int
	upsertCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]db.GenreCacheEntry)}
}

func (s *fakeStore) Get(_ context.Context, key string) (*db.GenreCacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.getErr != nil {
		return nil, s.getErr
	}
	entry, ok := s.entries[key]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &entry, nil
}

func (s *fakeStore) Upsert(_ context.Context, entry *db.GenreCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCalls++
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.entries[entry.Key] = *entry
	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *fakeStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
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

var testResult = genre.Classification{
	MainGenres: []genre.Canonical{genre.Rock, genre.Folk},
	SubGenres:  []genre.Canonical{genre.Country},
}

func sameClassification(a, b genre.Classification) bool {
	if len(a.MainGenres) != len(b.MainGenres) || len(a.SubGenres) != len(b.SubGenres) {
		return false
	}
	for i := range a.MainGenres {
		if a.MainGenres[i] != b.MainGenres[i] {
			return false
		}
	}
	for i := range a.SubGenres {
		if a.SubGenres[i] != b.SubGenres[i] {
			return false
		}
	}
	return true
}

func TestSetThenGetWarm(t *testing.T) {
	store := newFakeStore()
	c := New(store)
	ctx := context.Background()

	c.Set(ctx, "artist:boygenius", testResult)

	got, ok := c.Get(ctx, "artist:boygenius")
	if !ok {
		t.Fatal("expected hit")
	}
	if !sameClassification(got, testResult) {
		t.Errorf("got %+v, want %+v", got, testResult)
	}
	// Warm hit must not touch the durable tier.
	if store.getCalls != 0 {
		t.Errorf("durable reads = %d, want 0", store.getCalls)
	}
}

func TestGetColdHydratesFromDurable(t *testing.T) {
	store := newFakeStore()
	warm := New(store)
	ctx := context.Background()
	warm.Set(ctx, "artist:boygenius", testResult)

	// A fresh cache simulates a process restart: memory tier empty,
	// durable tier populated.
	cold := New(store)
	got, ok := cold.Get(ctx, "artist:boygenius")
	if !ok {
		t.Fatal("expected hit from durable tier")
	}
	if !sameClassification(got, testResult) {
		t.Errorf("got %+v, want %+v", got, testResult)
	}

	// Second read should come from the hydrated memory tier.
	before := store.getCalls
	if _, ok := cold.Get(ctx, "artist:boygenius"); !ok {
		t.Fatal("expected warm hit")
	}
	if store.getCalls != before {
		t.Errorf("durable reads grew from %d to %d on warm hit", before, store.getCalls)
	}
}

func TestGetMiss(t *testing.T) {
	c := New(newFakeStore())
	if _, ok := c.Get(context.Background(), "artist:unknown"); ok {
		t.Error("expected miss")
	}
}

func TestExpiredEntryIsMiss(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	clock := now
	c := New(store, WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	c.Set(ctx, "artist:stale", testResult)

	clock = now.Add(TTL + time.Millisecond)
	if _, ok := c.Get(ctx, "artist:stale"); ok {
		t.Error("expected expired memory entry to miss")
	}

	// Same verdict when only the durable tier holds the entry.
	cold := New(store, WithClock(func() time.Time { return clock }))
	if _, ok := cold.Get(ctx, "artist:stale"); ok {
		t.Error("expected expired durable entry to miss")
	}
}

func TestCleanupRemovesExpired(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	clock := now
	c := New(store, WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	c.Set(ctx, "artist:old", testResult)
	clock = now.Add(TTL + time.Millisecond)
	c.Set(ctx, "artist:fresh", testResult)

	removed := c.Cleanup(ctx)
	// artist:old is swept from both tiers.
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if c.Len() != 1 {
		t.Errorf("memory tier len = %d, want 1", c.Len())
	}
	if _, ok := store.entries["artist:old"]; ok {
		t.Error("expired entry survived durable cleanup")
	}
	if _, ok := c.Get(ctx, "artist:fresh"); !ok {
		t.Error("fresh entry did not survive cleanup")
	}
}

func TestSetSwallowsDurableFailure(t *testing.T) {
	store := newFakeStore()
	store.upsertErr = errors.New("connection refused")
	c := New(store)
	ctx := context.Background()

	c.Set(ctx, "artist:boygenius", testResult)

	// The memory tier still serves the value.
	got, ok := c.Get(ctx, "artist:boygenius")
	if !ok {
		t.Fatal("expected memory hit despite durable failure")
	}
	if !sameClassification(got, testResult) {
		t.Errorf("got %+v, want %+v", got, testResult)
	}
}

func TestGetTreatsDurableErrorAsMiss(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("connection refused")
	c := New(store)

	if _, ok := c.Get(context.Background(), "artist:any"); ok {
		t.Error("expected durable read error to be a miss")
	}
}

func TestInvalidateBothTiers(t *testing.T) {
	store := newFakeStore()
	c := New(store)
	ctx := context.Background()

	c.Set(ctx, "artist:boygenius", testResult)
	c.Invalidate(ctx, "artist:boygenius")

	if _, ok := c.Get(ctx, "artist:boygenius"); ok {
		t.Error("expected miss after invalidation")
	}
	if _, ok := store.entries["artist:boygenius"]; ok {
		t.Error("durable entry survived invalidation")
	}

	// Invalidating an absent key is fine.
	c.Invalidate(ctx, "artist:nobody")
}
