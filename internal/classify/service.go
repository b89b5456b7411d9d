package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/justestif/moodfm/internal/cache"
	"github.com/justestif/moodfm/internal/genre"
)

// Classifier produces a classification for an (artist[, track]) pair.
// Satisfied by Aggregator.
type Classifier interface {
	Aggregate(ctx context.Context, artist, track string) genre.Classification
}

// Service is the classification boundary the rest of the product calls. All
// reads go through the two-tier cache; no method ever returns an error, the
// floor result being Other.
type Service struct {
	classifier Classifier
	cache      *cache.GenreCache
	log        *slog.Logger
}

// NewService creates the classification service.
func NewService(classifier Classifier, genreCache *cache.GenreCache, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{classifier: classifier, cache: genreCache, log: log}
}

// CacheKey builds the cache key for an (artist[, track]) pair. Keys are
// case-insensitive; two requests differing only in casing share an entry.
func CacheKey(artist, track string) string {
	artist = strings.ToLower(strings.TrimSpace(artist))
	if track == "" {
		return "artist:" + artist
	}
	return fmt.Sprintf("track:%s:%s", artist, strings.ToLower(strings.TrimSpace(track)))
}

// ClassifyGenre returns the genre classification for an artist, refined by
// track when one is given. Cached results within TTL are served without
// touching any provider; otherwise the full fallback chain runs and the
// result is cached write-through. Two concurrent calls for the same cold key
// may both run the chain; the duplicate work is tolerated.
func (s *Service) ClassifyGenre(ctx context.Context, artist, track string) genre.Classification {
	key := CacheKey(artist, track)

	if result, ok := s.cache.Get(ctx, key); ok {
		return result
	}

	result := s.classifier.Aggregate(ctx, artist, track)
	s.cache.Set(ctx, key, result)

	s.log.Debug("classified genre",
		"artist", artist,
		"track", track,
		"mainGenres", result.MainGenres)
	return result
}

// InvalidateGenre drops the cached artist-level classification from both
// cache tiers.
func (s *Service) InvalidateGenre(ctx context.Context, artist string) {
	s.cache.Invalidate(ctx, CacheKey(artist, ""))
}

// CleanupExpiredGenres sweeps expired entries out of both cache tiers,
// returning the number removed. Invoked by the maintenance scheduler.
func (s *Service) CleanupExpiredGenres(ctx context.Context) int {
	return s.cache.Cleanup(ctx)
}
