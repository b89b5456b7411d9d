package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/justestif/moodfm/internal/db"
	"github.com/justestif/moodfm/internal/genre"
)

// Common errors.
var (
	// ErrSyncTooRecent is returned when a sync is attempted within the
	// cooldown period.
	ErrSyncTooRecent = errors.New("sync attempted too recently")
)

// DefaultSyncCooldown is the default minimum time between syncs per user.
const DefaultSyncCooldown = 15 * time.Minute

// Classifier resolves a (artist, track) pair to genres. Satisfied by
// classify.Service.
type Classifier interface {
	ClassifyGenre(ctx context.Context, artist, track string) genre.Classification
}

// EventWriter persists listening events. Satisfied by
// db.ListeningEventRepository.
type EventWriter interface {
	InsertBatch(ctx context.Context, events []db.ListeningEvent) (int64, error)
}

// UserStore tracks per-user sync state. Satisfied by db.UserRepository.
type UserStore interface {
	Get(ctx context.Context, id string) (*db.User, error)
	SetLastSync(ctx context.Context, id string, at time.Time) error
}

// Service ingests recently-played feeds into listening events.
type Service struct {
	users      UserStore
	events     EventWriter
	classifier Classifier
	cooldown   time.Duration
	log        *slog.Logger
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCooldown sets the minimum time between syncs.
func WithCooldown(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// withClock overrides the time source, for tests.
func withClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an ingestion service.
func NewService(users UserStore, events EventWriter, classifier Classifier, opts ...Option) *Service {
	s := &Service{
		users:      users,
		events:     events,
		classifier: classifier,
		cooldown:   DefaultSyncCooldown,
		log:        slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncResult summarizes one ingestion run.
type SyncResult struct {
	Fetched  int       `json:"fetched"`
	Inserted int       `json:"inserted"`
	SyncedAt time.Time `json:"syncedAt"`
}

// CanSync reports whether the cooldown allows another sync for the user,
// and when the next one is allowed otherwise. Unknown users may always
// sync.
func (s *Service) CanSync(ctx context.Context, userID string) (bool, time.Time, error) {
	user, err := s.users.Get(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return true, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, fmt.Errorf("getting user: %w", err)
	}
	if user.LastSyncAt == nil {
		return true, time.Time{}, nil
	}

	next := user.LastSyncAt.Add(s.cooldown)
	if s.now().Before(next) {
		return false, next, nil
	}
	return true, time.Time{}, nil
}

// Sync pulls the user's recent plays from source, classifies each track
// through the cached classification boundary, and records deduplicated
// listening events. Re-syncing overlapping feed pages is safe: duplicate
// (user, track, playedAt) rows are skipped at insert.
func (s *Service) Sync(ctx context.Context, userID string, source PlaySource) (*SyncResult, error) {
	ok, next, err := s.CanSync(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: next sync at %s", ErrSyncTooRecent, next.Format(time.RFC3339))
	}

	plays, err := source.RecentlyPlayed(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching plays: %w", err)
	}

	events := make([]db.ListeningEvent, 0, len(plays))
	for _, play := range plays {
		artist := primaryArtist(play.ArtistName)
		result := s.classifier.ClassifyGenre(ctx, artist, play.TrackName)

		event := db.ListeningEvent{
			UserID:     userID,
			TrackID:    play.TrackID,
			TrackName:  play.TrackName,
			ArtistName: play.ArtistName,
			PlayedAt:   play.PlayedAt,
		}
		if len(result.MainGenres) > 0 {
			event.Genre = string(result.MainGenres[0])
			for _, g := range result.MainGenres[1:] {
				event.SubGenres = append(event.SubGenres, string(g))
			}
		}
		for _, g := range result.SubGenres {
			event.SubGenres = append(event.SubGenres, string(g))
		}
		events = append(events, event)
	}

	inserted, err := s.events.InsertBatch(ctx, events)
	if err != nil {
		return nil, fmt.Errorf("recording listening events: %w", err)
	}

	syncedAt := s.now()
	if err := s.users.SetLastSync(ctx, userID, syncedAt); err != nil && !errors.Is(err, db.ErrNotFound) {
		s.log.Warn("recording sync time failed", "userID", userID, "error", err)
	}

	s.log.Info("listening feed synced",
		"userID", userID,
		"fetched", len(plays),
		"inserted", inserted)

	return &SyncResult{
		Fetched:  len(plays),
		Inserted: int(inserted),
		SyncedAt: syncedAt,
	}, nil
}

// primaryArtist reduces a joined artist credit to its first name for tag
// lookups; tag providers rarely know combined credits.
func primaryArtist(joined string) string {
	if i := strings.Index(joined, ", "); i >= 0 {
		return joined[:i]
	}
	return joined
}
