package db

import (
	"time"

	"github.com/google/uuid"
)

// User represents a connected streaming-account user.
type User struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time
	LastSyncAt  *time.Time // nullable
}

// GenreCacheEntry is the durable tier of the two-tier genre cache, one row
// per artist-or-track key.
type GenreCacheEntry struct {
	Key        string
	MainGenres []string
	SubGenres  []string
	UpdatedAt  time.Time
}

// ListeningEvent records one observed play. Immutable once written;
// deduplicated by (user_id, track_id, played_at).
type ListeningEvent struct {
	ID         uuid.UUID
	UserID     string
	TrackID    string
	TrackName  string
	ArtistName string
	Genre      string
	SubGenres  []string
	PlayedAt   time.Time
	CreatedAt  time.Time
}

// JournalEntry is a mood journal record. This core only reads them; the
// journaling product writes them.
type JournalEntry struct {
	ID        uuid.UUID
	UserID    string
	Mood      *string // nullable; entries without a mood are skipped
	CreatedAt time.Time
}

// MoodCorrelation is one aggregated (user, genre, mood) statistic. Strength
// is the share of the genre's co-occurrences carrying this mood.
type MoodCorrelation struct {
	UserID    string
	Genre     string
	Mood      string
	Strength  float64
	Count     int
	UpdatedAt time.Time
}
