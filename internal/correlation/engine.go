// Package correlation joins a user's listening events against their mood
// journal over a trailing window and aggregates per-genre mood strengths.
package correlation

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/justestif/moodfm/internal/db"
)

// LookbackWindow is how far before a journal entry a play still counts as
// co-occurring with the reported mood.
const LookbackWindow = 2 * time.Hour

// EventSource supplies listening events, satisfied by
// db.ListeningEventRepository.
type EventSource interface {
	GetForUserInWindow(ctx context.Context, userID string, from, to time.Time) ([]db.ListeningEvent, error)
}

// JournalSource supplies journal entries, satisfied by
// db.JournalEntryRepository.
type JournalSource interface {
	GetForUserInWindow(ctx context.Context, userID string, from, to time.Time) ([]db.JournalEntry, error)
}

// Sink persists computed correlations, satisfied by
// db.CorrelationRepository.
type Sink interface {
	UpsertBatch(ctx context.Context, correlations []db.MoodCorrelation) error
}

// Engine computes mood-genre correlations. It is the only writer of
// correlation records.
type Engine struct {
	events  EventSource
	journal JournalSource
	sink    Sink
	log     *slog.Logger
}

// NewEngine creates a correlation engine.
func NewEngine(events EventSource, journal JournalSource, sink Sink, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{events: events, journal: journal, sink: sink, log: log}
}

type pairKey struct {
	genre string
	mood  string
}

// Compute correlates the user's plays and moods inside [windowStart,
// windowEnd] and upserts the result per (user, genre, mood) key; triples
// from earlier runs that this window no longer produces are left untouched.
// It never fails: load or persist errors are logged and the best available
// result (possibly empty) is returned, sorted by genre prevalence then
// count.
func (e *Engine) Compute(ctx context.Context, userID string, windowStart, windowEnd time.Time) []db.MoodCorrelation {
	events, err := e.events.GetForUserInWindow(ctx, userID, windowStart, windowEnd)
	if err != nil {
		e.log.Warn("loading listening events failed", "userID", userID, "error", err)
		return []db.MoodCorrelation{}
	}

	entries, err := e.journal.GetForUserInWindow(ctx, userID, windowStart, windowEnd)
	if err != nil {
		e.log.Warn("loading journal entries failed", "userID", userID, "error", err)
		return []db.MoodCorrelation{}
	}

	counts := make(map[pairKey]int)
	totals := make(map[string]int)

	for _, entry := range entries {
		if entry.Mood == nil || *entry.Mood == "" {
			continue
		}
		lookbackStart := entry.CreatedAt.Add(-LookbackWindow)

		for _, event := range events {
			if event.Genre == "" {
				continue
			}
			if event.PlayedAt.Before(lookbackStart) || event.PlayedAt.After(entry.CreatedAt) {
				continue
			}
			counts[pairKey{genre: event.Genre, mood: *entry.Mood}]++
			totals[event.Genre]++
		}
	}

	correlations := make([]db.MoodCorrelation, 0, len(counts))
	for key, count := range counts {
		correlations = append(correlations, db.MoodCorrelation{
			UserID:   userID,
			Genre:    key.genre,
			Mood:     key.mood,
			Strength: float64(count) / float64(totals[key.genre]),
			Count:    count,
		})
	}

	// Genres with more co-occurrences first, then stronger moods within a
	// genre; name ordering keeps repeated runs deterministic.
	sort.Slice(correlations, func(i, j int) bool {
		a, b := correlations[i], correlations[j]
		if totals[a.Genre] != totals[b.Genre] {
			return totals[a.Genre] > totals[b.Genre]
		}
		if a.Genre != b.Genre {
			return a.Genre < b.Genre
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Mood < b.Mood
	})

	if len(correlations) > 0 {
		if err := e.sink.UpsertBatch(ctx, correlations); err != nil {
			e.log.Warn("persisting correlations failed", "userID", userID, "error", err)
		}
	}

	return correlations
}
