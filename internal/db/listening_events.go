package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ListeningEventRepository handles listening event database operations.
type ListeningEventRepository struct {
	pool *pgxpool.Pool
}

// InsertBatch inserts events, silently skipping duplicates of
// (user_id, track_id, played_at). Events are immutable, so conflicts are
// never updated. Returns the number of rows actually inserted.
func (r *ListeningEventRepository) InsertBatch(ctx context.Context, events []ListeningEvent) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO listening_events (id, user_id, track_id, track_name, artist_name, genre, sub_genres, played_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, track_id, played_at) DO NOTHING
	`

	now := time.Now()
	batch := &pgx.Batch{}
	for _, e := range events {
		id := e.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		batch.Queue(query, id, e.UserID, e.TrackID, e.TrackName, e.ArtistName, e.Genre, e.SubGenres, e.PlayedAt, now)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	var inserted int64
	for range events {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("batch inserting listening events: %w", err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// GetForUserInWindow retrieves a user's events with played_at inside
// [from, to], oldest first.
func (r *ListeningEventRepository) GetForUserInWindow(ctx context.Context, userID string, from, to time.Time) ([]ListeningEvent, error) {
	query := `
		SELECT id, user_id, track_id, track_name, artist_name, genre, sub_genres, played_at, created_at
		FROM listening_events
		WHERE user_id = $1 AND played_at >= $2 AND played_at <= $3
		ORDER BY played_at ASC
	`
	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying listening events: %w", err)
	}
	defer rows.Close()

	var events []ListeningEvent
	for rows.Next() {
		var e ListeningEvent
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.TrackID,
			&e.TrackName,
			&e.ArtistName,
			&e.Genre,
			&e.SubGenres,
			&e.PlayedAt,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning listening event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ActiveUserIDs returns the IDs of users with at least one event since the
// given time, for scheduled correlation refreshes.
func (r *ListeningEventRepository) ActiveUserIDs(ctx context.Context, since time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT user_id
		FROM listening_events
		WHERE played_at >= $1
	`
	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("querying active users: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning user ID: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, rows.Err()
}
