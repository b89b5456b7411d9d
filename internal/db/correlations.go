package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CorrelationRepository handles mood correlation database operations.
type CorrelationRepository struct {
	pool *pgxpool.Pool
}

// UpsertBatch writes correlations keyed by (user_id, genre, mood).
// Recomputation overwrites per key and never deletes rows absent from the
// batch.
func (r *CorrelationRepository) UpsertBatch(ctx context.Context, correlations []MoodCorrelation) error {
	if len(correlations) == 0 {
		return nil
	}

	query := `
		INSERT INTO mood_correlations (user_id, genre, mood, strength, count, updated_at)
		SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::float8[], $5::int[], $6::timestamptz[])
		ON CONFLICT (user_id, genre, mood) DO UPDATE SET
			strength = EXCLUDED.strength,
			count = EXCLUDED.count,
			updated_at = EXCLUDED.updated_at
	`

	userIDs := make([]string, len(correlations))
	genres := make([]string, len(correlations))
	moods := make([]string, len(correlations))
	strengths := make([]float64, len(correlations))
	counts := make([]int, len(correlations))
	updatedAts := make([]time.Time, len(correlations))

	now := time.Now()
	for i, c := range correlations {
		userIDs[i] = c.UserID
		genres[i] = c.Genre
		moods[i] = c.Mood
		strengths[i] = c.Strength
		counts[i] = c.Count
		updatedAts[i] = now
	}

	_, err := r.pool.Exec(ctx, query, userIDs, genres, moods, strengths, counts, updatedAts)
	if err != nil {
		return fmt.Errorf("batch upserting correlations: %w", err)
	}
	return nil
}

// GetForUser retrieves all stored correlations for a user, strongest genres
// first.
func (r *CorrelationRepository) GetForUser(ctx context.Context, userID string) ([]MoodCorrelation, error) {
	query := `
		SELECT user_id, genre, mood, strength, count, updated_at
		FROM mood_correlations
		WHERE user_id = $1
		ORDER BY count DESC, genre ASC, mood ASC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying correlations: %w", err)
	}
	defer rows.Close()

	var correlations []MoodCorrelation
	for rows.Next() {
		var c MoodCorrelation
		if err := rows.Scan(&c.UserID, &c.Genre, &c.Mood, &c.Strength, &c.Count, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning correlation: %w", err)
		}
		correlations = append(correlations, c)
	}
	return correlations, rows.Err()
}
