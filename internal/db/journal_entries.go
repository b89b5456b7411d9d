package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// JournalEntryRepository reads mood journal entries. The journaling product
// owns writes; this core only consumes them.
type JournalEntryRepository struct {
	pool *pgxpool.Pool
}

// GetForUserInWindow retrieves a user's journal entries created inside
// [from, to], oldest first.
func (r *JournalEntryRepository) GetForUserInWindow(ctx context.Context, userID string, from, to time.Time) ([]JournalEntry, error) {
	query := `
		SELECT id, user_id, selected_mood, created_at
		FROM journal_entries
		WHERE user_id = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying journal entries: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Mood, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
