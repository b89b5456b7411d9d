package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GenreCacheRepository handles the durable tier of the genre cache.
type GenreCacheRepository struct {
	pool *pgxpool.Pool
}

// Get retrieves a cache entry by key. Returns ErrNotFound when absent.
func (r *GenreCacheRepository) Get(ctx context.Context, key string) (*GenreCacheEntry, error) {
	query := `
		SELECT key, main_genres, sub_genres, updated_at
		FROM genre_cache
		WHERE key = $1
	`
	var entry GenreCacheEntry
	err := r.pool.QueryRow(ctx, query, key).Scan(
		&entry.Key,
		&entry.MainGenres,
		&entry.SubGenres,
		&entry.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying genre cache: %w", markTransient(err))
	}
	return &entry, nil
}

// Upsert creates or refreshes a cache entry by key.
func (r *GenreCacheRepository) Upsert(ctx context.Context, entry *GenreCacheEntry) error {
	query := `
		INSERT INTO genre_cache (key, main_genres, sub_genres, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET
			main_genres = EXCLUDED.main_genres,
			sub_genres = EXCLUDED.sub_genres,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query, entry.Key, entry.MainGenres, entry.SubGenres, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting genre cache entry: %w", markTransient(err))
	}
	return nil
}

// Delete removes a cache entry. Deleting an absent key is not an error.
func (r *GenreCacheRepository) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM genre_cache WHERE key = $1`
	if _, err := r.pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("deleting genre cache entry: %w", markTransient(err))
	}
	return nil
}

// DeleteOlderThan removes every entry last updated before the cutoff and
// reports how many rows went away.
func (r *GenreCacheRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM genre_cache WHERE updated_at < $1`
	tag, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting expired genre cache entries: %w", markTransient(err))
	}
	return tag.RowsAffected(), nil
}
