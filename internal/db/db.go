// Package db provides PostgreSQL access for moodfm: the durable genre cache
// tier, listening events, journal entries, and mood correlations.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Common errors.
var (
	ErrNotFound = errors.New("not found")
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// New creates a new database connection pool.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Pool returns the underlying connection pool for advanced operations.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Users returns a UserRepository.
func (db *DB) Users() *UserRepository {
	return &UserRepository{pool: db.pool}
}

// GenreCache returns a GenreCacheRepository.
func (db *DB) GenreCache() *GenreCacheRepository {
	return &GenreCacheRepository{pool: db.pool}
}

// ListeningEvents returns a ListeningEventRepository.
func (db *DB) ListeningEvents() *ListeningEventRepository {
	return &ListeningEventRepository{pool: db.pool}
}

// JournalEntries returns a JournalEntryRepository.
func (db *DB) JournalEntries() *JournalEntryRepository {
	return &JournalEntryRepository{pool: db.pool}
}

// Correlations returns a CorrelationRepository.
func (db *DB) Correlations() *CorrelationRepository {
	return &CorrelationRepository{pool: db.pool}
}
