package db

import (
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// transientError marks a database failure the retry executor may re-attempt.
type transientError struct {
	err error
}

func (e *transientError) Error() string   { return e.err.Error() }
func (e *transientError) Unwrap() error   { return e.err }
func (e *transientError) Retryable() bool { return true }

// markTransient wraps err when pgx reports it as safe to retry or it is a
// connection-class fault; other errors pass through unchanged.
func markTransient(err error) error {
	if err == nil {
		return nil
	}
	if pgconn.SafeToRetry(err) {
		return &transientError{err: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" {
		return &transientError{err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &transientError{err: err}
	}

	return err
}
