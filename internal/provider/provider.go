// Package provider defines the error contract shared by the external signal
// source clients. Retryability is carried as a capability on the error value
// and classified by status or category, never by message text.
package provider

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"
)

// Error is a failure reported by an external provider call.
type Error struct {
	Source    string // provider name, e.g. "lastfm"
	Status    int    // HTTP status, 0 for transport-level failures
	Err       error  // underlying cause, may be nil
	retryable bool
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s: status %d", e.Source, e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed. The retry executor
// discovers this method through errors.As.
func (e *Error) Retryable() bool { return e.retryable }

// StatusError classifies an HTTP status into a provider error. 429, 503 and
// 504 are retryable; every other non-2xx status is a hard rejection.
func StatusError(source string, status int) *Error {
	retryable := status == http.StatusTooManyRequests ||
		status == http.StatusServiceUnavailable ||
		status == http.StatusGatewayTimeout
	return &Error{Source: source, Status: status, retryable: retryable}
}

// TransportError wraps a failure to complete the request at all. Timeouts and
// reset connections are retryable; anything else is not.
func TransportError(source string, err error) *Error {
	var netErr net.Error
	retryable := errors.As(err, &netErr) && netErr.Timeout() ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, os.ErrDeadlineExceeded)
	return &Error{Source: source, Err: err, retryable: retryable}
}

// Rejected builds a non-retryable provider error from an application-level
// error payload.
func Rejected(source string, err error) *Error {
	return &Error{Source: source, Err: err}
}
