// Package errs defines the error taxonomy shared by the movie-intelligence
// core. Callers classify with errors.As; handlers map each kind to an HTTP
// status. Validation and NotFound messages are safe to show to users,
// Database and Upstream details are logged and surfaced generically.
package errs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ValidationError marks malformed or out-of-range input. Never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf creates a ValidationError.
func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError marks a missing movie/watch/queue item or an unmet
// policy precondition (e.g. rating a never-watched movie).
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

// NotFoundf creates a NotFoundError.
func NotFoundf(format string, args ...interface{}) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// DatabaseError wraps a persistence failure. The operation name is for logs,
// the user only sees a generic message.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string { return fmt.Sprintf("database %s: %v", e.Op, e.Err) }
func (e *DatabaseError) Unwrap() error { return e.Err }

// Database wraps err as a DatabaseError. Returns nil for nil err.
func Database(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DatabaseError{Op: op, Err: err}
}

// UpstreamError is a metadata/embedding provider failure, kept after the
// retry budget is exhausted. Status is the last HTTP status (0 when the
// request never got a response).
type UpstreamError struct {
	Provider string
	Status   int
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient. Authentication and
// bad-request responses will fail the same way on every attempt.
func (e *UpstreamError) Retryable() bool {
	switch e.Status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusNotFound, http.StatusUnprocessableEntity:
		return false
	}
	return true
}

// Upstream creates an UpstreamError.
func Upstream(provider string, status int, err error) error {
	return &UpstreamError{Provider: provider, Status: status, Err: err}
}

// TimeoutError marks a deadline expiry on an external call.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("%s timed out: %v", e.Op, e.Err) }
func (e *TimeoutError) Unwrap() error { return e.Err }

// Timeout wraps err as a TimeoutError.
func Timeout(op string, err error) error {
	return &TimeoutError{Op: op, Err: err}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsDatabase reports whether err is a DatabaseError.
func IsDatabase(err error) bool {
	var de *DatabaseError
	return errors.As(err, &de)
}

// IsUpstream reports whether err is an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// IsTimeout reports whether err is a TimeoutError or a bare deadline expiry.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded)
}

// IsRetryable reports whether a failed external call is worth another
// attempt. Validation errors and permanently-failing upstream statuses
// are not; a cancelled or expired context is not either.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsValidation(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Retryable()
	}
	return true
}
