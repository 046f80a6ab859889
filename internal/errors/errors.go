// Package errors provides structured error types for the support relay.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("service unavailable")
)

// PlatformError represents a failed call to the chat platform.
type PlatformError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *PlatformError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("discord %s (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("discord %s: %v", e.Op, e.Err)
}

func (e *PlatformError) Unwrap() error { return e.Err }

// NewPlatformError wraps err as a failed platform operation.
// A nil err yields nil.
func NewPlatformError(op string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &PlatformError{Op: op, StatusCode: statusCode, Err: err}
}

// IsNotFound reports whether err is ErrNotFound or a platform 404.
func IsNotFound(err error) bool {
	var pErr *PlatformError
	if errors.As(err, &pErr) && pErr.StatusCode == 404 {
		return true
	}
	return errors.Is(err, ErrNotFound)
}

// IsRetryable reports whether a failed call may succeed if repeated:
// ErrUnavailable, rate limiting and platform 5xx responses.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var pErr *PlatformError
	if errors.As(err, &pErr) {
		return pErr.StatusCode == 429 || pErr.StatusCode >= 500
	}
	return false
}
