package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrInvalidSnapshot is returned when a discovered-field snapshot cannot be decoded
	ErrInvalidSnapshot = errors.New("invalid field snapshot")

	// ErrChecklistUnavailable is returned when no checklist could be produced at all
	ErrChecklistUnavailable = errors.New("checklist unavailable")

	// ErrRetryExhausted is matched by every RetryExhaustedError
	ErrRetryExhausted = errors.New("retries exhausted")

	// ErrLoopDetected is returned when a traversal keeps revisiting the same state
	ErrLoopDetected = errors.New("navigation loop detected")

	// ErrProbeUnavailable is returned when the probe collaborator cannot answer
	ErrProbeUnavailable = errors.New("probe service unavailable")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)

// RetryExhaustedError is the typed outcome of an operation that failed on
// every attempt. Cause is the error from the final attempt.
type RetryExhaustedError struct {
	Operation string
	Attempts  int
	Cause     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s: %s after %d attempts: %v", ErrRetryExhausted, e.Operation, e.Attempts, e.Cause)
}

// Unwrap exposes the last underlying failure.
func (e *RetryExhaustedError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, ErrRetryExhausted) match regardless of cause.
func (e *RetryExhaustedError) Is(target error) bool {
	return target == ErrRetryExhausted
}
