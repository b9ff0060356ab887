package graphload

import "time"

// ErrorClassifier determines whether an error is transient (retryable) or fatal.
//
// For graph queries a transient error is a connection-level failure: the
// query never reached the database or the reply never came back. Errors the
// database returned about the query itself are never transient.
type ErrorClassifier interface {
	// IsTransient returns true if the error is temporary and the operation should be retried.
	IsTransient(err error) bool
}

// BackoffStrategy calculates the delay before the next retry attempt.
type BackoffStrategy interface {
	// NextDelay returns the duration to wait before the next attempt.
	// attempt is zero-indexed (0 = first retry, 1 = second retry, etc.)
	NextDelay(attempt int) time.Duration

	// MaxAttempts returns the maximum number of retry attempts (0 = no retries, -1 = unlimited)
	MaxAttempts() int
}
