package httputil

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultAttempts is the total number of tries, including the first.
	DefaultAttempts = 3
	// DefaultStep is the linear backoff unit: the wait after attempt i is i*DefaultStep.
	DefaultStep = 120 * time.Millisecond
)

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (timeouts, 429 and 5xx responses) with this type
// so that [Retry] knows to attempt the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a RetryableError. It returns nil for a nil err.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err carries a RetryableError.
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// Backoff returns the wait after the given 1-based attempt failed.
type Backoff func(attempt int) time.Duration

// Linear waits attempt*step after each failed attempt.
func Linear(step time.Duration) Backoff {
	return func(attempt int) time.Duration { return time.Duration(attempt) * step }
}

// Retry executes fn up to attempts times, sleeping backoff(i) after the i-th
// failure. It only retries errors wrapped with [RetryableError]; other errors
// are returned immediately. fn receives the 1-based attempt number.
// Returns the last error if all attempts fail, or ctx.Err() if cancelled.
func Retry(ctx context.Context, attempts int, backoff Backoff, fn func(attempt int) error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := 1; i <= attempts; i++ {
		if err := fn(i); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(i)):
			}
		}
	}
	return lastErr
}
