// Package retry re-runs operations that failed with a retryable error,
// backing off exponentially between attempts.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Operation is a function that can be retried.
type Operation func() error

// Backoff retries an operation while its error satisfies Retryable.
type Backoff struct {
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
	retryable    func(error) bool
}

// NewBackoff creates a Backoff. A nil retryable retries every error.
func NewBackoff(maxRetries int, initialDelay, maxDelay time.Duration, retryable func(error) bool) *Backoff {
	if retryable == nil {
		retryable = func(error) bool { return true }
	}
	return &Backoff{
		maxRetries:   maxRetries,
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		retryable:    retryable,
	}
}

// Execute runs op, retrying up to maxRetries times.
func (b *Backoff) Execute(ctx context.Context, op Operation) error {
	var lastErr error
	delay := b.initialDelay

	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		err := op()
		if err == nil {
			if attempt > 0 {
				slog.Debug("operation succeeded after retry",
					"attempt", attempt+1,
					"total_attempts", b.maxRetries+1)
			}
			return nil
		}
		lastErr = err

		if !b.retryable(err) {
			return err
		}
		if attempt >= b.maxRetries {
			break
		}

		slog.Warn("operation failed, retrying with exponential backoff",
			"attempt", attempt+1,
			"max_attempts", b.maxRetries+1,
			"retry_in", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay *= 2
			if delay > b.maxDelay {
				delay = b.maxDelay
			}
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", b.maxRetries+1, lastErr)
}
