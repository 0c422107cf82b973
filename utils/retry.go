package utils

import (
	"fmt"
	"time"
)

// RetryConfig holds the parameters for the retry strategy.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *Logger

	// ShouldRetry classifies errors; only errors it accepts are retried.
	// A nil ShouldRetry retries every error.
	ShouldRetry func(error) bool
}

// Do executes fn with linearly increasing back-off: the delay before attempt
// n+1 is n × BaseDelay. Errors rejected by ShouldRetry are returned
// immediately, untouched, so callers can inspect them.
func (r *RetryConfig) Do(operationName string, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if r.ShouldRetry != nil && !r.ShouldRetry(lastErr) {
			return lastErr
		}

		if attempt < r.MaxAttempts {
			delay := time.Duration(attempt) * r.BaseDelay
			r.Logger.Warn("[retry] %s failed (attempt %d/%d): %v — retrying in %v",
				operationName, attempt, r.MaxAttempts, lastErr, delay)
			time.Sleep(delay)
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, r.MaxAttempts, lastErr)
}
