package utils

import (
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

func testRetry(shouldRetry func(error) bool) *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Logger:      NewLogger(),
		ShouldRetry: shouldRetry,
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	r := testRetry(func(err error) bool { return errors.Is(err, errTransient) })

	calls := 0
	err := r.Do("op", func() error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	r := testRetry(func(err error) bool { return errors.Is(err, errTransient) })

	calls := 0
	err := r.Do("op", func() error {
		calls++
		return errTransient
	})

	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if !errors.Is(err, errTransient) {
		t.Errorf("expected wrapped transient error, got %v", err)
	}
}

func TestRetryNonRetryableFailsImmediately(t *testing.T) {
	r := testRetry(func(err error) bool { return errors.Is(err, errTransient) })
	permanent := errors.New("bad request")

	calls := 0
	err := r.Do("op", func() error {
		calls++
		return permanent
	})

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if err != permanent {
		t.Errorf("expected the original error unwrapped, got %v", err)
	}
}

func TestRetryNilClassifierRetriesEverything(t *testing.T) {
	r := testRetry(nil)

	calls := 0
	_ = r.Do("op", func() error {
		calls++
		return errors.New("any error")
	})

	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}
