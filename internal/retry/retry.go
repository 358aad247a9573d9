// Package retry re-runs flaky operations (host tool invocations, DuckDB
// writes) with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Config controls the backoff schedule.
type Config struct {
	// MaxRetries is the total number of attempts, including the first one.
	MaxRetries int

	// InitialBackoff is the wait before the second attempt; it doubles after
	// every further failure.
	InitialBackoff time.Duration

	// MaxBackoff caps a single wait. Zero means uncapped.
	MaxBackoff time.Duration

	// Jitter (0.0 to 1.0) adds a growing fraction of the backoff to later
	// attempts so concurrent callers spread out.
	Jitter float64
}

// ShouldRetryFunc decides whether err is worth another attempt.
// A nil ShouldRetryFunc retries every error.
type ShouldRetryFunc func(error) bool

// Do calls fn until it succeeds, shouldRetry rejects the error, the attempts
// are exhausted or ctx is done.
func Do(ctx context.Context, cfg Config, fn func() error, shouldRetry ShouldRetryFunc) error {
	attempts := cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(calculateBackoff(cfg, attempt)):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// calculateBackoff returns InitialBackoff * 2^(attempt-1), capped, plus jitter.
func calculateBackoff(cfg Config, attempt int) time.Duration {
	backoff := time.Duration(math.Pow(2, float64(attempt-1)) * float64(cfg.InitialBackoff))

	if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
		backoff = cfg.MaxBackoff
	}

	if cfg.Jitter > 0 && cfg.MaxRetries > 0 {
		backoff += time.Duration(float64(backoff) * cfg.Jitter * float64(attempt) / float64(cfg.MaxRetries))
	}

	return backoff
}
