// Package retry implements context-aware exponential backoff for the
// pipeline's outbound HTTP calls.
package retry

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// Config holds the retry schedule.
type Config struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultConfig returns the schedule used by the classifier client.
func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		BaseDelay:       200 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		BackoffMultiple: 2.0,
	}
}

// Attempt runs one request attempt. A nil error ends the loop successfully; a
// retryable error schedules another attempt while the budget lasts.
type Attempt func(attempt int) (retryable bool, err error)

// calculateDelay computes the backoff delay before the given retry, capped at
// MaxDelay.
func (c Config) calculateDelay(attempt int) time.Duration {
	delay := time.Duration(float64(c.BaseDelay) * math.Pow(c.BackoffMultiple, float64(attempt)))
	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// Do executes fn under the schedule, sleeping between attempts and aborting
// when ctx is cancelled. The last attempt's error is returned when the budget
// is exhausted.
func Do(ctx context.Context, cfg Config, apiName string, fn Attempt) error {
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := cfg.calculateDelay(attempt - 1)
			slog.Debug("retrying request",
				"api", apiName,
				"attempt", attempt+1,
				"max_attempts", cfg.MaxRetries+1,
				"delay", delay.String(),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		retryable, err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}

	return lastErr
}
