// Package retry runs an operation with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts  int           // total attempts including the first, values < 1 mean 1
	InitialDelay time.Duration // delay before the second attempt
	MaxDelay     time.Duration // cap on the delay between attempts
	Multiplier   float64       // exponential backoff multiplier (typically 2.0)
	Jitter       bool          // randomize each delay by up to ±25%

	// Retryable decides whether err warrants another attempt. Nil retries every error.
	Retryable func(err error) bool

	// OnRetry is called before sleeping ahead of the next attempt.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultConfig returns a default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// RetryableErrors returns a Retryable func matching any of targets with errors.Is.
func RetryableErrors(targets ...error) func(error) bool {
	return func(err error) bool {
		for _, target := range targets {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	}
}

// Do executes fn with exponential backoff retry logic. fn receives the
// 1-based attempt number. The last error is returned unwrapped so callers
// can keep matching it; a cancelled context during the wait is returned
// joined with that error.
func Do(ctx context.Context, cfg Config, fn func(attempt int) error) error {
	attempts := max(cfg.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				return err
			}
			return errors.Join(lastErr, err)
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if cfg.Retryable != nil && !cfg.Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		delay := calculateDelay(cfg, attempt-1)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, delay, lastErr)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(lastErr, fmt.Errorf("retry cancelled during wait: %w", ctx.Err()))
		case <-timer.C:
		}
	}
	return lastErr
}

// calculateDelay calculates the delay for exponential backoff
func calculateDelay(cfg Config, retry int) time.Duration {
	multiplier := cfg.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	// initialDelay * (multiplier ^ retry)
	delay := float64(cfg.InitialDelay) * math.Pow(multiplier, float64(retry))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	duration := time.Duration(delay)
	if cfg.Jitter && duration > 0 {
		jitter := duration / 4
		duration = duration - jitter + time.Duration(rand.Int64N(int64(jitter)*2+1))
	}
	return duration
}
