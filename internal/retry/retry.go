// Package retry provides bounded exponential backoff for transient local
// faults, chiefly SQLite write contention. Request-level operations (the
// oracle call, HTTP handlers) are deliberately single-shot and must not be
// wrapped here.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"socanalyzer/internal/logger"
)

// DefaultConfig is tuned for short-lived database lock contention.
var DefaultConfig = Config{
	MaxAttempts:         5,
	InitialBackoff:      50 * time.Millisecond,
	MaxBackoff:          2 * time.Second,
	BackoffFactor:       2.0,
	RandomizationFactor: 0.5,
}

// Config configures the retry behavior.
type Config struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration

	// BackoffFactor multiplies the delay after each attempt.
	BackoffFactor float64

	// RandomizationFactor jitters the delay to avoid lockstep retries.
	RandomizationFactor float64
}

// Retryable reports whether an error is worth retrying. When nil, every
// error is retried.
type Retryable func(error) bool

// Do executes fn with the default config, retrying while retryable returns
// true and the context is alive.
func Do(ctx context.Context, operation string, retryable Retryable, fn func() error) error {
	return DoConfig(ctx, operation, DefaultConfig, retryable, fn)
}

// DoConfig executes fn with retry logic, respecting context cancellation
// between attempts and during backoff waits.
func DoConfig(ctx context.Context, operation string, config Config, retryable Retryable, fn func() error) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	var err error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err = fn()
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt == config.MaxAttempts {
			logger.Error("failed %s after %d attempts: %v", operation, attempt, err)
			return err
		}

		backoff := calculateBackoff(attempt, config, r)
		logger.Warn("retrying %s (attempt %d/%d) after %v: %v",
			operation, attempt, config.MaxAttempts, backoff, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}

// calculateBackoff computes the jittered exponential delay for an attempt.
func calculateBackoff(attempt int, config Config, r *rand.Rand) time.Duration {
	backoff := float64(config.InitialBackoff) * math.Pow(config.BackoffFactor, float64(attempt-1))

	delta := config.RandomizationFactor * backoff
	min := backoff - delta
	max := backoff + delta
	backoff = min + (max-min)*r.Float64()

	if backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}
	return time.Duration(backoff)
}
