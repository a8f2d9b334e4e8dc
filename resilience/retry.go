package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy defines how delays grow between attempts.
type BackoffStrategy int

const (
	// BackoffExponential multiplies the delay by Multiplier each attempt.
	BackoffExponential BackoffStrategy = iota
	// BackoffConstant waits InitialDelay between every attempt.
	BackoffConstant
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	// Default: 3
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	// Default: 50ms
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 2s
	MaxDelay time.Duration

	// Multiplier is the growth factor for exponential backoff.
	// Default: 2.0
	Multiplier float64

	// Strategy is the backoff strategy.
	// Default: BackoffExponential
	Strategy BackoffStrategy

	// Jitter adds up to 25% random delay so that processes contending for
	// the same lock do not retry in lockstep.
	Jitter bool

	// RetryIf decides whether an error is transient.
	// Default: every non-nil error is retried.
	RetryIf func(err error) bool

	// OnRetry is called before each retry with the failed attempt number.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry runs operations with backoff.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a retry handler, filling in defaults.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 50 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 2 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}
	return &Retry{config: config}
}

// Execute runs op until it succeeds, fails with a non-transient error, or
// attempts run out. Exhaustion wraps the last error with
// ErrMaxRetriesExceeded; a non-transient error is returned unchanged.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !r.config.RetryIf(err) {
			return err
		}
		lastErr = err

		if attempt == r.config.MaxAttempts {
			break
		}

		delay := r.delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if r.config.MaxAttempts == 1 {
		return lastErr
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, r.config.MaxAttempts, lastErr)
}

func (r *Retry) delay(attempt int) time.Duration {
	delay := r.config.InitialDelay
	if r.config.Strategy == BackoffExponential {
		delay = time.Duration(float64(delay) * math.Pow(r.config.Multiplier, float64(attempt-1)))
	}
	if delay > r.config.MaxDelay || delay < 0 {
		delay = r.config.MaxDelay
	}

	if r.config.Jitter && delay >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		delay += time.Duration(rand.Int64N(int64(delay / 4)))
	}
	return delay
}

// Config returns the effective configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
