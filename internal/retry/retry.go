// Package retry provides the bounded exponential-backoff retry helper used
// by the LLM correction stage (spec.md §4.G: "each chunk request has a
// bounded timeout and a small retry budget with exponential backoff").
package retry

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	sethretry "github.com/sethvargo/go-retry"
)

// Config controls retry behaviour for a single Do call.
type Config struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts uint64
	// InitialDelay is the wait before the second attempt; doubled each
	// subsequent attempt up to MaxDelay.
	InitialDelay time.Duration
	// MaxDelay caps the per-attempt wait.
	MaxDelay time.Duration
	// ShouldRetry classifies an error as retryable. Nil retries everything.
	ShouldRetry func(err error) bool
}

// DefaultConfig is a sensible default for short-lived network calls.
var DefaultConfig = Config{
	MaxAttempts:  3,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     10 * time.Second,
}

// Do calls fn up to cfg.MaxAttempts times, backing off exponentially
// between attempts via github.com/sethvargo/go-retry. It stops early when
// ctx is cancelled, fn returns nil, or ShouldRetry rejects the error. The
// last error seen is returned.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultConfig.MaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = DefaultConfig.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultConfig.MaxDelay
	}
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = func(error) bool { return true }
	}

	backoff, err := sethretry.NewExponential(cfg.InitialDelay)
	if err != nil {
		return err
	}
	backoff = sethretry.WithMaxRetries(cfg.MaxAttempts-1, backoff)
	backoff = sethretry.WithCappedDuration(cfg.MaxDelay, backoff)

	logger := zerolog.Ctx(ctx)
	attempt := uint64(0)

	return sethretry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !shouldRetry(err) {
			return err
		}
		logger.Debug().
			Uint64("attempt", attempt).
			Uint64("max_attempts", cfg.MaxAttempts).
			Err(err).
			Msg("retrying after transient failure")
		return sethretry.RetryableError(err)
	})
}
