// Package retry runs an operation again when it fails with a
// retryable error, backing off between attempts.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Policy bounds a retry loop. The zero value is normalized to a single
// attempt with no backoff.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// MinBackoff is the wait before the first retry; each further
	// retry doubles it.
	MinBackoff time.Duration
}

func (p Policy) normalize() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.MinBackoff < 0 {
		p.MinBackoff = 0
	}
	return p
}

// Option configures the retry loop.
type Option func(*config)

type config struct {
	log *slog.Logger
}

// WithLogger sets the logger used for retry debug lines.
func WithLogger(log *slog.Logger) Option {
	return func(c *config) { c.log = log }
}

// On runs op until it succeeds, fails with a non-retryable error, the
// policy is exhausted, or ctx is done. The attempt passed to op counts
// from 1. The last error is returned as-is so callers can keep using
// errors.Is on it.
func On(ctx context.Context, policy Policy, retryable func(error) bool, op func(ctx context.Context, attempt int) error, opts ...Option) error {
	cfg := config{log: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	policy = policy.normalize()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == policy.MaxAttempts {
			return lastErr
		}

		cfg.log.DebugContext(ctx, "retrying after error",
			slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()),
		)

		if err := sleep(ctx, backoffFor(policy, attempt)); err != nil {
			return fmt.Errorf("retry interrupted: %w", err)
		}
	}
	return lastErr
}

// backoffFor doubles the minimum backoff per completed attempt.
func backoffFor(p Policy, attempt int) time.Duration {
	d := p.MinBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
