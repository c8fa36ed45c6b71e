// Package retry implements the bounded-attempt, exponential-backoff retry
// policy (C4) that wraps Gateway REST calls liable to fail with transient
// venue errors.
package retry

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/tradecore/binancefutures-core/internal/xerr"
)

// DefaultMaxAttempts and DefaultBackoffBase match spec §4.2 exactly: up to
// 3 attempts, delay = base^attempt seconds with base=2.
const (
	DefaultMaxAttempts = 3
	DefaultBackoffBase = 2
)

// Policy configures a retry.Do call.
type Policy struct {
	MaxAttempts int
	BackoffBase int
	Logger      *slog.Logger
}

// DefaultPolicy returns the spec-mandated policy: 3 attempts, base-2 backoff.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BackoffBase: DefaultBackoffBase}
}

// Do runs fn, retrying only when the returned error's xerr.Kind is
// Transient. Any other kind (or a non-xerr error) short-circuits
// immediately. Backoff between attempt i and i+1 is BackoffBase^i seconds,
// so the first retry waits 1s, the second 2s (with the defaults).
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = DefaultBackoffBase
	}

	var zero T
	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !xerr.Is(err, xerr.Transient) {
			return zero, err
		}

		if attempt == p.MaxAttempts-1 {
			if p.Logger != nil {
				p.Logger.Error("max retries exceeded", "attempts", p.MaxAttempts, "error", err)
			}
			return zero, err
		}

		delay := time.Duration(math.Pow(float64(p.BackoffBase), float64(attempt))) * time.Second
		if p.Logger != nil {
			p.Logger.Warn("retrying after transient error", "attempt", attempt+1, "max_attempts", p.MaxAttempts, "delay", delay, "error", err)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	return zero, lastErr
}
