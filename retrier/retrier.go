// Package retrier wraps codeGROOVE-dev/retry with the service's transient
// fault classification: transport-level failures are retried with a fixed
// delay, everything else fails on the first attempt.
package retrier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/KU-Stacks/ku-ring-backend-web/apperror"
)

// Policy is a bounded fixed-delay retry policy.
type Policy struct {
	Logger   *slog.Logger
	Attempts uint
	Delay    time.Duration
}

// Default matches the upstream sources' observed flakiness: three attempts,
// one second apart.
func Default(logger *slog.Logger) Policy {
	return Policy{Logger: logger, Attempts: 3, Delay: time.Second}
}

// Do runs fn, retrying transient failures up to the attempt bound. The last
// error is surfaced unchanged for non-transient faults, and wrapped with the
// attempt count when retries are exhausted.
func (p Policy) Do(ctx context.Context, op string, fn func() error) error {
	var attempts uint

	err := retry.Do(
		func() error {
			attempts++
			err := fn()
			if err == nil {
				return nil
			}
			if !apperror.IsTransient(err) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Attempts(p.Attempts),
		retry.Delay(p.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			p.Logger.Info("Retrying after transient error", "op", op, "attempt", n, "error", err)
		}),
	)
	if err != nil {
		if apperror.IsTransient(err) {
			return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, err)
		}
		return err
	}
	return nil
}
