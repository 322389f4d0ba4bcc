package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Policy struct {
	// total number of tries, values below 1 mean a single try
	Attempts int
	// the wait after attempt n is BaseDelay * n
	BaseDelay time.Duration
}

func (p Policy) attempts() int {
	if p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

// Delay returns how long to wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt)
}

// linearBackOff is a backoff.BackOff waiting Policy.Delay between tries.
type linearBackOff struct {
	policy  Policy
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.policy.Delay(b.attempt)
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}

// Permanent marks an error as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

func IsPermanent(err error) bool {
	var perm *backoff.PermanentError
	return errors.As(err, &perm)
}

// Do calls fn until it succeeds, returns a permanent error or the policy runs
// out of attempts. The last error is returned when every attempt fails, a
// permanent error is returned unwrapped.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	b := backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{policy: p}, uint64(p.attempts()-1)),
		ctx,
	)

	attempt := 0
	return backoff.RetryNotifyWithData(
		func() (T, error) {
			if err := ctx.Err(); err != nil {
				var zero T
				return zero, backoff.Permanent(err)
			}
			attempt++
			return fn(ctx, attempt)
		},
		b,
		func(err error, wait time.Duration) {
			slog.DebugContext(ctx, "retrying", "attempt", attempt, "wait", wait, "err", err)
		},
	)
}
