// Package retry runs fallible operations under a bounded exponential backoff.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes how many times an operation is attempted and how long to
// wait between attempts. The wait after the n-th failed attempt (0 indexed)
// is Base * 2^n, with no jitter.
type Policy struct {
	Attempts int
	Base     time.Duration
	// Recoverable decides if an error is eligible for another attempt,
	// errors it rejects are returned immediately and unwrapped.
	// A nil Recoverable treats every error as recoverable.
	Recoverable func(err error) bool
}

// Default is the policy shared by the source adapters.
var Default = Policy{
	Attempts: 3,
	Base:     600 * time.Millisecond,
}

// WithRecoverable returns a copy of the policy using the given classifier.
func (p Policy) WithRecoverable(recoverable func(err error) bool) Policy {
	p.Recoverable = recoverable
	return p
}

// ExhaustedRetriesError is returned once every attempt of a policy has failed
// with a recoverable error, it wraps the last error observed.
type ExhaustedRetriesError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %s", e.Attempts, e.Err.Error())
}

func (e *ExhaustedRetriesError) Unwrap() error {
	return e.Err
}

func (p Policy) backoff(attempts int) backoff.BackOff {
	// doubling stops short of overflowing, long policies plateau instead
	maxInterval := p.Base
	for i := 1; i < attempts && maxInterval <= math.MaxInt64/4; i++ {
		maxInterval *= 2
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Base
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = maxInterval
	b.MaxElapsedTime = 0

	return backoff.WithMaxRetries(b, uint64(attempts-1))
}

// Do runs op until it succeeds, fails with an unrecoverable error or runs out
// of attempts.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	attempt := 0
	permanent := false
	operation := func() (T, error) {
		attempt++
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if p.Recoverable != nil && !p.Recoverable(err) {
			permanent = true
			return result, backoff.Permanent(err)
		}
		return result, err
	}
	notify := func(err error, delay time.Duration) {
		slog.WarnContext(
			ctx, "retrying",
			"attempt", attempt,
			"max_attempts", attempts,
			"delay", delay,
			"err", err,
		)
	}

	result, err := backoff.RetryNotifyWithData(
		operation,
		backoff.WithContext(p.backoff(attempts), ctx),
		notify,
	)
	if err == nil {
		return result, nil
	}
	if permanent || ctx.Err() != nil {
		return result, err
	}

	var zero T
	return zero, &ExhaustedRetriesError{Attempts: attempt, Err: err}
}
