// Package resiliency wraps cenkalti/backoff with the retry shapes this
// repository uses: value-producing retries for reads and plain retries for
// fire-and-confirm operations.
package resiliency

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func defaultExponentialBackoff() *backoff.ExponentialBackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(200*time.Millisecond),
		backoff.WithMaxInterval(10*time.Second),
		backoff.WithMaxElapsedTime(2*time.Minute),
	)
}

// RetryGet calls factory with the given back-off policy until a value is
// produced, a permanent error occurs, or ctx is cancelled.
func RetryGet[T any](ctx context.Context, b backoff.BackOff, factory func() (T, error)) (T, error) {
	var lastAttemptErr error

	retval, err := backoff.RetryNotifyWithData(
		factory,
		backoff.WithContext(b, ctx),
		func(err error, d time.Duration) {
			lastAttemptErr = err
		},
	)

	switch {
	case err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)):
		// Surface the timeout AND the last attempt error.
		return *new(T), errors.Join(lastAttemptErr, err)
	case err != nil:
		return *new(T), err
	default:
		return retval, nil
	}
}

// RetryExponentialWithTimeout calls operation with exponential back-off
// until it succeeds, a permanent error occurs, ctx is cancelled, or the
// timeout elapses.
func RetryExponentialWithTimeout(ctx context.Context, timeout time.Duration, operation func() error) error {
	timeoutCtx, cancelTimeoutCtx := context.WithTimeout(ctx, timeout)
	defer cancelTimeoutCtx()
	return Retry(timeoutCtx, defaultExponentialBackoff(), operation)
}

// Retry calls operation with the given back-off policy until it succeeds, a
// permanent error occurs, or ctx is cancelled.
func Retry(ctx context.Context, b backoff.BackOff, operation func() error) error {
	var lastAttemptErr error

	err := backoff.RetryNotify(
		operation,
		backoff.WithContext(b, ctx),
		func(err error, d time.Duration) {
			lastAttemptErr = err
		},
	)

	switch {
	case err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)):
		return errors.Join(lastAttemptErr, err)
	case err != nil:
		return err
	default:
		return nil
	}
}

// Permanent marks err so the retry loop stops immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
