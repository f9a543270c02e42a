package util

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryErrWithContext calls fn up to maxTries times until it returns nil error,
// or until ctx is done. If maxTries <= 0, it defaults to 1.
func RetryErrWithContext(ctx context.Context, maxTries int, fn func(context.Context) error) error {
	_, err := RetryWithContext(ctx, maxTries, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RetryWithContext calls fn up to maxTries times until it returns a result and nil error,
// or until ctx is done. If maxTries <= 0, it defaults to 1.
// Returns ctx.Err() if the context is canceled, otherwise returns the last error.
func RetryWithContext[T any](ctx context.Context, maxTries int, fn func(context.Context) (T, error)) (T, error) {
	if maxTries <= 0 {
		maxTries = 1
	}
	var lastErr error
	var zero T
	for i := 0; i < maxTries; i++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if isContextErr(err) {
			return zero, err
		}
		lastErr = err
	}
	return zero, lastErr
}

// Backoff describes a delayed retry schedule.
type Backoff struct {
	// Delay is the wait before the second attempt. Exponential schedules double it per attempt.
	Delay time.Duration
	// MaxDelay caps a single wait. Zero means uncapped.
	MaxDelay time.Duration
	// MaxAttempts bounds the total number of calls. Zero means unbounded.
	MaxAttempts int
	Exponential bool
}

func (b Backoff) schedule() retry.Backoff {
	delay := b.Delay
	if delay <= 0 {
		delay = time.Millisecond
	}

	var s retry.Backoff
	if b.Exponential {
		s = retry.NewExponential(delay)
	} else {
		s = retry.NewConstant(delay)
	}
	if b.MaxDelay > 0 {
		s = retry.WithCappedDuration(b.MaxDelay, s)
	}
	if b.MaxAttempts > 0 {
		s = retry.WithMaxRetries(uint64(b.MaxAttempts-1), s)
	}
	return s
}

// RetryBackoff calls fn until it succeeds, returns an error that retryable rejects,
// the schedule is exhausted or ctx is done. A nil retryable retries every error.
// The last error from fn is returned on exhaustion.
func RetryBackoff[T any](
	ctx context.Context,
	b Backoff,
	retryable func(error) bool,
	fn func(context.Context) (T, error),
) (T, error) {
	var result T
	err := retry.Do(ctx, b.schedule(), func(ctx context.Context) error {
		r, err := fn(ctx)
		if err == nil {
			result = r
			return nil
		}
		if isContextErr(err) {
			return err
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
