package errs

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy configures backoff-with-jitter retry. Attempt numbering
// starts at 1; backoff for attempt n is min(baseDelay*2^(n-1), maxDelay),
// then perturbed by a symmetric jitter of +/- jitterRatioPct percent.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	JitterRatioPct int
}

// DefaultRetryPolicy is counted in attempts, not retries: MaxAttempts: 3
// means up to three total tries.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 16 * time.Second, JitterRatioPct: 20}
}

func backoffFor(p RetryPolicy, attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d > p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.JitterRatioPct <= 0 {
		return d
	}
	jitterRange := float64(d) * float64(p.JitterRatioPct) / 100.0
	delta := (rand.Float64()*2 - 1) * jitterRange
	out := time.Duration(float64(d) + delta)
	if out < 0 {
		out = 0
	}
	if out > p.MaxDelay {
		out = p.MaxDelay
	}
	return out
}

// sleep waits for d or returns a Cancelled error if ctx is done first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if ctx.Err() != nil {
			return Cancelled("retry sleep interrupted")
		}
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return Cancelled("retry sleep interrupted")
	case <-timer.C:
		return nil
	}
}

// Retry runs fn up to policy.MaxAttempts times, retrying only while the
// returned error classifies Retriable and attempts remain. A Cancelled
// error from fn or from ctx short-circuits immediately without retrying.
func Retry(ctx context.Context, policy RetryPolicy, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return Cancelled("retry aborted before attempt")
		}
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if IsCancelled(err) {
			return err
		}
		lastErr = err
		if !IsRetriable(err) || attempt >= policy.MaxAttempts {
			return err
		}
		if sleepErr := sleep(ctx, backoffFor(policy, attempt)); sleepErr != nil {
			return sleepErr
		}
	}
	return lastErr
}

// RetryWithResult is Retry for functions that also produce a value.
func RetryWithResult[T any](ctx context.Context, policy RetryPolicy, fn func(attempt int) (T, error)) (T, error) {
	var zero T
	var lastVal T
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return zero, Cancelled("retry aborted before attempt")
		}
		val, err := fn(attempt)
		if err == nil {
			return val, nil
		}
		if IsCancelled(err) {
			return zero, err
		}
		lastVal, lastErr = val, err
		if !IsRetriable(err) || attempt >= policy.MaxAttempts {
			return lastVal, err
		}
		if sleepErr := sleep(ctx, backoffFor(policy, attempt)); sleepErr != nil {
			return zero, sleepErr
		}
	}
	return lastVal, lastErr
}

// TimeoutWithContext races cancellation, timer expiry, and completion of
// fn. Timer expiry yields a Retriable core/timeout error; cancellation
// yields Cancelled; otherwise fn's own result passes through unchanged.
func TimeoutWithContext[T any](ctx context.Context, dur time.Duration, opName string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	cctx, cancel := context.WithTimeout(ctx, dur)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(cctx)
		done <- result{v, err}
	}()

	select {
	case <-ctx.Done():
	case <-cctx.Done():
		select {
		case r := <-done:
			if r.err == nil {
				return r.val, nil
			}
		default:
		}
	case r := <-done:
		if r.err == nil || cctx.Err() == nil {
			return r.val, r.err
		}
	}
	if ctx.Err() != nil {
		return zero, Cancelled(opName + " cancelled")
	}
	return zero, Unexpected("CORE", "TIMEOUT", opName+" timed out after "+dur.String(), ClassRetriable, cctx.Err())
}
