package resilience

import (
	"context"
	"time"
)

// RetryPolicy defines retry behavior for transient failures.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

func NewRetryPolicy(maxRetries int, backoff time.Duration) RetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return RetryPolicy{MaxRetries: maxRetries, Backoff: backoff}
}

// Do runs fn until it succeeds, retries are exhausted or ctx ends.
// The backoff doubles after every attempt.
func (r RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	backoff := r.Backoff
	var err error
	for i := 0; i <= r.MaxRetries; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == r.MaxRetries {
			break
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
		backoff *= 2
	}
	return err
}
