package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestCircuitBreakerOpensOnRateLimits(t *testing.T) {
	now := time.Unix(1700000000, 0)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	cb.OnError(errors.New("plain failure"))
	cb.OnError(RateLimitError{Provider: "azure_tts"})
	if !cb.Allow() {
		t.Fatalf("expected breaker closed below threshold")
	}
	cb.OnError(fmt.Errorf("wrapped: %w", RateLimitError{Provider: "azure_tts"}))
	if cb.Allow() || cb.State() != BreakerOpen {
		t.Fatalf("expected breaker open at threshold, got %s", cb.State())
	}

	now = now.Add(2 * time.Minute)
	if cb.State() != BreakerHalfOpen {
		t.Fatalf("expected half open after cooldown, got %s", cb.State())
	}
	if !cb.Allow() {
		t.Fatalf("expected a trial call after cooldown")
	}
	if cb.Allow() {
		t.Fatalf("expected a single trial call at a time")
	}
	cb.OnSuccess()
	if cb.State() != BreakerClosed {
		t.Fatalf("expected closed after successful trial call, got %s", cb.State())
	}
	cb.OnError(RateLimitError{})
	if !cb.Allow() {
		t.Fatalf("expected failure count reset by success")
	}
}

func TestCircuitBreakerFailedTrialReopens(t *testing.T) {
	now := time.Unix(1700000000, 0)
	cb := NewCircuitBreaker(1, time.Minute)
	cb.now = func() time.Time { return now }

	cb.OnError(RateLimitError{})
	now = now.Add(time.Minute)
	if !cb.Allow() {
		t.Fatalf("expected trial call")
	}
	cb.OnError(RateLimitError{})
	if cb.State() != BreakerOpen || cb.Allow() {
		t.Fatalf("expected reopened breaker, got %s", cb.State())
	}

	now = now.Add(time.Minute)
	if !cb.Allow() {
		t.Fatalf("expected trial call")
	}
	// A non rate limit failure ends the trial call without tripping.
	cb.OnError(errors.New("dial"))
	if !cb.Allow() {
		t.Fatalf("expected another trial call after an unrelated error")
	}
}

func TestNilCircuitBreakerAllows(t *testing.T) {
	var cb *CircuitBreaker
	cb.OnError(RateLimitError{})
	cb.OnSuccess()
	if !cb.Allow() {
		t.Fatalf("nil breaker should always allow")
	}
}

func TestRetryPolicyStopsOnSuccess(t *testing.T) {
	calls := 0
	err := NewRetryPolicy(3, time.Millisecond).Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("expected success on second call, got err=%v calls=%d", err, calls)
	}
}

func TestRetryPolicyReturnsLastError(t *testing.T) {
	calls := 0
	err := NewRetryPolicy(2, time.Millisecond).Do(context.Background(), func(context.Context) error {
		calls++
		return fmt.Errorf("attempt %d", calls)
	})
	if calls != 3 || err == nil || err.Error() != "attempt 3" {
		t.Fatalf("unexpected result err=%v calls=%d", err, calls)
	}
}

func TestRetryPolicyHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_ = NewRetryPolicy(5, time.Hour).Do(ctx, func(context.Context) error {
		calls++
		return errors.New("down")
	})
	if calls != 1 {
		t.Fatalf("expected a single attempt on cancelled context, got %d", calls)
	}
}
