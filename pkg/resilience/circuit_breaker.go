// Package resilience holds the failure-handling primitives shared by remote
// speech adapters.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned instead of calling a provider that keeps rate limiting.
var ErrCircuitOpen = errors.New("circuit open")

// RateLimitError represents a provider rate limit response.
type RateLimitError struct {
	Provider string
	Message  string
}

func (e RateLimitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "rate limit"
}

// IsRateLimit returns true when the error is a RateLimitError.
func IsRateLimit(err error) bool {
	var rl RateLimitError
	return errors.As(err, &rl)
}

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	// BreakerHalfOpen lets a single trial call through after the cooldown.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker stops calling a provider after threshold consecutive rate
// limit responses. Other errors neither trip nor reset it. A nil breaker
// always allows.
type CircuitBreaker struct {
	mu        sync.Mutex
	state     BreakerState
	limited   int
	threshold int
	cooldown  time.Duration
	openedAt  time.Time
	trialing  bool
	now       func() time.Time
}

func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Allow reports whether a call may proceed. Every allowed call must be
// followed by OnSuccess or OnError.
func (c *CircuitBreaker) Allow() bool {
	if c == nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == BreakerOpen && c.now().Sub(c.openedAt) >= c.cooldown {
		c.state = BreakerHalfOpen
	}
	switch c.state {
	case BreakerOpen:
		return false
	case BreakerHalfOpen:
		if c.trialing {
			return false
		}
		c.trialing = true
		return true
	default:
		return true
	}
}

func (c *CircuitBreaker) OnSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.state = BreakerClosed
	c.limited = 0
	c.trialing = false
	c.mu.Unlock()
}

func (c *CircuitBreaker) OnError(err error) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trialing = false
	if !IsRateLimit(err) {
		return
	}
	c.limited++
	if c.state == BreakerHalfOpen || c.limited >= c.threshold {
		c.state = BreakerOpen
		c.openedAt = c.now()
	}
}

// State returns the current state without starting a trial call.
func (c *CircuitBreaker) State() BreakerState {
	if c == nil {
		return BreakerClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == BreakerOpen && c.now().Sub(c.openedAt) >= c.cooldown {
		return BreakerHalfOpen
	}
	return c.state
}
