// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/luxfi/adxgateway/errs"
	"github.com/luxfi/adxgateway/upstream"
)

// CircuitState is one of Closed, Open, HalfOpen.
type CircuitState int

const (
	Closed CircuitState = iota
	Open
	HalfOpen
)

// CircuitBreakerConfig configures failure/recovery thresholds.
type CircuitBreakerConfig struct {
	FailureThreshold int // consecutive failures before tripping to Open
	RecoveryInterval time.Duration
}

// CircuitBreaker wraps a Requester and fails fast with errs.ErrCircuitOpen
// once consecutive failures reach FailureThreshold, until
// RecoveryInterval elapses and a single probe is admitted.
type CircuitBreaker[T any] struct {
	next upstream.Requester[T]
	cfg  CircuitBreakerConfig

	mu       sync.Mutex
	state    CircuitState
	failures int
	openedAt time.Time
}

// NewCircuitBreaker wraps next with circuit-breaking per cfg.
func NewCircuitBreaker[T any](next upstream.Requester[T], cfg CircuitBreakerConfig) *CircuitBreaker[T] {
	return &CircuitBreaker[T]{next: next, cfg: cfg, state: Closed}
}

// State reports the current circuit state. Exported for diagnostics and
// tests; not part of the Requester contract.
func (c *CircuitBreaker[T]) State() CircuitState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *CircuitBreaker[T]) Request(ctx context.Context, endpoint string, params upstream.Params, headers upstream.Headers, payload []byte, timeout time.Duration) (T, error) {
	var zero T

	if !c.admit() {
		return zero, errs.ErrCircuitOpen
	}

	out, err := c.next.Request(ctx, endpoint, params, headers, payload, timeout)
	c.record(err == nil)
	if err != nil {
		return zero, err
	}
	return out, nil
}

// admit reports whether a call may proceed, transitioning Open→HalfOpen
// once RecoveryInterval has elapsed.
func (c *CircuitBreaker[T]) admit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Closed:
		return true
	case Open:
		if time.Since(c.openedAt) >= c.cfg.RecoveryInterval {
			c.state = HalfOpen
			return true
		}
		return false
	case HalfOpen:
		// Only one probe admitted at a time; subsequent callers fail
		// fast until the probe resolves.
		return false
	default:
		return true
	}
}

func (c *CircuitBreaker[T]) record(success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if success {
		c.state = Closed
		c.failures = 0
		return
	}

	switch c.state {
	case HalfOpen:
		c.state = Open
		c.openedAt = time.Now()
	case Closed:
		c.failures++
		if c.failures >= c.cfg.FailureThreshold {
			c.state = Open
			c.openedAt = time.Now()
		}
	}
}

func (c *CircuitBreaker[T]) HealthCheck(ctx context.Context) bool { return c.next.HealthCheck(ctx) }
func (c *CircuitBreaker[T]) Close() error                         { return c.next.Close() }
