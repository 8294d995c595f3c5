// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package middleware implements the cross-cutting Upstream wrappers:
// Retry, CircuitBreaker, Cache, FrequencyCap, Budget and Metrics.
// Composition order is outermost-first: Retry ∘ CircuitBreaker ∘ Cache ∘
// FrequencyCap ∘ Budget ∘ Metrics ∘ Base.
package middleware

import (
	"context"
	"math/rand"
	"time"

	"github.com/luxfi/adxgateway/errs"
	"github.com/luxfi/adxgateway/upstream"
)

// RetryConfig configures the Retry middleware's exponential backoff.
type RetryConfig struct {
	MaxAttempts int // >= 1
	BaseDelay   time.Duration
	Factor      float64
	Jitter      time.Duration
	// IsRetriable overrides the default errs.IsRetriable classifier.
	IsRetriable func(error) bool
}

// Retry wraps a Requester, re-issuing Request on retriable errors with
// exponential backoff, never waiting past the caller's deadline.
type Retry[T any] struct {
	next upstream.Requester[T]
	cfg  RetryConfig
}

// NewRetry wraps next with retry behavior per cfg. MaxAttempts below 1 is
// treated as 1 (no retry).
func NewRetry[T any](next upstream.Requester[T], cfg RetryConfig) *Retry[T] {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.IsRetriable == nil {
		cfg.IsRetriable = errs.IsRetriable
	}
	return &Retry[T]{next: next, cfg: cfg}
}

func (r *Retry[T]) Request(ctx context.Context, endpoint string, params upstream.Params, headers upstream.Headers, payload []byte, timeout time.Duration) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(r.cfg.BaseDelay) * pow(r.cfg.Factor, attempt))
			if r.cfg.Jitter > 0 {
				delay += time.Duration(rand.Int63n(int64(r.cfg.Jitter)))
			}

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, errs.ErrCanceled
			case <-timer.C:
			}
		}

		out, err := r.next.Request(ctx, endpoint, params, headers, payload, timeout)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !r.cfg.IsRetriable(err) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, errs.ErrCanceled
		}
	}
	return zero, lastErr
}

func (r *Retry[T]) HealthCheck(ctx context.Context) bool { return r.next.HealthCheck(ctx) }
func (r *Retry[T]) Close() error                         { return r.next.Close() }

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
