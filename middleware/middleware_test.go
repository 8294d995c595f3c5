// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package middleware

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/luxfi/adxgateway/errs"
	"github.com/luxfi/adxgateway/session"
	"github.com/luxfi/adxgateway/upstream"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// countingRequester counts Request calls and returns a canned
// (value, error) pair, simulating a base Upstream.
type countingRequester struct {
	calls int32
	err   error
	value string
}

func (c *countingRequester) Request(_ context.Context, _ string, _ upstream.Params, _ upstream.Headers, _ []byte, _ time.Duration) (string, error) {
	atomic.AddInt32(&c.calls, 1)
	if c.err != nil {
		return "", c.err
	}
	return c.value, nil
}

func (c *countingRequester) HealthCheck(context.Context) bool { return true }
func (c *countingRequester) Close() error                     { return nil }

func TestRetry_StopsOnNonRetriableError(t *testing.T) {
	base := &countingRequester{err: errors.New("boom")}
	r := NewRetry[string](base, RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond, Factor: 2})

	_, err := r.Request(context.Background(), "", nil, nil, nil, 0)
	require.Error(t, err)
	require.EqualValues(t, 1, base.calls)
}

func TestRetry_MaxAttemptsOneIsNoRetry(t *testing.T) {
	base := &countingRequester{err: &errs.TransportTimeout{Endpoint: "x"}}
	r := NewRetry[string](base, RetryConfig{MaxAttempts: 1})

	_, err := r.Request(context.Background(), "", nil, nil, nil, 0)
	require.Error(t, err)
	require.EqualValues(t, 1, base.calls)
}

func TestRetry_RetriesUpToMaxAttempts(t *testing.T) {
	base := &countingRequester{err: &errs.TransportTimeout{Endpoint: "x"}}
	r := NewRetry[string](base, RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Factor: 1})

	_, err := r.Request(context.Background(), "", nil, nil, nil, 0)
	require.Error(t, err)
	require.EqualValues(t, 3, base.calls)
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	base := &countingRequester{err: errors.New("down")}
	cb := NewCircuitBreaker[string](base, CircuitBreakerConfig{FailureThreshold: 2, RecoveryInterval: time.Hour})

	_, _ = cb.Request(context.Background(), "", nil, nil, nil, 0)
	_, _ = cb.Request(context.Background(), "", nil, nil, nil, 0)
	require.Equal(t, Open, cb.State())

	_, err := cb.Request(context.Background(), "", nil, nil, nil, 0)
	require.ErrorIs(t, err, errs.ErrCircuitOpen)
	require.EqualValues(t, 2, base.calls) // third call failed fast, no delegation
}

func TestFrequencyCap_FourthRequestFailsWithZeroSends(t *testing.T) {
	base := &countingRequester{value: "ok"}
	backend := session.NewMemBackend()
	ctxFn := func() session.Context { return session.Context{UserID: "user1"} }

	fc := NewFrequencyCap[string](base, backend, ctxFn, FrequencyCapConfig{
		HourlyLimit:  3,
		HourlyWindow: time.Hour,
	}, nil)

	for i := 0; i < 3; i++ {
		_, err := fc.Request(context.Background(), "", nil, nil, nil, 0)
		require.NoError(t, err)
	}
	require.EqualValues(t, 3, base.calls)

	_, err := fc.Request(context.Background(), "", nil, nil, nil, 0)
	require.Error(t, err)
	var capErr *errs.FrequencyCapExceeded
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, "hourly", capErr.Which)
	require.EqualValues(t, 3, base.calls) // no additional upstream send on the 4th call
}

func TestFrequencyCap_PerCampaignCapIsIndependentOfUserWindows(t *testing.T) {
	base := &countingRequester{value: "ok"}
	backend := session.NewMemBackend()
	ctxFn := func() session.Context {
		return session.Context{
			UserID:   "user1",
			Metadata: map[string]any{"campaign_id": "camp1"},
		}
	}

	fc := NewFrequencyCap[string](base, backend, ctxFn, FrequencyCapConfig{
		HourlyLimit:   10,
		CampaignLimit: 2,
	}, nil)

	for i := 0; i < 2; i++ {
		_, err := fc.Request(context.Background(), "", nil, nil, nil, 0)
		require.NoError(t, err)
	}

	_, err := fc.Request(context.Background(), "", nil, nil, nil, 0)
	var capErr *errs.FrequencyCapExceeded
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, "campaign", capErr.Which)
	require.EqualValues(t, 2, base.calls)

	// Same user, different campaign: the campaign counter is keyed per
	// (user, campaign), so a fresh campaign is not capped.
	otherFn := func() session.Context {
		return session.Context{
			UserID:   "user1",
			Metadata: map[string]any{"campaign_id": "camp2"},
		}
	}
	fc2 := NewFrequencyCap[string](base, backend, otherFn, FrequencyCapConfig{
		HourlyLimit:   10,
		CampaignLimit: 2,
	}, nil)
	_, err = fc2.Request(context.Background(), "", nil, nil, nil, 0)
	require.NoError(t, err)
}

func TestBudget_SpentNeverExceedsTotal(t *testing.T) {
	base := &countingRequester{value: "ok"}
	store := NewMemBudgetStore()
	store.SetBudget("camp1", decimal.NewFromFloat(10), "USD")

	b := NewBudget[string](base, store, "camp1", decimal.NewFromFloat(4))

	_, err := b.Request(context.Background(), "", nil, nil, nil, 0)
	require.NoError(t, err)
	_, err = b.Request(context.Background(), "", nil, nil, nil, 0)
	require.NoError(t, err)

	remaining, err := store.Remaining(context.Background(), "camp1")
	require.NoError(t, err)
	require.True(t, remaining.Equal(decimal.NewFromFloat(2)))

	_, err = b.Request(context.Background(), "", nil, nil, nil, 0)
	require.Error(t, err)
}

func TestBudget_TwoPhaseReleasesOnFailure(t *testing.T) {
	base := &countingRequester{err: errors.New("upstream down")}
	store := NewMemBudgetStore()
	store.SetBudget("camp1", decimal.NewFromFloat(10), "USD")

	b := NewBudgetTwoPhase[string](base, store, "camp1", decimal.NewFromFloat(4))

	_, err := b.Request(context.Background(), "", nil, nil, nil, 0)
	require.Error(t, err)

	remaining, err := store.Remaining(context.Background(), "camp1")
	require.NoError(t, err)
	require.True(t, remaining.Equal(decimal.NewFromFloat(10)))
}

func TestCache_MissThenHit(t *testing.T) {
	base := &countingRequester{value: "ok"}
	c := NewCache[string](base, CacheConfig{TTL: time.Minute})

	_, err := c.Request(context.Background(), "", upstream.Params{"a": "1"}, nil, nil, 0)
	require.NoError(t, err)
	_, err = c.Request(context.Background(), "", upstream.Params{"a": "1"}, nil, nil, 0)
	require.NoError(t, err)

	require.EqualValues(t, 1, base.calls)
}
