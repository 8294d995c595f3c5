// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/luxfi/adxgateway/errs"
	"github.com/luxfi/adxgateway/session"
	"github.com/luxfi/adxgateway/upstream"
	"go.uber.org/zap"
)

// FrequencyCapConfig sets per-window impression ceilings. A zero limit
// means that window is not enforced. The hourly/daily/weekly caps are
// keyed per user; the campaign cap is keyed per (user, campaign) and
// only evaluated when the SessionContext carries a campaign_id
// metadata entry.
type FrequencyCapConfig struct {
	HourlyLimit   int
	DailyLimit    int
	WeeklyLimit   int
	CampaignLimit int

	HourlyWindow   time.Duration
	DailyWindow    time.Duration
	WeeklyWindow   time.Duration
	CampaignWindow time.Duration
}

// capCheck is one window evaluated against one backend key.
type capCheck struct {
	name   string
	key    string
	field  string
	limit  int
	window time.Duration
}

// FrequencyCap wraps a Requester, consulting Backend for the caller's
// SessionContext.UserID (and campaign_id metadata, for the
// per-campaign cap) before delegating. Exceeding any configured window
// fails with errs.FrequencyCapExceeded without contacting the wrapped
// Requester; backend errors fail open (the request proceeds and the
// error is logged), per this system's backend failure policy.
type FrequencyCap[T any] struct {
	next    upstream.Requester[T]
	backend session.Backend
	ctxFn   func() session.Context
	cfg     FrequencyCapConfig
	log     *zap.Logger
}

// NewFrequencyCap wraps next with frequency capping. ctxFn supplies the
// current SessionContext for each call (the caller owns its lifecycle).
// Windows left zero default to the natural duration of their cap
// (hour/day/week; campaign defaults to a day), so a configured limit
// never silently becomes a lifetime cap.
func NewFrequencyCap[T any](next upstream.Requester[T], backend session.Backend, ctxFn func() session.Context, cfg FrequencyCapConfig, log *zap.Logger) *FrequencyCap[T] {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.HourlyWindow <= 0 {
		cfg.HourlyWindow = time.Hour
	}
	if cfg.DailyWindow <= 0 {
		cfg.DailyWindow = 24 * time.Hour
	}
	if cfg.WeeklyWindow <= 0 {
		cfg.WeeklyWindow = 7 * 24 * time.Hour
	}
	if cfg.CampaignWindow <= 0 {
		cfg.CampaignWindow = 24 * time.Hour
	}
	return &FrequencyCap[T]{next: next, backend: backend, ctxFn: ctxFn, cfg: cfg, log: log}
}

func (f *FrequencyCap[T]) Request(ctx context.Context, endpoint string, params upstream.Params, headers upstream.Headers, payload []byte, timeout time.Duration) (T, error) {
	var zero T

	sc := f.ctxFn()
	checks := f.capChecks(sc)

	now := time.Now()
	elapsed, which, exceeded, err := f.checkCaps(ctx, checks, now)
	if err != nil {
		f.log.Warn("frequency cap backend error, failing open", zap.Error(err))
	} else if exceeded {
		return zero, &errs.FrequencyCapExceeded{Which: which}
	}

	out, err := f.next.Request(ctx, endpoint, params, headers, payload, timeout)
	if err != nil {
		return zero, err
	}

	nowMs := now.UnixMilli()
	for _, c := range checks {
		f.commit(ctx, c, elapsed[c.key])
	}
	for _, key := range distinctKeys(checks) {
		_ = f.backend.Set(ctx, key+":last", []byte(fmt.Sprintf("%d", nowMs)), 0)
	}

	return out, nil
}

// capChecks lists the windows to evaluate for this call: the per-user
// hourly/daily/weekly caps, plus the per-(user, campaign) cap when the
// SessionContext names a campaign.
func (f *FrequencyCap[T]) capChecks(sc session.Context) []capCheck {
	userKey := freqKey(sc.UserID, "")
	checks := []capCheck{
		{"hourly", userKey, "hourly_count", f.cfg.HourlyLimit, f.cfg.HourlyWindow},
		{"daily", userKey, "daily_count", f.cfg.DailyLimit, f.cfg.DailyWindow},
		{"weekly", userKey, "weekly_count", f.cfg.WeeklyLimit, f.cfg.WeeklyWindow},
	}
	if campaignID, _ := sc.Metadata["campaign_id"].(string); campaignID != "" {
		checks = append(checks, capCheck{
			"campaign", freqKey(sc.UserID, campaignID), "campaign_count",
			f.cfg.CampaignLimit, f.cfg.CampaignWindow,
		})
	}
	return checks
}

// commit writes one check's post-request count: if its window has
// elapsed since the key's last impression, the counter is reset and
// written as 1 rather than incremented on top of the prior window's
// stale value, per the reset rule ("on successful commit write the
// reset along with the new count").
func (f *FrequencyCap[T]) commit(ctx context.Context, c capCheck, elapsed time.Duration) {
	if elapsed >= c.window {
		current, err := f.backend.Increment(ctx, c.key, c.field, 0)
		if err != nil {
			f.log.Warn("frequency cap reset-peek failed", zap.Error(err))
			return
		}
		if _, err := f.backend.Increment(ctx, c.key, c.field, 1-current); err != nil {
			f.log.Warn("frequency cap reset failed", zap.Error(err))
		}
		return
	}
	if _, err := f.backend.Increment(ctx, c.key, c.field, 1); err != nil {
		f.log.Warn("frequency cap increment failed", zap.Error(err))
	}
}

// checkCaps returns the elapsed time since each key's last impression
// (reused by commit, above) and evaluates every configured window
// against its current counter, treating a counter as reset if its
// window has elapsed: a counter resets for comparison purposes when
// now - last_impression_ms >= window.
func (f *FrequencyCap[T]) checkCaps(ctx context.Context, checks []capCheck, now time.Time) (elapsed map[string]time.Duration, which string, exceeded bool, err error) {
	elapsed = make(map[string]time.Duration, 2)
	for _, key := range distinctKeys(checks) {
		since, sinceErr := f.elapsedSinceLast(ctx, key, now)
		if sinceErr != nil {
			return elapsed, "", false, sinceErr
		}
		elapsed[key] = since
	}

	for _, c := range checks {
		if c.limit <= 0 {
			continue
		}
		if elapsed[c.key] >= c.window {
			continue // window elapsed, counter treated as reset
		}
		count, incErr := f.backend.Increment(ctx, c.key, c.field, 0)
		if incErr != nil {
			return elapsed, "", false, incErr
		}
		if count >= int64(c.limit) {
			return elapsed, c.name, true, nil
		}
	}
	return elapsed, "", false, nil
}

func (f *FrequencyCap[T]) elapsedSinceLast(ctx context.Context, key string, now time.Time) (time.Duration, error) {
	lastData, found, err := f.backend.Get(ctx, key+":last")
	if err != nil {
		return 0, err
	}
	if !found {
		return time.Duration(1<<63 - 1), nil // effectively "always reset" if unseen
	}
	var lastMs int64
	fmt.Sscanf(string(lastData), "%d", &lastMs)
	return now.Sub(time.UnixMilli(lastMs)), nil
}

func distinctKeys(checks []capCheck) []string {
	var out []string
	seen := map[string]bool{}
	for _, c := range checks {
		if !seen[c.key] {
			seen[c.key] = true
			out = append(out, c.key)
		}
	}
	return out
}

func freqKey(userID, campaignID string) string {
	if campaignID == "" {
		return "freq:" + userID
	}
	return "freq:" + userID + ":" + campaignID
}

func (f *FrequencyCap[T]) HealthCheck(ctx context.Context) bool { return f.next.HealthCheck(ctx) }
func (f *FrequencyCap[T]) Close() error                         { return f.next.Close() }
