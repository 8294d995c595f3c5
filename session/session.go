// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package session defines the immutable per-request SessionContext, the
// mutable per-user/per-session SessionState, and the StateBackend
// abstraction both are persisted through.
package session

import (
	"github.com/shopspring/decimal"
)

// Context is constructed once per request and flows, unmodified, through
// every layer. Macro substitution and frequency-cap middleware both
// consult it. It is immutable: the only way to change a field is
// WithMetadata, which returns a new value.
type Context struct {
	SessionID    string
	RequestID    string
	TimestampMs  int64
	Correlator   string
	Cachebusting string
	UserID       string
	DeviceID     string
	IPAddress    string
	UserAgent    string
	Cookies      map[string]string
	Metadata     map[string]any
}

// WithMetadata returns a new Context equal to c except that kv is merged
// into Metadata. c itself is never mutated.
func (c Context) WithMetadata(kv map[string]any) Context {
	merged := make(map[string]any, len(c.Metadata)+len(kv))
	for k, v := range c.Metadata {
		merged[k] = v
	}
	for k, v := range kv {
		merged[k] = v
	}
	c.Metadata = merged

	cookies := make(map[string]string, len(c.Cookies))
	for k, v := range c.Cookies {
		cookies[k] = v
	}
	c.Cookies = cookies

	return c
}

// State is the mutable, per-(session_id and/or user_id) record held by a
// StateBackend. Counters are monotonic within a window; window reset is
// the FrequencyCap middleware's policy, not State's.
type State struct {
	RequestCount     int              `json:"request_count"`
	ImpressionCount  int              `json:"impression_count"`
	HourlyCount      int              `json:"hourly_count"`
	DailyCount       int              `json:"daily_count"`
	WeeklyCount      int              `json:"weekly_count"`
	LastImpressionMs *int64           `json:"last_impression_ms,omitempty"`
	AdHistory        []string         `json:"ad_history,omitempty"`
	BudgetSpent      *decimal.Decimal `json:"budget_spent,omitempty"`
	Extensions       map[string]any   `json:"extensions,omitempty"`
}

// Budget is a per-campaign spend ceiling tracked with decimal precision.
// Invariant: Spent <= Total at every observable point.
type Budget struct {
	CampaignID string
	Total      decimal.Decimal
	Spent      decimal.Decimal
	Currency   string
}

// Remaining returns Total - Spent.
func (b Budget) Remaining() decimal.Decimal {
	return b.Total.Sub(b.Spent)
}
