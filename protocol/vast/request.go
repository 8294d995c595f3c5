// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vast

import (
	"context"
	"time"

	"github.com/luxfi/adxgateway/session"
	"github.com/luxfi/adxgateway/upstream"
)

// DecodeRaw is the Decoder used when registering a VAST Upstream: the
// response body is handed back as-is, parsing is a separate, explicit
// step (see Parse) so callers can inspect raw bytes on failure.
func DecodeRaw(data []byte) (string, error) { return string(data), nil }

// Requester issues VAST ad requests, applying macro substitution to
// string parameter values before dispatch.
type Requester struct {
	up          upstream.Requester[string]
	applyMacros bool
	extra       MacroContext
}

// NewRequester wraps an Upstream (or middleware-wrapped Requester) of
// raw VAST XML strings. When applyMacros is true, every string-valued
// parameter is passed through Substitute before the request is sent.
func NewRequester(up upstream.Requester[string], applyMacros bool, extra MacroContext) *Requester {
	return &Requester{up: up, applyMacros: applyMacros, extra: extra}
}

// Request dispatches params against the wrapped upstream, returning
// the raw (unparsed) VAST XML response body. A non-empty endpoint
// overrides the wrapped Upstream's own configured endpoint for this
// call only, so a wrapper-chain hop can target the URL it was
// redirected to.
func (r *Requester) Request(ctx context.Context, sc session.Context, endpoint string, params upstream.Params, headers upstream.Headers, timeout time.Duration) (string, error) {
	effective := params
	if r.applyMacros {
		effective = make(upstream.Params, len(params))
		for k, v := range params {
			if s, ok := v.(string); ok {
				effective[k] = Substitute(s, sc, r.extra)
				continue
			}
			effective[k] = v
		}
	}
	return r.up.Request(ctx, endpoint, effective, headers, nil, timeout)
}

func (r *Requester) HealthCheck(ctx context.Context) bool { return r.up.HealthCheck(ctx) }
func (r *Requester) Close() error                         { return r.up.Close() }
