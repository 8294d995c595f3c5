// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/adxgateway/errs"
	"github.com/luxfi/adxgateway/session"
	"go.uber.org/zap"
)

// Config configures one Orchestrator instance.
type Config struct {
	// CacheEnabled turns on the fingerprint-keyed response cache backed
	// by Backend. Disabled by default.
	CacheEnabled bool
	CacheTTL     time.Duration
	Backend      session.Backend
	Log          *zap.Logger
}

// Orchestrator maps an AdRequest to a registered protocol Handler via a
// routing key, optionally consults a response cache, invokes the
// handler, and returns a generic AdResponse. It never populates
// creative fields on a failure response.
type Orchestrator struct {
	handlers map[string]Handler
	cfg      Config
	log      *zap.Logger
}

// New constructs an Orchestrator with no handlers registered.
func New(cfg Config) *Orchestrator {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{handlers: make(map[string]Handler), cfg: cfg, log: log}
}

// RegisterHandler registers handler under its own Name(). Registering
// two handlers under the same name is a programmer error, not a
// recoverable condition, and panics.
func (o *Orchestrator) RegisterHandler(h Handler) {
	if _, exists := o.handlers[h.Name()]; exists {
		panic(fmt.Sprintf("orchestrator: handler %q already registered", h.Name()))
	}
	o.handlers[h.Name()] = h
}

// dispatchKey returns req.Protocol if set, else the first extension key
// present in dispatchPriority order, else "".
func dispatchKey(req AdRequest) string {
	if req.Protocol != "" {
		return req.Protocol
	}
	for _, name := range dispatchPriority {
		if _, ok := req.Extensions[name]; ok {
			return name
		}
	}
	for name := range req.Extensions {
		return name // custom protocol, no declared priority
	}
	return ""
}

// Serve routes req to its handler, consulting the response cache first
// when enabled, and returns the resulting AdResponse. Errors never
// propagate to the caller: they are converted into a Success=false
// AdResponse carrying an ErrorCode from the errs taxonomy.
func (o *Orchestrator) Serve(ctx context.Context, req AdRequest) AdResponse {
	if req.RequestID == "" && req.PlacementID == "" {
		return o.fail(req, &errs.InvalidAdRequest{Reason: "request_id or placement required"})
	}

	key := dispatchKey(req)
	handler, ok := o.handlers[key]
	if !ok {
		return o.fail(req, errs.ErrNoHandler)
	}

	if !handler.ValidateRequest(req) {
		return o.fail(req, &errs.InvalidAdRequest{Reason: "failed handler validation"})
	}

	var fp string
	if o.cfg.CacheEnabled && o.cfg.Backend != nil {
		fp = fingerprint(req)
		if cached, hit := o.lookupCache(ctx, fp); hit {
			cached.Cached = true
			cached.RequestID = req.RequestID
			return cached
		}
	}

	resp, err := handler.Fetch(ctx, req)
	if err != nil {
		return o.fail(req, err)
	}
	resp.RequestID = req.RequestID
	resp.Success = true
	resp.Protocol = key

	if o.cfg.CacheEnabled && o.cfg.Backend != nil {
		o.storeCache(ctx, fp, resp)
	}

	return resp
}

// Track forwards event to the handler named by resp.Protocol, for
// callers reporting impression/click/completion signals observed after
// Serve returned.
func (o *Orchestrator) Track(ctx context.Context, event string, resp AdResponse) error {
	handler, ok := o.handlers[resp.Protocol]
	if !ok {
		return errs.ErrNoHandler
	}
	return handler.Track(ctx, event, resp)
}

func (o *Orchestrator) fail(req AdRequest, err error) AdResponse {
	o.log.Warn("serve failed", zap.String("request_id", req.RequestID), zap.Error(err))
	return AdResponse{
		RequestID:   req.RequestID,
		TimestampMs: req.TimestampMs,
		Success:     false,
		ErrorCode:   errorCode(err),
	}
}

func (o *Orchestrator) lookupCache(ctx context.Context, fp string) (AdResponse, bool) {
	data, found, err := o.cfg.Backend.Get(ctx, cacheKey(fp))
	if err != nil {
		o.log.Warn("cache lookup failed", zap.Error(err))
		return AdResponse{}, false
	}
	if !found {
		return AdResponse{}, false
	}
	var resp AdResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		o.log.Warn("cache entry decode failed", zap.Error(err))
		return AdResponse{}, false
	}
	return resp, true
}

func (o *Orchestrator) storeCache(ctx context.Context, fp string, resp AdResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		o.log.Warn("cache entry encode failed", zap.Error(err))
		return
	}
	if err := o.cfg.Backend.Set(ctx, cacheKey(fp), data, o.cfg.CacheTTL); err != nil {
		o.log.Warn("cache store failed", zap.Error(err))
	}
}

// errorCode maps err onto its taxonomy tag name for AdResponse.ErrorCode.
func errorCode(err error) string {
	switch {
	case errors.Is(err, errs.ErrNoHandler):
		return "NoHandler"
	case errors.Is(err, errs.ErrCanceled):
		return "Canceled"
	case errors.Is(err, errs.ErrCircuitOpen):
		return "CircuitOpen"
	case errors.Is(err, errs.ErrWrapperCycle):
		return "WrapperCycle"
	case errors.Is(err, errs.ErrWrapperDepth):
		return "WrapperDepthExceeded"
	case errors.Is(err, errs.ErrChainTimeout):
		return "ChainTimeout"
	case errors.Is(err, errs.ErrChainExhausted):
		return "ChainUpstreamExhausted"
	case errors.Is(err, errs.ErrVastVersion):
		return "VastVersionMismatch"
	case errors.Is(err, errs.ErrVastMalformed):
		return "VastMalformed"
	}

	var (
		invalid     *errs.InvalidAdRequest
		timeout     *errs.TransportTimeout
		unreachable *errs.TransportUnreachable
		protoErr    *errs.TransportProtocolError
		decodeErr   *errs.DecodeError
		capErr      *errs.FrequencyCapExceeded
		budgetErr   *errs.BudgetExceeded
		backendErr  *errs.StateBackendError
	)
	switch {
	case errors.As(err, &invalid):
		return "InvalidAdRequest"
	case errors.As(err, &timeout):
		return "TransportTimeout"
	case errors.As(err, &unreachable):
		return "TransportUnreachable"
	case errors.As(err, &protoErr):
		return "TransportProtocolError"
	case errors.As(err, &decodeErr):
		return "DecodeError"
	case errors.As(err, &capErr):
		return "FrequencyCapExceeded"
	case errors.As(err, &budgetErr):
		return "BudgetExceeded"
	case errors.As(err, &backendErr):
		return "StateBackendError"
	default:
		return "UpstreamError"
	}
}
