// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vasthandler adapts the Chain Resolver to the orchestrator's
// Handler contract for protocol="vast". It lives outside protocol/vast
// itself because resolver already imports protocol/vast for VAST
// document types; a handler living inside protocol/vast that also
// needed the resolver would be an import cycle.
package vasthandler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/luxfi/adxgateway/errs"
	"github.com/luxfi/adxgateway/orchestrator"
	"github.com/luxfi/adxgateway/resolver"
	"github.com/luxfi/adxgateway/session"
)

// trackFireGrace bounds a Track-triggered pixel GET, mirroring the
// resolver's own bounded tracking-pixel lifetime.
const trackFireGrace = 5 * time.Second

// SessionFunc derives the per-request SessionContext (macros,
// cookies, correlator) from an AdRequest. Callers usually close over
// cookie/correlator state the orchestrator layer doesn't see.
type SessionFunc func(req orchestrator.AdRequest) session.Context

// Handler dispatches AdRequests to a VAST wrapper-chain resolution and
// maps the resulting ResolutionResult back into an AdResponse.
type Handler struct {
	Primary   resolver.Upstream
	Fallbacks []resolver.Upstream
	Resolver  resolver.Config
	SessionFn SessionFunc
}

// New constructs a Handler. sessionFn may be nil, in which case a
// minimal SessionContext is derived directly from the AdRequest's own
// fields.
func New(primary resolver.Upstream, fallbacks []resolver.Upstream, cfg resolver.Config, sessionFn SessionFunc) *Handler {
	return &Handler{Primary: primary, Fallbacks: fallbacks, Resolver: cfg, SessionFn: sessionFn}
}

func (h *Handler) Name() string { return "vast" }

// ValidateRequest requires a request_id or placement, matching the
// orchestrator's own boundary check; handlers may tighten this further.
func (h *Handler) ValidateRequest(req orchestrator.AdRequest) bool {
	return req.RequestID != "" || req.PlacementID != ""
}

// Fetch resolves req's wrapper chain to an Inline document and maps it
// to an AdResponse. A request whose extensions["ctv"] payload names
// ad-pod slots is resolved as a pod instead (see fetchPod). A terminal
// resolver failure (ResolutionResult with Success=false) is surfaced
// as the resolver's own error; the orchestrator converts it into a
// Success=false AdResponse at its boundary, never populating creative
// fields.
func (h *Handler) Fetch(ctx context.Context, req orchestrator.AdRequest) (orchestrator.AdResponse, error) {
	if ctv, ok := ctvRequest(req); ok && len(ctv.AdPodSlots) > 0 {
		return h.fetchPod(ctx, req, ctv)
	}

	sc := h.sessionContext(req)
	res := resolver.Resolve(ctx, h.Primary, h.Fallbacks, sc, h.Resolver)
	if !res.Success {
		if res.Err != nil {
			return orchestrator.AdResponse{}, res.Err
		}
		return orchestrator.AdResponse{}, &errs.UpstreamError{Detail: "vast resolution did not reach an inline document"}
	}
	return h.toAdResponse(req, res), nil
}

// Track fires a tracking pixel for event using the URLs already
// accumulated on resp during resolution (the resolver itself fires
// impression/error pixels inline; Track exists for events the
// application layer observes later, e.g. a player-reported quartile).
func (h *Handler) Track(ctx context.Context, event string, resp orchestrator.AdResponse) error {
	urls, ok := resp.Tracking[event]
	if !ok || len(urls) == 0 {
		return nil
	}
	for _, u := range urls {
		go fireAndForget(u)
	}
	return nil
}

func (h *Handler) sessionContext(req orchestrator.AdRequest) session.Context {
	if h.SessionFn != nil {
		return h.SessionFn(req)
	}
	return session.Context{
		RequestID:    req.RequestID,
		TimestampMs:  req.TimestampMs,
		UserID:       req.UserID,
		DeviceID:     req.DeviceID,
		IPAddress:    req.IPAddress,
		UserAgent:    req.UserAgent,
		Correlator:   req.RequestID,
		Cachebusting: strconv.FormatInt(req.TimestampMs, 10),
	}
}

func (h *Handler) toAdResponse(req orchestrator.AdRequest, res *resolver.Result) orchestrator.AdResponse {
	resp := orchestrator.AdResponse{
		ResponseID:  uuid.New().String(),
		RequestID:   req.RequestID,
		TimestampMs: req.TimestampMs,
		Success:     true,
		Impressions: res.AccumulatedImpressions,
		Tracking:    res.AccumulatedTracking,
		Protocol:    "vast",
	}

	if res.Final != nil {
		resp.AdID = res.Final.AdID
		resp.Title = res.Final.AdTitle
		resp.Advertiser = res.Final.Advertiser
		for _, mf := range res.Final.MediaFiles {
			resp.MediaFiles = append(resp.MediaFiles, orchestrator.MediaFile{
				URI:          mf.URL,
				MimeType:     mf.Type,
				Delivery:     mf.Delivery,
				Width:        mf.Width,
				Height:       mf.Height,
				BitrateKbps:  mf.Bitrate,
				Codec:        mf.Codec,
				APIFramework: mf.APIFramework,
				Mezzanine:    mf.Mezzanine,
			})
		}
	}
	return resp
}

func fireAndForget(u string) {
	ctx, cancel := context.WithTimeout(context.Background(), trackFireGrace)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return
	}
	_ = resp.Body.Close()
}
