// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package openrtb

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/shopspring/decimal"

	"github.com/luxfi/adxgateway/errs"
	"github.com/luxfi/adxgateway/orchestrator"
)

// DefaultTimeout bounds a single DSP round trip when the caller does
// not override it via Handler.Timeout.
const DefaultTimeout = 300 * time.Millisecond

// winFireGrace bounds a Track-triggered win-notice GET.
const winFireGrace = 5 * time.Second

// Handler dispatches AdRequests as OpenRTB BidRequests to a single DSP
// endpoint and maps the winning seat bid back onto an AdResponse. It
// implements no auction logic: exactly one seat's first bid is taken,
// matching this handler's single-DSP scope.
type Handler struct {
	Requester *Requester
	Timeout   time.Duration
}

// New constructs a Handler dispatching through req.
func New(req *Requester) *Handler {
	return &Handler{Requester: req, Timeout: DefaultTimeout}
}

func (h *Handler) Name() string { return "openrtb" }

// ValidateRequest requires a request_id and placement, OpenRTB's
// nearest equivalent of an ad-unit/tag identifier.
func (h *Handler) ValidateRequest(req orchestrator.AdRequest) bool {
	return req.RequestID != "" && req.PlacementID != ""
}

// Fetch builds a BidRequest from req, dispatches it, and maps the
// first non-empty seat's first bid to an AdResponse. A BidResponse
// with no bids (no-bid) surfaces as an UpstreamError, which the
// orchestrator converts into a Success=false AdResponse at its
// boundary like any other fetch failure.
func (h *Handler) Fetch(ctx context.Context, req orchestrator.AdRequest) (orchestrator.AdResponse, error) {
	bidReq := BuildBidRequest(req)

	bidResp, err := h.Requester.Bid(ctx, bidReq, h.Timeout)
	if err != nil {
		return orchestrator.AdResponse{}, err
	}

	bid, seat, ok := firstBid(bidResp)
	if !ok {
		return orchestrator.AdResponse{}, &errs.UpstreamError{Detail: "openrtb: no-bid response"}
	}

	return toAdResponse(req, bid, seat), nil
}

// Track fires the bid's win notice (nurl) for event "win"; other
// events are no-ops at this layer since OpenRTB tracking lives in the
// bid's adm/burl payload, not in Extensions.
func (h *Handler) Track(ctx context.Context, event string, resp orchestrator.AdResponse) error {
	if event != "win" {
		return nil
	}
	urls, ok := resp.Tracking["win"]
	if !ok {
		return nil
	}
	for _, u := range urls {
		go fireWin(u)
	}
	return nil
}

func firstBid(resp *openrtb2.BidResponse) (openrtb2.Bid, string, bool) {
	for _, seatBid := range resp.SeatBid {
		if len(seatBid.Bid) == 0 {
			continue
		}
		return seatBid.Bid[0], seatBid.Seat, true
	}
	return openrtb2.Bid{}, "", false
}

func toAdResponse(req orchestrator.AdRequest, bid openrtb2.Bid, seat string) orchestrator.AdResponse {
	resp := orchestrator.AdResponse{
		ResponseID:  uuid.New().String(),
		RequestID:   req.RequestID,
		TimestampMs: req.TimestampMs,
		Success:     true,
		AdID:        bid.ID,
		CampaignID:  bid.CID,
		CreativeID:  bid.CrID,
		Price:       decimal.NewFromFloat(bid.Price).String(),
		Currency:    "USD",
		Protocol:    "openrtb",
		Tracking:    map[string][]string{},
	}
	if len(bid.ADomain) > 0 {
		resp.Advertiser = bid.ADomain[0]
	}
	if seat != "" {
		resp.Extensions = map[string]any{"seat": seat}
	}
	if bid.NURL != "" {
		resp.Tracking["win"] = []string{bid.NURL}
		resp.Impressions = []string{bid.NURL}
	}
	return resp
}

func fireWin(u string) {
	ctx, cancel := context.WithTimeout(context.Background(), winFireGrace)
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
