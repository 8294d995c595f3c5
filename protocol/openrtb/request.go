// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package openrtb implements the OpenRTB 2.x bid-request/bid-response
// side of the upstream gateway, built on the same generic
// upstream.Requester contract protocol/vast uses for its own wire
// format. Auction, multi-seat and CTV ad-pod assembly are out of
// scope: this package builds exactly one BidRequest per AdRequest,
// dispatches it to a single configured DSP endpoint, and maps the
// first seat bid back onto an AdResponse.
package openrtb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prebid/openrtb/v20/openrtb2"

	"github.com/luxfi/adxgateway/errs"
	"github.com/luxfi/adxgateway/upstream"
)

// DecodeBidResponse is the Decoder used when registering an OpenRTB
// Upstream: the response body is JSON-unmarshaled into a BidResponse.
func DecodeBidResponse(data []byte) (*openrtb2.BidResponse, error) {
	var resp openrtb2.BidResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Requester issues OpenRTB bid requests by JSON-encoding a
// *openrtb2.BidRequest directly as the transport payload, bypassing
// upstream.Upstream's param-encoding path (OpenRTB is request-body
// JSON, never query parameters).
type Requester struct {
	up upstream.Requester[*openrtb2.BidResponse]
}

// NewRequester wraps an Upstream (or middleware-wrapped Requester) of
// decoded BidResponses.
func NewRequester(up upstream.Requester[*openrtb2.BidResponse]) *Requester {
	return &Requester{up: up}
}

// Bid marshals req and dispatches it as the transport payload,
// returning the decoded BidResponse.
func (r *Requester) Bid(ctx context.Context, req *openrtb2.BidRequest, timeout time.Duration) (*openrtb2.BidResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &errs.UpstreamError{Detail: "encode bid request: " + err.Error()}
	}
	headers := upstream.Headers{"Content-Type": "application/json"}
	return r.up.Request(ctx, "", nil, headers, body, timeout)
}

func (r *Requester) HealthCheck(ctx context.Context) bool { return r.up.HealthCheck(ctx) }
func (r *Requester) Close() error                         { return r.up.Close() }
