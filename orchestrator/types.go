// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package orchestrator implements the thin entry point that routes a
// protocol-agnostic AdRequest to a registered protocol Handler and
// applies a response cache, producing a generic AdResponse. It is
// deliberately small: protocol logic lives in the handlers it
// dispatches to, not here.
package orchestrator

import "context"

// MediaFile is the protocol-agnostic playable asset shape exposed on an
// AdResponse, independent of any single wire format's representation
// (see protocol/vast.MediaFile for the VAST-specific counterpart a VAST
// handler maps into this shape).
type MediaFile struct {
	URI          string
	MimeType     string
	Delivery     string // "progressive" | "streaming"
	Width        int
	Height       int
	BitrateKbps  int
	Codec        string
	APIFramework string
	Mezzanine    bool
}

// AdRequest is the protocol-agnostic, sparse request record callers
// construct once per ad call. It is immutable once passed to Serve.
type AdRequest struct {
	RequestID   string
	TimestampMs int64

	UserID    string
	DeviceID  string
	IPAddress string
	UserAgent string

	// Latitude/Longitude are optional geo-targeting hints; both zero
	// means no geo signal was supplied.
	Latitude  float64
	Longitude float64

	Width  int
	Height int

	PlacementID string
	ContentID   string

	COPPA       bool
	GDPR        bool
	GDPRConsent string
	USPrivacy   string

	// Protocol, when set, names the dispatch key explicitly
	// ("vast", "openrtb", "daast", or a custom-registered name) and
	// skips extension-key inference.
	Protocol string

	// Extensions carries protocol-specific parameters keyed by
	// protocol name, e.g. Extensions["vast"]["zoneid"]. Serve infers
	// the dispatch key from the first recognized key present here,
	// in priority order vast > openrtb > daast, when Protocol is
	// unset.
	Extensions map[string]map[string]any
}

// AdResponse is the protocol-agnostic, immutable result of one Serve
// call. On failure, Success is false, ErrorCode names a taxonomy tag
// from the errs package, and no creative fields are populated.
type AdResponse struct {
	ResponseID  string
	RequestID   string
	TimestampMs int64

	Success   bool
	ErrorCode string
	Cached    bool

	AdID         string
	Title        string
	Advertiser   string
	CampaignID   string
	CreativeID   string
	Impressions  []string
	Tracking     map[string][]string
	MediaFiles   []MediaFile
	Price        string // decimal.Decimal.String(), kept opaque to avoid importing decimal here
	Currency     string
	Protocol     string
	Extensions   map[string]any
}

// Handler is the contract every protocol implementation satisfies.
// Dispatch names must be unique within one Orchestrator.
type Handler interface {
	Name() string
	Fetch(ctx context.Context, req AdRequest) (AdResponse, error)
	Track(ctx context.Context, event string, resp AdResponse) error
	ValidateRequest(req AdRequest) bool
}

// dispatchPriority is the declared priority order extension-key
// inference walks when AdRequest.Protocol is unset: VAST > OpenRTB >
// DAAST > custom.
var dispatchPriority = []string{"vast", "openrtb", "daast"}
