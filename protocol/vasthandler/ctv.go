// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vasthandler

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/luxfi/adxgateway/errs"
	"github.com/luxfi/adxgateway/orchestrator"
	"github.com/luxfi/adxgateway/resolver"
)

// AdPodSlot describes one position of a CTV ad break: its break type
// (pre-roll, mid-roll, post-roll) and the duration bounds an ad filling
// it is requested to satisfy. fetchPod does not check resolved ad
// durations against MinDuration/MaxDuration.
type AdPodSlot struct {
	ID          string  `json:"id,omitempty"`
	BreakType   string  `json:"break_type,omitempty"`
	MinDuration float64 `json:"min_duration,omitempty"`
	MaxDuration float64 `json:"max_duration,omitempty"`
}

// CTVRequest is the extensions["ctv"] payload shape: Connected-TV
// content metadata plus the ad-pod slots to fill. A request carrying
// one or more slots is resolved as an ad pod (one independent wrapper
// chain per slot, concurrently) instead of a single chain.
type CTVRequest struct {
	AppID         string      `json:"app_id,omitempty"`
	ContentGenre  string      `json:"content_genre,omitempty"`
	ContentRating string      `json:"content_rating,omitempty"`
	DNT           bool        `json:"dnt,omitempty"`
	LMT           bool        `json:"lmt,omitempty"`
	AdPodSlots    []AdPodSlot `json:"ad_pod_slots,omitempty"`
}

// PodSlotResult is the per-slot outcome echoed back on the response's
// extensions["ctv"], indexed by ad-pod position.
type PodSlotResult struct {
	Position        int     `json:"position"`
	Success         bool    `json:"success"`
	AdID            string  `json:"ad_id,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	MediaURI        string  `json:"media_uri,omitempty"`
}

// ctvRequest decodes req's extensions["ctv"] payload, reporting false
// when the extension is absent or doesn't match the CTVRequest shape.
func ctvRequest(req orchestrator.AdRequest) (CTVRequest, bool) {
	ext, ok := req.Extensions["ctv"]
	if !ok {
		return CTVRequest{}, false
	}
	data, err := json.Marshal(ext)
	if err != nil {
		return CTVRequest{}, false
	}
	var ctv CTVRequest
	if err := json.Unmarshal(data, &ctv); err != nil {
		return CTVRequest{}, false
	}
	return ctv, true
}

// fetchPod fills a CTV ad break: one chain resolution per slot, run
// concurrently under the resolver's shared total timeout, with the
// result list ordered by ad-pod position. The first successful slot
// supplies the response's top-level creative fields; every slot's
// outcome is reported under extensions["ctv"].
func (h *Handler) fetchPod(ctx context.Context, req orchestrator.AdRequest, ctv CTVRequest) (orchestrator.AdResponse, error) {
	sc := h.sessionContext(req)

	slots := make([]resolver.PodSlot, len(ctv.AdPodSlots))
	for i, slot := range ctv.AdPodSlots {
		slots[i] = resolver.PodSlot{
			Primary:   h.Primary,
			Fallbacks: h.Fallbacks,
			Session: sc.WithMetadata(map[string]any{
				"pod_position": i,
				"break_type":   slot.BreakType,
			}),
		}
	}

	results := resolver.ResolvePod(ctx, slots, h.Resolver)

	slotResults := make([]PodSlotResult, len(results))
	var first *resolver.Result
	resp := orchestrator.AdResponse{
		ResponseID:  uuid.New().String(),
		RequestID:   req.RequestID,
		TimestampMs: req.TimestampMs,
		Success:     true,
		Tracking:    map[string][]string{},
		Protocol:    "vast",
	}

	for i, res := range results {
		slotResults[i] = PodSlotResult{Position: i}
		if res == nil || !res.Success {
			continue
		}
		slotResults[i].Success = true
		if res.Final != nil {
			slotResults[i].AdID = res.Final.AdID
			slotResults[i].DurationSeconds = res.Final.DurationSeconds
		}
		if res.SelectedMedia != nil {
			slotResults[i].MediaURI = res.SelectedMedia.URL
		}

		resp.Impressions = append(resp.Impressions, res.AccumulatedImpressions...)
		for event, urls := range res.AccumulatedTracking {
			resp.Tracking[event] = append(resp.Tracking[event], urls...)
		}
		if first == nil {
			first = res
		}
	}

	if first == nil {
		return orchestrator.AdResponse{}, &errs.UpstreamError{Detail: "ctv: no ad-pod slot resolved to an inline document"}
	}

	resp.AdID = first.Final.AdID
	resp.Title = first.Final.AdTitle
	resp.Advertiser = first.Final.Advertiser
	for _, res := range results {
		if res == nil || !res.Success || res.SelectedMedia == nil {
			continue
		}
		mf := *res.SelectedMedia
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
	resp.Extensions = map[string]any{"ctv": slotResults}

	return resp, nil
}
