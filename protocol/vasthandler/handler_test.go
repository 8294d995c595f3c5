// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vasthandler

import (
	"context"
	"testing"
	"time"

	"github.com/luxfi/adxgateway/orchestrator"
	"github.com/luxfi/adxgateway/resolver"
	"github.com/luxfi/adxgateway/session"
	"github.com/stretchr/testify/require"
)

const inlineXML = `<VAST version="4.2"><Ad id="A1"><InLine><AdSystem>S</AdSystem><AdTitle>T</AdTitle><Impression>https://t/imp</Impression><Creatives><Creative><Linear><Duration>00:00:30</Duration><MediaFiles><MediaFile delivery="progressive" type="video/mp4" width="1280" height="720" bitrate="1500">https://cdn/v.mp4</MediaFile></MediaFiles></Linear></Creative></Creatives></InLine></Ad></VAST>`

type fixedUpstream struct {
	body string
	err  error
}

func (u *fixedUpstream) Request(context.Context, session.Context, string, time.Duration) (string, error) {
	return u.body, u.err
}
func (u *fixedUpstream) Name() string     { return "primary" }
func (u *fixedUpstream) Endpoint() string { return "https://primary" }

func TestHandler_FetchMapsInlineToAdResponse(t *testing.T) {
	h := New(&fixedUpstream{body: inlineXML}, nil, resolver.Config{MaxDepth: 5, CollectTrackingURLs: true}, nil)

	require.True(t, h.ValidateRequest(orchestrator.AdRequest{RequestID: "r1"}))

	resp, err := h.Fetch(context.Background(), orchestrator.AdRequest{RequestID: "r1", TimestampMs: 1000})
	require.NoError(t, err)
	require.Equal(t, "A1", resp.AdID)
	require.Equal(t, []string{"https://t/imp"}, resp.Impressions)
	require.Len(t, resp.MediaFiles, 1)
	require.Equal(t, "https://cdn/v.mp4", resp.MediaFiles[0].URI)
}

func TestHandler_FetchPropagatesTerminalResolverError(t *testing.T) {
	h := New(&fixedUpstream{body: `<VAST version="4.2"><Ad id="A0"><Wrapper><VASTAdTagURI>https://primary</VASTAdTagURI></Wrapper></Ad></VAST>`}, nil, resolver.Config{MaxDepth: 5}, nil)

	_, err := h.Fetch(context.Background(), orchestrator.AdRequest{RequestID: "r1"})
	require.Error(t, err)
}

func TestHandler_FetchCTVAdPodFillsEverySlot(t *testing.T) {
	h := New(&fixedUpstream{body: inlineXML}, nil, resolver.Config{MaxDepth: 5, CollectTrackingURLs: true}, nil)

	req := orchestrator.AdRequest{
		RequestID:   "r1",
		TimestampMs: 1000,
		Extensions: map[string]map[string]any{
			"ctv": {
				"app_id": "app-1",
				"ad_pod_slots": []any{
					map[string]any{"break_type": "pre-roll", "max_duration": 30.0},
					map[string]any{"break_type": "mid-roll", "max_duration": 15.0},
				},
			},
		},
	}

	resp, err := h.Fetch(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "A1", resp.AdID)
	require.Len(t, resp.MediaFiles, 2)

	slots, ok := resp.Extensions["ctv"].([]PodSlotResult)
	require.True(t, ok)
	require.Len(t, slots, 2)
	for i, slot := range slots {
		require.Equal(t, i, slot.Position)
		require.True(t, slot.Success)
		require.Equal(t, "A1", slot.AdID)
		require.Equal(t, "https://cdn/v.mp4", slot.MediaURI)
	}
}

func TestHandler_FetchCTVWithoutSlotsResolvesSingleChain(t *testing.T) {
	h := New(&fixedUpstream{body: inlineXML}, nil, resolver.Config{MaxDepth: 5}, nil)

	req := orchestrator.AdRequest{
		RequestID:  "r1",
		Extensions: map[string]map[string]any{"ctv": {"app_id": "app-1"}},
	}

	resp, err := h.Fetch(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "A1", resp.AdID)
	require.Nil(t, resp.Extensions["ctv"])
}

func TestHandler_ValidateRequestRequiresIdentifier(t *testing.T) {
	h := New(&fixedUpstream{}, nil, resolver.Config{}, nil)
	require.False(t, h.ValidateRequest(orchestrator.AdRequest{}))
	require.True(t, h.ValidateRequest(orchestrator.AdRequest{PlacementID: "p1"}))
}
