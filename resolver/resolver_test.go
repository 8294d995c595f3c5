// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/luxfi/adxgateway/errs"
	"github.com/luxfi/adxgateway/protocol/vast"
	"github.com/luxfi/adxgateway/session"
	"github.com/stretchr/testify/require"
)

const inlineXML = `<VAST version="4.2"><Ad id="A1"><InLine><AdSystem>S</AdSystem><AdTitle>T</AdTitle><Impression>https://t/imp2</Impression><Creatives><Creative><Linear><Duration>00:00:30</Duration><MediaFiles><MediaFile delivery="progressive" type="video/mp4" width="1280" height="720" bitrate="1500">https://cdn/v.mp4</MediaFile></MediaFiles></Linear></Creative></Creatives></InLine></Ad></VAST>`

func inlineXMLWithImpression(imp string) string {
	return `<VAST version="4.2"><Ad id="A1"><InLine><AdSystem>S</AdSystem><AdTitle>T</AdTitle><Impression>` + imp + `</Impression><Creatives><Creative><Linear><Duration>00:00:30</Duration><MediaFiles><MediaFile delivery="progressive" type="video/mp4" width="1280" height="720" bitrate="1500">https://cdn/v.mp4</MediaFile></MediaFiles></Linear></Creative></Creatives></InLine></Ad></VAST>`
}

func wrapperXML(tagURI, impression string) string {
	return `<VAST version="4.2"><Ad id="A0"><Wrapper><AdSystem>S</AdSystem><VASTAdTagURI>` + tagURI + `</VASTAdTagURI><Impression>` + impression + `</Impression></Wrapper></Ad></VAST>`
}

// scriptedUpstream returns one canned (body, error) per call, cycling
// through steps in order; calls past the end repeat the last step.
type scriptedUpstream struct {
	name     string
	endpoint string
	steps    []step
	calls    int
}

type step struct {
	body string
	err  error
}

func (u *scriptedUpstream) Request(_ context.Context, _ session.Context, _ string, _ time.Duration) (string, error) {
	i := u.calls
	if i >= len(u.steps) {
		i = len(u.steps) - 1
	}
	u.calls++
	return u.steps[i].body, u.steps[i].err
}

func (u *scriptedUpstream) Name() string     { return u.name }
func (u *scriptedUpstream) Endpoint() string { return u.endpoint }

func TestResolve_S1_InlineAtDepthZero(t *testing.T) {
	primary := &scriptedUpstream{name: "primary", endpoint: "https://primary", steps: []step{{body: inlineXML}}}

	res := Resolve(context.Background(), primary, nil, session.Context{}, Config{
		MaxDepth:            5,
		SelectionStrategy:   vast.HighestBitrate,
		CollectTrackingURLs: true,
	})

	require.True(t, res.Success)
	require.Len(t, res.Chain, 1)
	require.Equal(t, []string{"https://t/imp2"}, res.AccumulatedImpressions)
	require.NotNil(t, res.SelectedMedia)
	require.Equal(t, "https://cdn/v.mp4", res.SelectedMedia.URL)
	require.Equal(t, "A1", res.Final.AdID)
	require.False(t, res.UsedFallback)
}

func TestResolve_S2_WrapperThenInline(t *testing.T) {
	primary := &scriptedUpstream{
		name:     "primary",
		endpoint: "https://primary",
		steps: []step{
			{body: wrapperXML("https://ads/next?cb=[CACHEBUSTING]", "https://t/imp1")},
			{body: inlineXMLWithImpression("https://t/imp2")},
		},
	}

	res := Resolve(context.Background(), primary, nil, session.Context{Cachebusting: "xyz"}, Config{
		MaxDepth:            5,
		CollectTrackingURLs: true,
	})

	require.True(t, res.Success)
	require.Len(t, res.Chain, 2)
	require.Equal(t, []string{"https://t/imp1", "https://t/imp2"}, res.AccumulatedImpressions)
	require.Equal(t, "https://cdn/v.mp4", res.SelectedMedia.URL)
	require.Contains(t, res.Chain[1].URL, "cb=xyz")
	require.NotContains(t, res.Chain[1].URL, "[CACHEBUSTING]")
	require.Equal(t, 0, res.Chain[0].Depth)
	require.Equal(t, 1, res.Chain[1].Depth)
	require.True(t, res.Chain[0].OK)
	require.True(t, res.Chain[1].OK)
	require.NoError(t, res.Chain[0].Err)
}

func TestResolve_S3_WrapperCycle(t *testing.T) {
	primary := &scriptedUpstream{
		name:     "primary",
		endpoint: "https://primary",
		steps:    []step{{body: wrapperXML("https://primary", "https://t/imp1")}},
	}

	res := Resolve(context.Background(), primary, nil, session.Context{}, Config{MaxDepth: 5})

	require.False(t, res.Success)
	require.ErrorIs(t, res.Err, errs.ErrWrapperCycle)
	require.Len(t, res.Chain, 1)
}

func TestResolve_S4_DepthExceeded(t *testing.T) {
	primary := &scriptedUpstream{
		name:     "primary",
		endpoint: "https://primary",
		steps: []step{
			{body: wrapperXML("https://ads/w1", "")},
			{body: wrapperXML("https://ads/w2", "")},
			{body: wrapperXML("https://ads/w3", "")},
		},
	}

	res := Resolve(context.Background(), primary, nil, session.Context{}, Config{MaxDepth: 2})

	require.False(t, res.Success)
	require.ErrorIs(t, res.Err, errs.ErrWrapperDepth)
	require.Len(t, res.Chain, 2)
}

func TestResolve_S5_FallbackOnPrimaryFailure(t *testing.T) {
	primary := &scriptedUpstream{
		name:     "primary",
		endpoint: "https://primary",
		steps:    []step{{err: &errs.TransportUnreachable{Endpoint: "https://primary"}}},
	}
	secondary := &scriptedUpstream{
		name:     "secondary",
		endpoint: "https://secondary",
		steps:    []step{{body: inlineXML}},
	}

	res := Resolve(context.Background(), primary, []Upstream{secondary}, session.Context{}, Config{
		MaxDepth:        5,
		EnableFallbacks: true,
	})

	require.True(t, res.Success)
	require.True(t, res.UsedFallback)
	require.Len(t, res.Chain, 1)
	require.Equal(t, "secondary", res.Chain[0].UpstreamName)
}

func TestResolve_FallbacksTriedInOrder(t *testing.T) {
	primary := &scriptedUpstream{
		name:     "primary",
		endpoint: "https://primary",
		steps:    []step{{err: &errs.TransportUnreachable{Endpoint: "https://primary"}}},
	}
	first := &scriptedUpstream{
		name:     "fallback-1",
		endpoint: "https://fb1",
		steps:    []step{{err: &errs.TransportUnreachable{Endpoint: "https://fb1"}}},
	}
	second := &scriptedUpstream{
		name:     "fallback-2",
		endpoint: "https://fb2",
		steps:    []step{{body: inlineXML}},
	}

	res := Resolve(context.Background(), primary, []Upstream{first, second}, session.Context{}, Config{
		MaxDepth:        5,
		EnableFallbacks: true,
	})

	require.True(t, res.Success)
	require.True(t, res.UsedFallback)
	require.Equal(t, 1, primary.calls)
	require.Equal(t, 1, first.calls, "fallback #1 must be tried before fallback #2")
	require.Equal(t, 1, second.calls)
	require.Equal(t, "fallback-2", res.Chain[0].UpstreamName)
}

func TestResolve_AllUpstreamsExhausted(t *testing.T) {
	primary := &scriptedUpstream{
		name:     "primary",
		endpoint: "https://primary",
		steps:    []step{{err: &errs.TransportUnreachable{Endpoint: "https://primary"}}},
	}
	fallback := &scriptedUpstream{
		name:     "fallback-1",
		endpoint: "https://fb1",
		steps:    []step{{err: &errs.TransportUnreachable{Endpoint: "https://fb1"}}},
	}

	res := Resolve(context.Background(), primary, []Upstream{fallback}, session.Context{}, Config{
		MaxDepth:        5,
		EnableFallbacks: true,
	})

	require.False(t, res.Success)
	require.ErrorIs(t, res.Err, errs.ErrChainExhausted)
	require.Len(t, res.Chain, 1)
	require.False(t, res.Chain[0].OK)
	require.Error(t, res.Chain[0].Err)
	require.Equal(t, 0, res.Chain[0].Depth)
}

func TestResolve_MaxDepthOneWrapperFirstIsTerminal(t *testing.T) {
	primary := &scriptedUpstream{
		name:     "primary",
		endpoint: "https://primary",
		steps:    []step{{body: wrapperXML("https://ads/next", "")}},
	}

	res := Resolve(context.Background(), primary, nil, session.Context{}, Config{MaxDepth: 1})

	require.False(t, res.Success)
	require.ErrorIs(t, res.Err, errs.ErrWrapperDepth)
}

func TestResolve_EmptyMediaFilesNeverSelectsAndNeverFails(t *testing.T) {
	emptyMediaInline := `<VAST version="4.2"><Ad id="A1"><InLine><AdSystem>S</AdSystem><AdTitle>T</AdTitle><Impression>https://t/imp</Impression><Creatives><Creative><Linear><Duration>00:00:30</Duration><MediaFiles></MediaFiles></Linear></Creative></Creatives></InLine></Ad></VAST>`
	primary := &scriptedUpstream{name: "primary", endpoint: "https://primary", steps: []step{{body: emptyMediaInline}}}

	res := Resolve(context.Background(), primary, nil, session.Context{}, Config{MaxDepth: 5})

	require.True(t, res.Success)
	require.Nil(t, res.SelectedMedia)
}
