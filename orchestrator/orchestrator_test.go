// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/luxfi/adxgateway/errs"
	"github.com/luxfi/adxgateway/session"
	"github.com/stretchr/testify/require"
)

type stubHandler struct {
	name    string
	calls   int
	resp    AdResponse
	err     error
	valid   bool
	tracked []string
}

func (s *stubHandler) Name() string { return s.name }

func (s *stubHandler) Fetch(_ context.Context, req AdRequest) (AdResponse, error) {
	s.calls++
	if s.err != nil {
		return AdResponse{}, s.err
	}
	resp := s.resp
	resp.RequestID = req.RequestID
	return resp, nil
}

func (s *stubHandler) Track(_ context.Context, event string, _ AdResponse) error {
	s.tracked = append(s.tracked, event)
	return nil
}

func (s *stubHandler) ValidateRequest(AdRequest) bool { return s.valid }

func TestServe_DispatchesByExtensionKeyPriority(t *testing.T) {
	vastH := &stubHandler{name: "vast", valid: true, resp: AdResponse{AdID: "vast-ad"}}
	rtbH := &stubHandler{name: "openrtb", valid: true, resp: AdResponse{AdID: "rtb-ad"}}

	o := New(Config{})
	o.RegisterHandler(vastH)
	o.RegisterHandler(rtbH)

	req := AdRequest{
		RequestID:  "r1",
		Extensions: map[string]map[string]any{"openrtb": {}, "vast": {}},
	}

	resp := o.Serve(context.Background(), req)

	require.True(t, resp.Success)
	require.Equal(t, "vast-ad", resp.AdID)
	require.Equal(t, 1, vastH.calls)
	require.Equal(t, 0, rtbH.calls)
}

func TestServe_NoHandlerRegistered(t *testing.T) {
	o := New(Config{})
	resp := o.Serve(context.Background(), AdRequest{RequestID: "r1", Extensions: map[string]map[string]any{"vast": {}}})

	require.False(t, resp.Success)
	require.Equal(t, "NoHandler", resp.ErrorCode)
	require.Empty(t, resp.AdID)
}

func TestServe_CacheHitNeverCallsHandler(t *testing.T) {
	h := &stubHandler{name: "vast", valid: true, resp: AdResponse{AdID: "cached-ad"}}
	backend := session.NewMemBackend()

	o := New(Config{CacheEnabled: true, CacheTTL: time.Minute, Backend: backend})
	o.RegisterHandler(h)

	req := AdRequest{RequestID: "r1", PlacementID: "p1", Extensions: map[string]map[string]any{"vast": {}}}

	first := o.Serve(context.Background(), req)
	require.True(t, first.Success)
	require.False(t, first.Cached)
	require.Equal(t, 1, h.calls)

	second := o.Serve(context.Background(), AdRequest{RequestID: "r2", PlacementID: "p1", Extensions: map[string]map[string]any{"vast": {}}})
	require.True(t, second.Success)
	require.True(t, second.Cached)
	require.Equal(t, 1, h.calls, "cache hit must not invoke the handler again")
}

func TestServe_InvalidRequestNeverPopulatesCreativeFields(t *testing.T) {
	h := &stubHandler{name: "vast", valid: false}
	o := New(Config{})
	o.RegisterHandler(h)

	resp := o.Serve(context.Background(), AdRequest{RequestID: "r1", Extensions: map[string]map[string]any{"vast": {}}})

	require.False(t, resp.Success)
	require.Equal(t, "InvalidAdRequest", resp.ErrorCode)
	require.Empty(t, resp.AdID)
	require.Empty(t, resp.MediaFiles)
	require.Equal(t, 0, h.calls)
}

func TestServe_ErrorCodeReflectsTaxonomyTag(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{&errs.FrequencyCapExceeded{Which: "hourly"}, "FrequencyCapExceeded"},
		{&errs.BudgetExceeded{CampaignID: "c1"}, "BudgetExceeded"},
		{&errs.TransportTimeout{Endpoint: "x"}, "TransportTimeout"},
		{errs.ErrWrapperCycle, "WrapperCycle"},
		{errs.ErrCircuitOpen, "CircuitOpen"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			h := &stubHandler{name: "vast", valid: true, err: tt.err}
			o := New(Config{})
			o.RegisterHandler(h)

			resp := o.Serve(context.Background(), AdRequest{RequestID: "r1", Extensions: map[string]map[string]any{"vast": {}}})
			require.False(t, resp.Success)
			require.Equal(t, tt.code, resp.ErrorCode)
		})
	}
}

func TestRegisterHandler_DuplicateNamePanics(t *testing.T) {
	o := New(Config{})
	o.RegisterHandler(&stubHandler{name: "vast"})

	require.Panics(t, func() {
		o.RegisterHandler(&stubHandler{name: "vast"})
	})
}

func TestTrack_ForwardsToResponseProtocolHandler(t *testing.T) {
	h := &stubHandler{name: "vast"}
	o := New(Config{})
	o.RegisterHandler(h)

	err := o.Track(context.Background(), "impression", AdResponse{Protocol: "vast"})
	require.NoError(t, err)
	require.Equal(t, []string{"impression"}, h.tracked)
}
