// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package openrtb

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/adxgateway/orchestrator"
	"github.com/luxfi/adxgateway/upstream"
)

type fixedRequester struct {
	resp *openrtb2.BidResponse
	err  error
}

func (f *fixedRequester) Request(context.Context, string, upstream.Params, upstream.Headers, []byte, time.Duration) (*openrtb2.BidResponse, error) {
	return f.resp, f.err
}
func (f *fixedRequester) HealthCheck(context.Context) bool { return f.err == nil }
func (f *fixedRequester) Close() error                     { return nil }

func TestHandler_FetchMapsWinningBid(t *testing.T) {
	h := New(NewRequester(&fixedRequester{resp: &openrtb2.BidResponse{
		SeatBid: []openrtb2.SeatBid{
			{Seat: "dsp-1", Bid: []openrtb2.Bid{{ID: "bid-1", CID: "camp-1", CrID: "cr-1", Price: 4.5, ADomain: []string{"advertiser.example"}, NURL: "https://win"}}},
		},
	}}))

	require.True(t, h.ValidateRequest(orchestrator.AdRequest{RequestID: "r1", PlacementID: "p1"}))

	resp, err := h.Fetch(context.Background(), orchestrator.AdRequest{RequestID: "r1", PlacementID: "p1", Width: 640, Height: 480})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, "bid-1", resp.AdID)
	require.Equal(t, "advertiser.example", resp.Advertiser)
	require.Equal(t, "4.5", resp.Price)
	require.Equal(t, []string{"https://win"}, resp.Tracking["win"])
}

func TestHandler_FetchNoBidReturnsError(t *testing.T) {
	h := New(NewRequester(&fixedRequester{resp: &openrtb2.BidResponse{}}))

	_, err := h.Fetch(context.Background(), orchestrator.AdRequest{RequestID: "r1", PlacementID: "p1"})
	require.Error(t, err)
}

func TestBuildBidRequest_SetsPrivacyRegs(t *testing.T) {
	br := BuildBidRequest(orchestrator.AdRequest{RequestID: "r1", PlacementID: "p1", COPPA: true, USPrivacy: "1YNN"})
	require.NotNil(t, br.Regs)
	require.EqualValues(t, 1, br.Regs.COPPA)
	require.Equal(t, "1YNN", br.Regs.USPrivacy)
}

func TestBuildBidRequest_SetsDeviceGeo(t *testing.T) {
	br := BuildBidRequest(orchestrator.AdRequest{RequestID: "r1", PlacementID: "p1", Latitude: 34.05, Longitude: -118.24})
	require.NotNil(t, br.Device.Geo)
	require.Equal(t, 34.05, *br.Device.Geo.Lat)
	require.Equal(t, -118.24, *br.Device.Geo.Lon)

	noGeo := BuildBidRequest(orchestrator.AdRequest{RequestID: "r1", PlacementID: "p1"})
	require.Nil(t, noGeo.Device.Geo)
}

func TestDecodeBidResponse_RoundTrips(t *testing.T) {
	data, err := json.Marshal(&openrtb2.BidResponse{ID: "resp-1"})
	require.NoError(t, err)
	decoded, err := DecodeBidResponse(data)
	require.NoError(t, err)
	require.Equal(t, "resp-1", decoded.ID)
}
