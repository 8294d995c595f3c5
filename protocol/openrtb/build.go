// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package openrtb

import (
	"encoding/json"
	"fmt"

	"github.com/prebid/openrtb/v20/openrtb2"

	"github.com/luxfi/adxgateway/orchestrator"
)

// BuildBidRequest maps an orchestrator.AdRequest onto a minimal
// OpenRTB BidRequest: one Imp sized to the request's slot, one Device
// carrying client signals, and Regs reflecting the privacy flags the
// gateway already validated.
func BuildBidRequest(req orchestrator.AdRequest) *openrtb2.BidRequest {
	br := &openrtb2.BidRequest{
		ID: req.RequestID,
		Imp: []openrtb2.Imp{
			{
				ID: "1",
				Video: &openrtb2.Video{
					W: ptr(int64(req.Width)),
					H: ptr(int64(req.Height)),
				},
				TagID: req.PlacementID,
			},
		},
		Device: &openrtb2.Device{
			UA:  req.UserAgent,
			IP:  req.IPAddress,
			IFA: req.DeviceID,
			W:   int64(req.Width),
			H:   int64(req.Height),
		},
		User: &openrtb2.User{
			ID: req.UserID,
		},
	}

	if req.Latitude != 0 || req.Longitude != 0 {
		br.Device.Geo = &openrtb2.Geo{
			Lat: ptr(req.Latitude),
			Lon: ptr(req.Longitude),
		}
	}

	if req.COPPA {
		br.Regs = &openrtb2.Regs{COPPA: 1}
	}
	if req.GDPR {
		gdpr := int8(1)
		if br.Regs == nil {
			br.Regs = &openrtb2.Regs{}
		}
		br.Regs.GDPR = &gdpr
		if req.GDPRConsent != "" && br.User != nil {
			br.User.Ext = json.RawMessage(fmt.Sprintf(`{"consent":%q}`, req.GDPRConsent))
		}
	}
	if req.USPrivacy != "" {
		if br.Regs == nil {
			br.Regs = &openrtb2.Regs{}
		}
		br.Regs.USPrivacy = req.USPrivacy
	}

	return br
}

func ptr[T any](v T) *T { return &v }
