// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vast

import "encoding/xml"

// The wireXXX types below mirror the VAST 2.0-4.2 XML element tree.
// They carry the elements the parser decodes; elementRegistry decides
// what a given parser version is allowed to surface from them. Icons,
// Pricing, AdVerifications, UniversalAdId and Extensions are not
// decoded into any wire field.

type wireVAST struct {
	XMLName xml.Name `xml:"VAST"`
	Version string   `xml:"version,attr"`
	Ads     []wireAd `xml:"Ad"`
	Errors  []string `xml:"Error,omitempty"`
}

type wireAd struct {
	ID       string       `xml:"id,attr"`
	Sequence int          `xml:"sequence,attr,omitempty"`
	InLine   *wireInLine  `xml:"InLine,omitempty"`
	Wrapper  *wireWrapper `xml:"Wrapper,omitempty"`
}

type wireInLine struct {
	AdSystem    wireAdSystem     `xml:"AdSystem"`
	AdTitle     string           `xml:"AdTitle"`
	Description string           `xml:"Description,omitempty"`
	Advertiser  string           `xml:"Advertiser,omitempty"`
	Impression  []string         `xml:"Impression"`
	Error       []string         `xml:"Error,omitempty"`
	Creatives   wireCreatives    `xml:"Creatives"`
}

type wireWrapper struct {
	AdSystem     wireAdSystem  `xml:"AdSystem"`
	VASTAdTagURI string        `xml:"VASTAdTagURI"`
	Impression   []string      `xml:"Impression"`
	Error        []string      `xml:"Error,omitempty"`
	Creatives    wireCreatives `xml:"Creatives,omitempty"`
}

type wireAdSystem struct {
	Version string `xml:"version,attr,omitempty"`
	Name    string `xml:",chardata"`
}

type wireCreatives struct {
	Creative []wireCreative `xml:"Creative"`
}

type wireCreative struct {
	ID       string      `xml:"id,attr,omitempty"`
	AdID     string      `xml:"adId,attr,omitempty"`
	Sequence int         `xml:"sequence,attr,omitempty"`
	Linear   *wireLinear `xml:"Linear,omitempty"`
}

type wireLinear struct {
	SkipOffset     string            `xml:"skipoffset,attr,omitempty"`
	Duration       string            `xml:"Duration"`
	MediaFiles     wireMediaFiles    `xml:"MediaFiles"`
	VideoClicks    *wireVideoClicks  `xml:"VideoClicks,omitempty"`
	TrackingEvents *wireTrackingSet  `xml:"TrackingEvents,omitempty"`
}

type wireMediaFiles struct {
	MediaFile []wireMediaFile `xml:"MediaFile"`
}

type wireMediaFile struct {
	ID           string `xml:"id,attr,omitempty"`
	Delivery     string `xml:"delivery,attr"`
	Type         string `xml:"type,attr"`
	Bitrate      int    `xml:"bitrate,attr,omitempty"`
	MinBitrate   int    `xml:"minBitrate,attr,omitempty"`
	MaxBitrate   int    `xml:"maxBitrate,attr,omitempty"`
	Width        int    `xml:"width,attr"`
	Height       int    `xml:"height,attr"`
	Scalable     bool   `xml:"scalable,attr,omitempty"`
	Mezzanine    bool   `xml:"mezzanine,attr,omitempty"`
	Codec        string `xml:"codec,attr,omitempty"`
	APIFramework string `xml:"apiFramework,attr,omitempty"`
	URL          string `xml:",chardata"`
}

type wireVideoClicks struct {
	ClickThrough  string   `xml:"ClickThrough,omitempty"`
	ClickTracking []string `xml:"ClickTracking,omitempty"`
}

type wireTrackingSet struct {
	Tracking []wireTracking `xml:"Tracking"`
}

type wireTracking struct {
	Event  string `xml:"event,attr"`
	Offset string `xml:"offset,attr,omitempty"`
	URL    string `xml:",chardata"`
}
