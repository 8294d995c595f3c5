// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vast implements IAB VAST parsing, version-gated element
// selection, and macro substitution for the upstream gateway's
// dominant protocol.
package vast

// Kind classifies a parsed VAST document as either a terminal Inline
// ad or a redirect to a further document.
type Kind string

const (
	KindInline  Kind = "inline"
	KindWrapper Kind = "wrapper"
)

// Document is the parsed, version-filtered representation of a single
// <Ad> in a VAST response. Exactly one of Inline/Wrapper semantics
// applies depending on Kind; VastAdTagURI is populated iff Kind ==
// KindWrapper.
type Document struct {
	Version    string
	Kind       Kind
	AdID       string
	AdSystem   string
	AdTitle    string
	Advertiser string

	Impressions    []string
	ErrorURLs      []string
	TrackingEvents map[string][]string
	MediaFiles     []MediaFile

	ClickThrough     string
	DurationSeconds  float64
	VastAdTagURI     string // present iff Kind == KindWrapper

	// AdPodPosition is unused by Recursive/FirstInline/MaxDepth
	// resolution; resolver.ResolvePod sets it to the slot index (0-
	// based) of the ad-pod chain that produced this document.
	AdPodPosition int

	// UnknownElements lists element names the parser did not
	// recognize. They are ignored, never an error; callers may log
	// them for diagnostics.
	UnknownElements []string

	RawXML string
}

// MediaFile is a single playable asset offered by a Linear creative.
type MediaFile struct {
	ID           string
	Delivery     string
	Type         string
	Bitrate      int
	MinBitrate   int
	MaxBitrate   int
	Width        int
	Height       int
	Codec        string
	APIFramework string
	Scalable     bool
	Mezzanine    bool
	URL          string
}

// area reports the pixel area of the media file, used by size-based
// creative selection.
func (m MediaFile) area() int { return m.Width * m.Height }
