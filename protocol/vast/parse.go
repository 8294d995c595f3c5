// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vast

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/luxfi/adxgateway/errs"
)

// Parse decodes raw VAST XML into a Document, filtering elements by
// parserVersion per the element registry. In strict mode a root
// version attribute that disagrees with parserVersion fails with
// errs.ErrVastVersion; in lenient mode the root's own version is used
// for filtering and parserVersion is advisory only.
func Parse(data []byte, parserVersion string, strict bool) (*Document, error) {
	var w wireVAST
	if err := xml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrVastMalformed, err)
	}

	if strict && w.Version != "" && w.Version != parserVersion {
		return nil, fmt.Errorf("%w: root version %q, parser configured for %q", errs.ErrVastVersion, w.Version, parserVersion)
	}

	effectiveVersion := parserVersion
	if !strict && w.Version != "" {
		effectiveVersion = w.Version
	}

	if len(w.Ads) == 0 {
		return nil, fmt.Errorf("%w: no Ad element", errs.ErrVastMalformed)
	}
	ad := w.Ads[0]

	var doc *Document
	var err error
	switch {
	case ad.InLine != nil && ad.Wrapper != nil:
		return nil, fmt.Errorf("%w: Ad has both InLine and Wrapper", errs.ErrVastMalformed)
	case ad.InLine != nil:
		doc, err = parseInline(ad, w, effectiveVersion, string(data))
	case ad.Wrapper != nil:
		doc, err = parseWrapper(ad, w, effectiveVersion, string(data))
	default:
		return nil, fmt.Errorf("%w: Ad has neither InLine nor Wrapper", errs.ErrVastMalformed)
	}
	if err != nil {
		return nil, err
	}
	doc.UnknownElements = scanUnknownElements(data)
	return doc, nil
}

// knownElements are the element names the wire structs decode (or the
// registry gates), plus a few recognised names (such as Pricing and
// Extensions) that are neither decoded nor gated, only kept off the
// unknown list. Anything else in the document is forward-compatible
// passthrough, surfaced on Document.UnknownElements for logging.
var knownElements = map[string]bool{
	"VAST": true, "Ad": true, "InLine": true, "Wrapper": true,
	"AdSystem": true, "AdTitle": true, "Description": true,
	"Advertiser": true, "Impression": true, "Error": true,
	"Creatives": true, "Creative": true, "Linear": true,
	"Duration": true, "MediaFiles": true, "MediaFile": true,
	"VideoClicks": true, "ClickThrough": true, "ClickTracking": true,
	"TrackingEvents": true, "Tracking": true, "VASTAdTagURI": true,
	"Icons": true, "Icon": true, "AdVerifications": true,
	"UniversalAdId": true, "ViewableImpression": true, "Category": true,
	"Extensions": true, "Extension": true, "Pricing": true,
}

func scanUnknownElements(data []byte) []string {
	dec := xml.NewDecoder(bytes.NewReader(data))
	seen := map[string]bool{}
	var out []string
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		if se, ok := tok.(xml.StartElement); ok {
			name := se.Name.Local
			if !knownElements[name] && !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
}

func parseInline(ad wireAd, w wireVAST, version, raw string) (*Document, error) {
	in := ad.InLine

	doc := &Document{
		Version:        version,
		Kind:           KindInline,
		AdID:           ad.ID,
		AdSystem:       in.AdSystem.Name,
		AdTitle:        in.AdTitle,
		Advertiser:     in.Advertiser,
		Impressions:    trimAll(in.Impression),
		ErrorURLs:      trimAll(append(append([]string(nil), w.Errors...), in.Error...)),
		TrackingEvents: map[string][]string{},
		RawXML:         raw,
	}

	for _, creative := range in.Creatives.Creative {
		if creative.Linear == nil || !elementVisible("Linear", version) {
			continue
		}
		applyLinear(doc, creative.Linear, version)
	}

	return doc, nil
}

func parseWrapper(ad wireAd, w wireVAST, version, raw string) (*Document, error) {
	wr := ad.Wrapper

	if strings.TrimSpace(wr.VASTAdTagURI) == "" {
		return nil, fmt.Errorf("%w: Wrapper missing VASTAdTagURI", errs.ErrVastMalformed)
	}

	doc := &Document{
		Version:        version,
		Kind:           KindWrapper,
		AdID:           ad.ID,
		AdSystem:       wr.AdSystem.Name,
		VastAdTagURI:   strings.TrimSpace(wr.VASTAdTagURI),
		Impressions:    trimAll(wr.Impression),
		ErrorURLs:      trimAll(append(append([]string(nil), w.Errors...), wr.Error...)),
		TrackingEvents: map[string][]string{},
		RawXML:         raw,
	}

	for _, creative := range wr.Creatives.Creative {
		if creative.Linear == nil || !elementVisible("Linear", version) {
			continue
		}
		applyLinear(doc, creative.Linear, version)
	}

	return doc, nil
}

// applyLinear folds a wireLinear's media files, duration and tracking
// events into doc, honoring element visibility for the configured
// version.
func applyLinear(doc *Document, lin *wireLinear, version string) {
	if lin.Duration != "" && elementVisible("Duration", version) {
		if d, err := ParseDuration(lin.Duration); err == nil {
			doc.DurationSeconds = d.Seconds()
		}
	}

	if elementVisible("MediaFiles", version) {
		for _, mf := range lin.MediaFiles.MediaFile {
			doc.MediaFiles = append(doc.MediaFiles, MediaFile{
				ID:           mf.ID,
				Delivery:     mf.Delivery,
				Type:         mf.Type,
				Bitrate:      mf.Bitrate,
				MinBitrate:   mf.MinBitrate,
				MaxBitrate:   mf.MaxBitrate,
				Width:        mf.Width,
				Height:       mf.Height,
				Codec:        mf.Codec,
				APIFramework: mf.APIFramework,
				Scalable:     mf.Scalable,
				Mezzanine:    mf.Mezzanine,
				URL:          strings.TrimSpace(mf.URL),
			})
		}
	}

	if lin.VideoClicks != nil && elementVisible("VideoClicks", version) {
		doc.ClickThrough = strings.TrimSpace(lin.VideoClicks.ClickThrough)
	}

	if lin.TrackingEvents != nil && elementVisible("TrackingEvents", version) {
		for _, t := range lin.TrackingEvents.Tracking {
			doc.TrackingEvents[t.Event] = append(doc.TrackingEvents[t.Event], strings.TrimSpace(t.URL))
		}
	}
}

// trimAll returns in with each entry whitespace-trimmed; chardata URLs
// in hand-indented VAST documents routinely carry the element's own
// indentation.
func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
