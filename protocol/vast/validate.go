// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vast

import (
	"fmt"
	"math"

	"github.com/luxfi/adxgateway/errs"
)

// Validate checks the minimal invariants this system relies on:
// exactly one of Inline/Wrapper semantics, a wrapper tag URI when
// Kind is Wrapper, and at least one media file on an Inline document.
// It also filters out blank impression/error URLs in place.
func (d *Document) Validate() error {
	switch d.Kind {
	case KindInline:
		if len(d.MediaFiles) == 0 {
			return fmt.Errorf("%w: inline ad %q has no media files", errs.ErrVastMalformed, d.AdID)
		}
		for i, mf := range d.MediaFiles {
			if err := mf.validate(); err != nil {
				return fmt.Errorf("%w: media file[%d]: %v", errs.ErrVastMalformed, i, err)
			}
		}
	case KindWrapper:
		if d.VastAdTagURI == "" {
			return fmt.Errorf("%w: wrapper ad %q missing VASTAdTagURI", errs.ErrVastMalformed, d.AdID)
		}
	default:
		return fmt.Errorf("%w: document has neither inline nor wrapper kind", errs.ErrVastMalformed)
	}

	d.Impressions = filterEmpty(d.Impressions)
	d.ErrorURLs = filterEmpty(d.ErrorURLs)
	return nil
}

func filterEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (m MediaFile) validate() error {
	if m.URL == "" {
		return fmt.Errorf("empty url")
	}
	if m.Type == "" {
		return fmt.Errorf("empty type")
	}
	if m.Width == 0 || m.Height == 0 {
		return fmt.Errorf("missing dimensions")
	}
	return nil
}

// SelectionStrategy names a creative-selection policy applied to
// Document.MediaFiles.
type SelectionStrategy string

const (
	HighestBitrate       SelectionStrategy = "highest_bitrate"
	LowestBitrate        SelectionStrategy = "lowest_bitrate"
	BestQuality          SelectionStrategy = "best_quality"
	BestFitForDimensions SelectionStrategy = "best_fit_dimensions"
)

// bestQualityBitrateFloor is the kbps threshold at or above which BestQuality
// behaves like HighestBitrate; below it, a high bitrate is more likely
// a mezzanine outlier than a genuinely better-quality rendition, so
// BestQuality falls back to LowestBitrate.
const bestQualityBitrateFloor = 1000

// SelectMediaFile applies strategy to the document's media files,
// returning the chosen file. targetW/targetH are consulted only by
// BestFitForDimensions; pass 0,0 otherwise.
func SelectMediaFile(files []MediaFile, strategy SelectionStrategy, targetW, targetH int) (MediaFile, bool) {
	if len(files) == 0 {
		return MediaFile{}, false
	}

	switch strategy {
	case LowestBitrate:
		return pickByBitrate(files, false), true

	case BestFitForDimensions:
		return bestFitForDimensions(files, targetW, targetH), true

	case BestQuality:
		maxBitrate := 0
		for _, f := range files {
			if eb := effectiveBitrate(f); eb > maxBitrate {
				maxBitrate = eb
			}
		}
		if maxBitrate >= bestQualityBitrateFloor {
			return SelectMediaFile(files, HighestBitrate, targetW, targetH)
		}
		return SelectMediaFile(files, LowestBitrate, targetW, targetH)

	case HighestBitrate:
		fallthrough
	default:
		return pickByBitrate(files, true), true
	}
}

// pickByBitrate implements the bitrate-ordered strategies. Files with
// no bitrate are ignored as long as at least one file declares one;
// when none do, the first file wins. Ties on bitrate are broken by
// resolution (higher for highest, lower for lowest), then by earlier
// insertion order.
func pickByBitrate(files []MediaFile, highest bool) MediaFile {
	candidates := files
	if rated := withBitrate(files); len(rated) > 0 {
		candidates = rated
	} else {
		return files[0]
	}

	best := candidates[0]
	for _, f := range candidates[1:] {
		br, bestBr := effectiveBitrate(f), effectiveBitrate(best)
		switch {
		case highest && br > bestBr,
			!highest && br < bestBr:
			best = f
		case br == bestBr:
			if highest && f.area() > best.area() || !highest && f.area() < best.area() {
				best = f
			}
		}
	}
	return best
}

func withBitrate(files []MediaFile) []MediaFile {
	var out []MediaFile
	for _, f := range files {
		if effectiveBitrate(f) > 0 {
			out = append(out, f)
		}
	}
	return out
}

func effectiveBitrate(m MediaFile) int {
	if m.Bitrate > 0 {
		return m.Bitrate
	}
	return m.MaxBitrate
}

// bestFitForDimensions picks the media file whose aspect ratio and
// area most closely match the requested w x h.
func bestFitForDimensions(files []MediaFile, w, h int) MediaFile {
	wantPortrait := h > w
	targetArea := float64(w * h)

	var candidates []MediaFile
	for _, f := range files {
		if (f.Height > f.Width) == wantPortrait {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		candidates = files
	}

	best := candidates[0]
	bestDelta := math.Abs(float64(best.area())/targetArea*100 - 100)
	for _, f := range candidates[1:] {
		delta := math.Abs(float64(f.area())/targetArea*100 - 100)
		if delta < bestDelta {
			best, bestDelta = f, delta
		}
	}
	return best
}
