// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vast

import (
	"fmt"
	"strconv"
	"strings"
)

// Duration renders and parses the VAST HH:MM:SS[.fff] time format used
// by <Duration> and duration-bearing attributes.
type Duration float64 // seconds

// ParseDuration converts an "HH:MM:SS" or "HH:MM:SS.fff" string into
// seconds. Offsets expressed as a percentage ("25%") are rejected here;
// callers needing percentage offsets use Offset instead.
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("vast: malformed duration %q", s)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("vast: malformed duration hours %q: %w", s, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("vast: malformed duration minutes %q: %w", s, err)
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("vast: malformed duration seconds %q: %w", s, err)
	}

	total := float64(hours)*3600 + float64(minutes)*60 + seconds
	return Duration(total), nil
}

// String renders the duration as HH:MM:SS or HH:MM:SS.fff when it
// carries a fractional component.
func (d Duration) String() string {
	total := float64(d)
	hours := int(total) / 3600
	minutes := (int(total) % 3600) / 60
	seconds := total - float64(hours*3600+minutes*60)

	if seconds == float64(int(seconds)) {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, int(seconds))
	}
	return fmt.Sprintf("%02d:%02d:%06.3f", hours, minutes, seconds)
}

// Seconds returns the duration as a plain float64 of seconds.
func (d Duration) Seconds() float64 { return float64(d) }

// Offset is either an absolute HH:MM:SS[.fff] time or a percentage
// ("25%") indicating when a tracking/skip event should fire relative
// to playback. Percentage offsets are resolved by the caller against
// the creative's own Duration; this type only preserves the raw form.
type Offset struct {
	Seconds    Duration
	Percent    float64
	IsPercent  bool
}

// ParseOffset accepts either an HH:MM:SS[.fff] absolute offset or an
// "N%" percentage offset, per the VAST skipoffset/tracking offset
// grammar.
func ParseOffset(s string) (Offset, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "%") {
		pct, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return Offset{}, fmt.Errorf("vast: malformed percentage offset %q: %w", s, err)
		}
		return Offset{Percent: pct, IsPercent: true}, nil
	}

	d, err := ParseDuration(s)
	if err != nil {
		return Offset{}, err
	}
	return Offset{Seconds: d}, nil
}

// Resolve returns the absolute offset in seconds given the creative's
// total duration, resolving a percentage offset proportionally.
func (o Offset) Resolve(total Duration) Duration {
	if o.IsPercent {
		return Duration(float64(total) * o.Percent / 100)
	}
	return o.Seconds
}

func (o Offset) String() string {
	if o.IsPercent {
		return fmt.Sprintf("%g%%", o.Percent)
	}
	return o.Seconds.String()
}
