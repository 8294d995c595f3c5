// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vast

// elementVersion records when a VAST element (or attribute this parser
// treats as a first-class element) entered and, optionally, left the
// spec. A parser configured for version V surfaces the element iff
// Introduced <= V and (Deprecated == "" or V < Deprecated).
type elementVersion struct {
	Introduced string
	Deprecated string
}

// versionOrder ranks the VAST versions this parser understands; used
// to compare "introduced"/"deprecated" markers against a parser's
// configured version without doing string comparison on dotted
// version numbers.
var versionOrder = map[string]int{
	"2.0": 0,
	"3.0": 1,
	"4.0": 2,
	"4.1": 3,
	"4.2": 4,
}

// elementRegistry maps element name to its version window. Elements
// absent from the registry are treated as always-visible (forward-
// compatible passthrough), matching the "unknown elements ignored
// without error" rule.
var elementRegistry = map[string]elementVersion{
	"AdSystem":       {Introduced: "2.0"},
	"AdTitle":        {Introduced: "2.0"},
	"Impression":     {Introduced: "2.0"},
	"Error":          {Introduced: "2.0"},
	"Creatives":      {Introduced: "2.0"},
	"Linear":         {Introduced: "2.0"},
	"Duration":       {Introduced: "2.0"},
	"MediaFiles":     {Introduced: "2.0"},
	"TrackingEvents": {Introduced: "2.0"},
	"VideoClicks":    {Introduced: "2.0"},
	"VASTAdTagURI":   {Introduced: "2.0"},
	"Wrapper":        {Introduced: "2.0"},
	"Icons":          {Introduced: "3.0"},
	"AdVerifications": {Introduced: "4.0"},
	"UniversalAdId":  {Introduced: "4.0"},
	"ViewableImpression": {Introduced: "4.1"},
	"Category":       {Introduced: "4.1"},
}

// versionAtLeast reports whether version a is >= version b in VAST's
// release order. Unknown versions sort after all known versions so a
// lenient/forward parser configuration never silently hides elements.
func versionAtLeast(a, b string) bool {
	ra, aok := versionOrder[a]
	rb, bok := versionOrder[b]
	if !aok {
		return true
	}
	if !bok {
		return true
	}
	return ra >= rb
}

// elementVisible reports whether name is visible to a parser
// configured for parserVersion.
func elementVisible(name, parserVersion string) bool {
	ev, ok := elementRegistry[name]
	if !ok {
		return true
	}
	if !versionAtLeast(parserVersion, ev.Introduced) {
		return false
	}
	if ev.Deprecated != "" && versionAtLeast(parserVersion, ev.Deprecated) {
		return false
	}
	return true
}
