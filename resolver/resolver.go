// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package resolver implements the VAST wrapper-chain resolver: given a
// primary upstream and ordered fallbacks, it follows Wrapper redirects
// to a terminal Inline document, accumulating tracking state and
// enforcing depth/time bounds along the way.
package resolver

import (
	"context"
	"time"

	"github.com/luxfi/adxgateway/protocol/vast"
	"github.com/luxfi/adxgateway/session"
	"go.uber.org/zap"
)

// Strategy selects how the resolver walks the wrapper chain.
type Strategy string

const (
	Recursive   Strategy = "recursive"
	FirstInline Strategy = "first_inline"
	MaxDepthS   Strategy = "max_depth"
	Parallel    Strategy = "parallel"
)

// CustomSelector picks a media file from a resolved Inline document's
// candidates; used only when SelectionStrategy == vast.SelectionStrategy("custom").
type CustomSelector func(candidates []vast.MediaFile) (vast.MediaFile, bool)

// Upstream is the subset of upstream.Requester[string] the resolver
// needs: a single typed VAST fetch per hop. url is the hop's target:
// empty for the first hop (the upstream dispatches to its own
// configured endpoint), or the wrapper's substituted VASTAdTagURI for
// every hop after that, so following a wrapper chain actually visits
// the URL the chain points to rather than re-requesting a fixed
// endpoint.
type Upstream interface {
	Request(ctx context.Context, sc session.Context, url string, timeout time.Duration) (string, error)
	Name() string
	Endpoint() string
}

// Config configures one Resolve call.
type Config struct {
	MaxDepth        int // default 5, per VAST 4.2 §2.4.1.2
	TotalTimeout    time.Duration
	PerHopTimeout   time.Duration
	EnableFallbacks bool

	Strategy          Strategy
	SelectionStrategy vast.SelectionStrategy
	CustomSelector    CustomSelector
	TargetWidth       int
	TargetHeight      int

	CollectTrackingURLs  bool
	CollectErrorURLs     bool
	ValidateEachResponse bool

	ParserVersion string // version the vast.Parse calls are configured for
	Strict        bool

	Log *zap.Logger
}

// ChainHop records one step of wrapper resolution: which upstream
// served it, where it pointed, how deep and how long it was, and
// whether it succeeded. Failed hops stay in the chain so callers can
// see exactly where a resolution died.
type ChainHop struct {
	UpstreamName string
	URL          string
	Depth        int
	Kind         vast.Kind
	DurationMS   int64
	OK           bool
	Err          error
}

// Result is the outcome of one Resolve call.
type Result struct {
	Success                bool
	Chain                  []ChainHop
	Final                  *vast.Document
	SelectedMedia          *vast.MediaFile
	UsedFallback           bool
	AccumulatedImpressions []string
	AccumulatedErrors      []string
	AccumulatedTracking    map[string][]string
	TotalDurationMS        int64
	Err                    error
}

func withDefaults(cfg Config) Config {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 5
	}
	if cfg.Strategy == "" {
		cfg.Strategy = Recursive
	}
	if cfg.SelectionStrategy == "" {
		cfg.SelectionStrategy = vast.HighestBitrate
	}
	if cfg.ParserVersion == "" {
		cfg.ParserVersion = "4.2"
	}
	return cfg
}
