// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package resolver

import (
	"context"
	"net/http"
	"time"

	"github.com/luxfi/adxgateway/errs"
	"github.com/luxfi/adxgateway/protocol/vast"
	"github.com/luxfi/adxgateway/session"
	"go.uber.org/zap"
)

// errorCodeNoResponse, errorCodeWrapperDepth and errorCodeOther are
// the [ERRORCODE] macro values fired on the corresponding terminal
// failure, per the resolver's error-pixel contract.
const (
	errorCodeNoResponse   = 303
	errorCodeWrapperDepth = 301
	errorCodeOther        = 900
	errorCodeMalformed    = 100
)

// Resolve follows the wrapper chain starting at primary, falling back
// to fallbacks on transport/decode failure when cfg.EnableFallbacks is
// set, until an Inline document is reached or a terminal failure
// occurs.
func Resolve(ctx context.Context, primary Upstream, fallbacks []Upstream, sc session.Context, cfg Config) *Result {
	cfg = withDefaults(cfg)
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	start := time.Now()
	res := &Result{AccumulatedTracking: map[string][]string{}}

	upstreams := append([]Upstream{primary}, fallbacks...)
	tried := map[int]bool{}
	current := 0
	tried[0] = true

	currentURL := primary.Endpoint()
	visited := map[string]bool{currentURL: true}

	// hopURL is the explicit target passed to Upstream.Request: empty at
	// depth 0 (each upstream dispatches to its own configured endpoint),
	// then the substituted VASTAdTagURI for every hop after that, so a
	// wrapper hop actually reaches the URL it was redirected to instead
	// of re-requesting whichever upstream's fixed endpoint.
	hopURL := ""

	for depth := 0; depth < cfg.MaxDepth; depth++ {
		remaining := cfg.TotalTimeout - time.Since(start)
		if cfg.TotalTimeout > 0 && remaining <= 0 {
			return terminal(res, start, errs.ErrChainTimeout, cfg, errorCodeOther)
		}

		hopTimeout := cfg.PerHopTimeout
		if cfg.TotalTimeout > 0 && (hopTimeout <= 0 || remaining < hopTimeout) {
			hopTimeout = remaining
		}

		hopStart := time.Now()
		raw, upstreamName, err := attemptHop(ctx, upstreams, &current, tried, sc, hopURL, hopTimeout, cfg, &res.UsedFallback)
		if err != nil {
			res.Chain = append(res.Chain, failedHop(upstreamName, currentURL, depth, hopStart, err))
			return terminal(res, start, err, cfg, errorCodeNoResponse)
		}

		doc, err := vast.Parse([]byte(raw), cfg.ParserVersion, cfg.Strict)
		if err != nil {
			res.Chain = append(res.Chain, failedHop(upstreamName, currentURL, depth, hopStart, err))
			return terminal(res, start, err, cfg, errorCodeMalformed)
		}
		for _, el := range doc.UnknownElements {
			log.Debug("ignoring unrecognized element", zap.Error(&errs.VastUnknownElement{Element: el}))
		}
		if cfg.ValidateEachResponse {
			if err := doc.Validate(); err != nil {
				res.Chain = append(res.Chain, failedHop(upstreamName, currentURL, depth, hopStart, err))
				return terminal(res, start, err, cfg, errorCodeMalformed)
			}
		}

		if cfg.CollectTrackingURLs {
			res.AccumulatedImpressions = append(res.AccumulatedImpressions, doc.Impressions...)
			for event, urls := range doc.TrackingEvents {
				res.AccumulatedTracking[event] = append(res.AccumulatedTracking[event], urls...)
			}
		}
		if cfg.CollectErrorURLs {
			res.AccumulatedErrors = append(res.AccumulatedErrors, doc.ErrorURLs...)
		}

		res.Chain = append(res.Chain, ChainHop{
			UpstreamName: upstreamName,
			URL:          currentURL,
			Depth:        depth,
			Kind:         doc.Kind,
			DurationMS:   time.Since(hopStart).Milliseconds(),
			OK:           true,
		})

		if doc.Kind == vast.KindInline {
			res.Final = doc
			// Parallel only changes how many chains the caller runs
			// concurrently (see ResolvePod); a single chain within a
			// pod slot is resolved the same as Recursive.
			return finish(res, start, cfg, log)
		}

		// Wrapper: advance to the next hop.
		if doc.VastAdTagURI == "" {
			return terminal(res, start, errs.ErrVastMalformed, cfg, errorCodeMalformed)
		}
		substituted := vast.Substitute(doc.VastAdTagURI, sc, nil)

		if visited[substituted] {
			return terminal(res, start, errs.ErrWrapperCycle, cfg, errorCodeWrapperDepth)
		}
		visited[substituted] = true
		currentURL = substituted
		hopURL = substituted
	}

	if cfg.Strategy == MaxDepthS {
		res.Success = false
		res.TotalDurationMS = time.Since(start).Milliseconds()
		return res
	}

	return terminal(res, start, errs.ErrWrapperDepth, cfg, errorCodeWrapperDepth)
}

// attemptHop issues the current hop against upstreams[*current] at url
// (empty meaning "that upstream's own configured endpoint"), and on
// failure advances through untried fallbacks (if enabled) without
// counting against the caller's depth budget. Every fallback tried for
// this hop is asked for the same url: once a wrapper chain is underway
// a fallback must retry the hop it replaced, not its own unrelated
// default endpoint.
func attemptHop(ctx context.Context, upstreams []Upstream, current *int, tried map[int]bool, sc session.Context, url string, timeout time.Duration, cfg Config, usedFallback *bool) (string, string, error) {
	for {
		up := upstreams[*current]
		raw, err := up.Request(ctx, sc, url, timeout)
		if err == nil {
			return raw, up.Name(), nil
		}

		if !cfg.EnableFallbacks {
			return "", up.Name(), err
		}

		nextIdx := -1
		for i := range upstreams {
			if !tried[i] {
				nextIdx = i
				break
			}
		}
		if nextIdx == -1 {
			return "", up.Name(), errs.ErrChainExhausted
		}

		tried[nextIdx] = true
		*current = nextIdx
		*usedFallback = true
	}
}

func failedHop(upstreamName, url string, depth int, hopStart time.Time, err error) ChainHop {
	return ChainHop{
		UpstreamName: upstreamName,
		URL:          url,
		Depth:        depth,
		DurationMS:   time.Since(hopStart).Milliseconds(),
		OK:           false,
		Err:          err,
	}
}

func terminal(res *Result, start time.Time, err error, cfg Config, errorCode int) *Result {
	res.Success = false
	res.Err = err
	res.TotalDurationMS = time.Since(start).Milliseconds()

	if cfg.CollectErrorURLs {
		fireErrorPixels(res.AccumulatedErrors, errorCode, cfg.Log)
	}
	return res
}

func finish(res *Result, start time.Time, cfg Config, log *zap.Logger) *Result {
	res.Success = true
	res.TotalDurationMS = time.Since(start).Milliseconds()

	if res.Final != nil && len(res.Final.MediaFiles) > 0 {
		media, ok := selectMedia(res.Final.MediaFiles, cfg)
		if ok {
			res.SelectedMedia = &media
		}
	}

	if cfg.CollectTrackingURLs {
		fireTrackingPixels(res.AccumulatedImpressions, log)
	}
	return res
}

func selectMedia(files []vast.MediaFile, cfg Config) (vast.MediaFile, bool) {
	if cfg.SelectionStrategy == "custom" && cfg.CustomSelector != nil {
		return cfg.CustomSelector(files)
	}
	return vast.SelectMediaFile(files, cfg.SelectionStrategy, cfg.TargetWidth, cfg.TargetHeight)
}

// trackingFireGrace bounds the fire-and-forget pixel GETs so a slow or
// hanging tracker endpoint cannot leak goroutines indefinitely.
const trackingFireGrace = 5 * time.Second

func fireTrackingPixels(urls []string, log *zap.Logger) {
	for _, u := range urls {
		go firePixel(u, log)
	}
}

func fireErrorPixels(urls []string, code int, log *zap.Logger) {
	if len(urls) == 0 {
		return
	}
	if log == nil {
		log = zap.NewNop()
	}
	for _, u := range urls {
		go firePixel(vast.ErrorCode(u, code), log)
	}
}

func firePixel(u string, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), trackingFireGrace)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		log.Warn("tracking pixel request build failed", zap.String("url", u), zap.Error(err))
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Warn("tracking pixel fire failed", zap.String("url", u), zap.Error(err))
		return
	}
	_ = resp.Body.Close()
}
