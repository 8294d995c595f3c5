// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package resolver

import (
	"context"
	"sync"

	"github.com/luxfi/adxgateway/session"
)

// PodSlot is one ad-pod position's independent chain: its own primary/
// fallback upstreams and session context, resolved concurrently with
// every other slot in the pod under a shared total_timeout.
type PodSlot struct {
	Primary   Upstream
	Fallbacks []Upstream
	Session   session.Context
}

// ResolvePod resolves every slot's chain concurrently (the Parallel
// strategy), each sub-chain internally sequential exactly as a single
// Resolve call. cfg.TotalTimeout, when set, bounds the whole pod
// rather than each slot individually. The returned slice preserves
// ad-pod positional order regardless of which slot's chain completes
// first; each resolved Final document has AdPodPosition set to its
// slot index.
func ResolvePod(ctx context.Context, slots []PodSlot, cfg Config) []*Result {
	results := make([]*Result, len(slots))
	if len(slots) == 0 {
		return results
	}

	podCtx := ctx
	var cancel context.CancelFunc
	if cfg.TotalTimeout > 0 {
		podCtx, cancel = context.WithTimeout(ctx, cfg.TotalTimeout)
		defer cancel()
	}

	var wg sync.WaitGroup
	wg.Add(len(slots))
	for i, slot := range slots {
		go func(i int, slot PodSlot) {
			defer wg.Done()
			res := Resolve(podCtx, slot.Primary, slot.Fallbacks, slot.Session, cfg)
			if res.Final != nil {
				res.Final.AdPodPosition = i
			}
			results[i] = res
		}(i, slot)
	}
	wg.Wait()

	return results
}
