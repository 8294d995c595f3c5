// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package resolver

import (
	"context"
	"time"

	"github.com/luxfi/adxgateway/protocol/vast"
	"github.com/luxfi/adxgateway/session"
	"github.com/luxfi/adxgateway/upstream"
)

// NamedUpstream adapts a vast.Requester into the resolver's Upstream
// interface, attaching the name and endpoint the resolver needs for
// chain bookkeeping and cycle-seeding. Macro context beyond
// SessionContext's built-ins is baked into Req at construction time
// (see vast.NewRequester's extra parameter).
type NamedUpstream struct {
	UpstreamName string
	EndpointURL  string
	Req          *vast.Requester
	Params       upstream.Params
	Headers      upstream.Headers
}

func (n *NamedUpstream) Name() string     { return n.UpstreamName }
func (n *NamedUpstream) Endpoint() string { return n.EndpointURL }

func (n *NamedUpstream) Request(ctx context.Context, sc session.Context, url string, timeout time.Duration) (string, error) {
	return n.Req.Request(ctx, sc, url, n.Params, n.Headers, timeout)
}
