// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package transport implements the byte-level I/O layer: establishing a
// logical connection to an endpoint and exchanging bytes against it.
package transport

import (
	"context"
	"time"
)

// Kind tags a Transport implementation for routing and diagnostics.
type Kind string

const (
	KindHTTP   Kind = "http"
	KindFile   Kind = "file"
	KindMemory Kind = "memory"
	KindGRPC   Kind = "grpc" // reserved, not yet implemented
	KindWS     Kind = "ws"
)

// Transport exchanges opaque bytes against an endpoint. Implementations
// must be safe for concurrent use by multiple goroutines calling Send.
type Transport interface {
	// Send exchanges payload against endpoint and returns the complete
	// response body. metadata maps to protocol-appropriate headers.
	// timeout, if non-zero, bounds the total wall-clock duration of the
	// call and composes with ctx's own deadline (whichever is tighter
	// wins).
	Send(ctx context.Context, endpoint string, payload []byte, metadata map[string]string, timeout time.Duration) ([]byte, error)

	// Close releases pools and handles. Idempotent after the first
	// successful call.
	Close() error

	// Kind returns this transport's static tag.
	Kind() Kind
}

// effectiveDeadline returns a context bounded by whichever of ctx's
// existing deadline and timeout (if positive) is tighter, along with its
// cancel function. Callers must always call the returned cancel.
func effectiveDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
