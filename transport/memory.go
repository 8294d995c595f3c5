// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"context"
	"sync"
	"time"

	"github.com/luxfi/adxgateway/errs"
)

// MemoryTransport resolves endpoints against an in-process map. It is
// deterministic and checks ctx only on entry (an already-canceled ctx
// yields errs.ErrCanceled); used for tests and fixtures that don't need
// network or disk I/O.
type MemoryTransport struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryTransport constructs an empty MemoryTransport.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{data: make(map[string][]byte)}
}

// Put seeds endpoint with bytes for subsequent Send calls.
func (t *MemoryTransport) Put(endpoint string, bytes []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data[endpoint] = bytes
}

func (t *MemoryTransport) Kind() Kind { return KindMemory }

func (t *MemoryTransport) Close() error { return nil }

func (t *MemoryTransport) Send(ctx context.Context, endpoint string, _ []byte, _ map[string]string, _ time.Duration) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.ErrCanceled
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	data, ok := t.data[endpoint]
	if !ok {
		return nil, &errs.TransportUnreachable{Endpoint: endpoint}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
