// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/luxfi/adxgateway/errs"
)

// FileTransport reads endpoint as a filesystem path. Writes (non-empty
// payload) are not supported; it is a read-style transport used chiefly
// for local fixtures and offline VAST documents.
type FileTransport struct{}

// NewFileTransport constructs a FileTransport.
func NewFileTransport() *FileTransport { return &FileTransport{} }

func (t *FileTransport) Kind() Kind { return KindFile }

func (t *FileTransport) Close() error { return nil }

func (t *FileTransport) Send(ctx context.Context, endpoint string, _ []byte, _ map[string]string, timeout time.Duration) ([]byte, error) {
	if endpoint == "" {
		return nil, &errs.TransportUnreachable{Endpoint: endpoint, Cause: errors.New("empty endpoint")}
	}

	callCtx, cancel := effectiveDeadline(ctx, timeout)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := os.ReadFile(endpoint)
		done <- result{data, err}
	}()

	select {
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, &errs.TransportTimeout{Endpoint: endpoint}
		}
		return nil, errs.ErrCanceled
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, os.ErrNotExist) {
				return nil, &errs.TransportUnreachable{Endpoint: endpoint, Cause: r.err}
			}
			return nil, &errs.TransportUnreachable{Endpoint: endpoint, Cause: r.err}
		}
		return r.data, nil
	}
}
