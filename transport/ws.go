// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/luxfi/adxgateway/errs"
)

// WSTransport implements the reserved WS-future TransportKind: one
// request/response exchange per Send, over a short-lived WebSocket
// connection dialed fresh for each call. It exists so the kind has a
// real implementation rather than dead enum space; upstream pooling of
// long-lived connections is left to a future revision.
type WSTransport struct {
	dialer *websocket.Dialer
}

// NewWSTransport constructs a WSTransport using gorilla/websocket's
// default dialer.
func NewWSTransport() *WSTransport {
	return &WSTransport{dialer: websocket.DefaultDialer}
}

func (t *WSTransport) Kind() Kind { return KindWS }

func (t *WSTransport) Close() error { return nil }

func (t *WSTransport) Send(ctx context.Context, endpoint string, payload []byte, _ map[string]string, timeout time.Duration) ([]byte, error) {
	if endpoint == "" {
		return nil, &errs.TransportUnreachable{Endpoint: endpoint, Cause: errors.New("empty endpoint")}
	}

	callCtx, cancel := effectiveDeadline(ctx, timeout)
	defer cancel()

	conn, _, err := t.dialer.DialContext(callCtx, endpoint, nil)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, &errs.TransportTimeout{Endpoint: endpoint}
		}
		return nil, &errs.TransportUnreachable{Endpoint: endpoint, Cause: err}
	}
	defer conn.Close()

	if deadline, ok := callCtx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
		_ = conn.SetReadDeadline(deadline)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return nil, &errs.TransportUnreachable{Endpoint: endpoint, Cause: err}
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, &errs.TransportTimeout{Endpoint: endpoint}
		}
		return nil, &errs.TransportUnreachable{Endpoint: endpoint, Cause: err}
	}
	return data, nil
}
