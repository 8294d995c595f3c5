// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/luxfi/adxgateway/errs"
)

const defaultUserAgent = "adxgateway/1.0"

// HTTPOption configures an HTTPTransport at construction.
type HTTPOption func(*HTTPTransport)

// WithFollowRedirects toggles following HTTP redirects (default true).
func WithFollowRedirects(follow bool) HTTPOption {
	return func(t *HTTPTransport) {
		if follow {
			t.client.CheckRedirect = nil
			return
		}
		t.client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
}

// WithHTTPClient overrides the underlying *http.Client, e.g. to share a
// connection pool across transports or inject a custom RoundTripper.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTransport) { t.client = c }
}

// HTTPTransport exchanges bytes over HTTP/1.1 or HTTP/2. A single
// instance shares one *http.Client (and therefore one connection pool)
// across concurrent Send calls.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport constructs an HTTPTransport. The default client
// reuses Go's default transport-level connection pooling.
func NewHTTPTransport(opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		client: &http.Client{Timeout: 0},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *HTTPTransport) Kind() Kind { return KindHTTP }

func (t *HTTPTransport) Close() error { return nil }

// Send issues an HTTP request against endpoint. Method defaults to GET
// when payload is empty, POST otherwise. User-Agent is added if the
// caller didn't supply one.
func (t *HTTPTransport) Send(ctx context.Context, endpoint string, payload []byte, metadata map[string]string, timeout time.Duration) ([]byte, error) {
	if endpoint == "" {
		return nil, &errs.TransportUnreachable{Endpoint: endpoint, Cause: errors.New("empty endpoint")}
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, &errs.TransportUnreachable{Endpoint: endpoint, Cause: err}
	}

	callCtx, cancel := effectiveDeadline(ctx, timeout)
	defer cancel()

	method := http.MethodGet
	var body io.Reader
	if len(payload) > 0 {
		method = http.MethodPost
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(callCtx, method, endpoint, body)
	if err != nil {
		return nil, &errs.TransportUnreachable{Endpoint: endpoint, Cause: err}
	}

	hasUA := false
	for k, v := range metadata {
		req.Header.Set(k, v)
		if strings.EqualFold(k, "User-Agent") {
			hasUA = true
		}
	}
	if !hasUA {
		req.Header.Set("User-Agent", defaultUserAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if callCtx.Err() != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, errs.ErrCanceled
			}
			return nil, &errs.TransportTimeout{Endpoint: endpoint}
		}
		return nil, &errs.TransportUnreachable{Endpoint: endpoint, Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.TransportUnreachable{Endpoint: endpoint, Cause: err}
	}

	if resp.StatusCode >= 400 {
		return nil, &errs.TransportProtocolError{StatusCode: resp.StatusCode}
	}

	return data, nil
}
