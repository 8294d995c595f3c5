// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package upstream wraps a transport.Transport with typed encode/decode,
// default parameters and headers, producing a decoded value of type T
// per request.
package upstream

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/luxfi/adxgateway/errs"
	"github.com/luxfi/adxgateway/transport"
)

// Encoder turns a structured payload into wire bytes. Returning
// (nil, nil) passes the raw []byte payload through unchanged.
type Encoder func(payload any) ([]byte, error)

// Decoder turns wire bytes into a decoded value of type T. It must be
// total on well-formed input.
type Decoder[T any] func(data []byte) (T, error)

// Params is a request parameter mapping; values are scalars, slices of
// scalars, or RawValue. Insertion order does not matter.
type Params map[string]any

// RawValue marks a Params value as already encoded: appendQuery appends
// it to the query string verbatim instead of percent-encoding it. Use
// it for values an upstream requires pre-encoded, e.g. a macro-expanded
// wrapper URL embedded as a query parameter.
type RawValue string

// Headers is a case-insensitive header mapping.
type Headers map[string]string

// Requester is the contract every middleware and *Upstream[T] satisfies,
// so middleware composes uniformly regardless of how many layers deep it
// wraps the base Upstream. endpoint is a per-call endpoint override:
// when empty, the Upstream dispatches to its own configured Endpoint;
// when set, it dispatches there instead, so a wrapper-chain hop can
// target the URL it was redirected to without rebuilding the whole
// middleware stack per hop.
type Requester[T any] interface {
	Request(ctx context.Context, endpoint string, params Params, headers Headers, payload []byte, timeout time.Duration) (T, error)
	HealthCheck(ctx context.Context) bool
	Close() error
}

// Upstream exposes a single typed request operation over a shared
// Transport, merging caller-supplied parameters/headers over configured
// defaults.
type Upstream[T any] struct {
	Endpoint string

	transport    transport.Transport
	ownsTransport bool
	encode       Encoder
	decode       Decoder[T]

	defaultParams  Params
	defaultHeaders Headers
	defaultTimeout time.Duration
}

// Option configures an Upstream at construction.
type Option[T any] func(*Upstream[T])

// WithDefaultParams sets parameters merged under any request-supplied
// ones.
func WithDefaultParams[T any](p Params) Option[T] {
	return func(u *Upstream[T]) { u.defaultParams = p }
}

// WithDefaultHeaders sets headers merged under any request-supplied
// ones, case-insensitively.
func WithDefaultHeaders[T any](h Headers) Option[T] {
	return func(u *Upstream[T]) { u.defaultHeaders = h }
}

// WithDefaultTimeout sets the timeout used when a request does not
// supply its own.
func WithDefaultTimeout[T any](d time.Duration) Option[T] {
	return func(u *Upstream[T]) { u.defaultTimeout = d }
}

// WithEncoder sets the request payload encoder.
func WithEncoder[T any](enc Encoder) Option[T] {
	return func(u *Upstream[T]) { u.encode = enc }
}

// OwnsTransport marks the Upstream as the exclusive owner of its
// Transport, so Close cascades to it.
func OwnsTransport[T any](owns bool) Option[T] {
	return func(u *Upstream[T]) { u.ownsTransport = owns }
}

// New constructs an Upstream over t, decoding responses with decode.
func New[T any](endpoint string, t transport.Transport, decode Decoder[T], opts ...Option[T]) *Upstream[T] {
	u := &Upstream[T]{
		Endpoint:       endpoint,
		transport:      t,
		decode:         decode,
		defaultParams:  Params{},
		defaultHeaders: Headers{},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Request encodes params/payload, dispatches exactly one Transport.Send,
// and decodes the response into T. Request parameters override defaults;
// request headers override default headers key-by-key,
// case-insensitively. Effective timeout is the explicit timeout if
// non-zero, else the configured default. A non-empty endpointOverride
// replaces u.Endpoint as the dispatch target for this call only; the
// Upstream's own Endpoint is left untouched.
func (u *Upstream[T]) Request(ctx context.Context, endpointOverride string, params Params, headers Headers, payload []byte, timeout time.Duration) (T, error) {
	var zero T

	effParams := mergeParams(u.defaultParams, params)
	effHeaders := mergeHeaders(u.defaultHeaders, headers)

	effTimeout := timeout
	if effTimeout <= 0 {
		effTimeout = u.defaultTimeout
	}

	body := payload
	if u.encode != nil && body == nil && len(effParams) > 0 {
		encoded, err := u.encode(effParams)
		if err != nil {
			return zero, &errs.UpstreamError{Detail: "encode: " + err.Error()}
		}
		body = encoded
	}

	endpoint := u.Endpoint
	if endpointOverride != "" {
		endpoint = endpointOverride
	}
	if len(effParams) > 0 && u.encode == nil {
		endpoint = appendQuery(endpoint, effParams)
	}

	raw, err := u.transport.Send(ctx, endpoint, body, effHeaders, effTimeout)
	if err != nil {
		return zero, err
	}

	decoded, err := u.decode(raw)
	if err != nil {
		return zero, &errs.DecodeError{Cause: err}
	}
	return decoded, nil
}

// HealthCheck issues one lightweight GET-style Send against Endpoint
// with a short timeout, returning true unless the transport errors.
func (u *Upstream[T]) HealthCheck(ctx context.Context) bool {
	const probeTimeout = 2 * time.Second
	_, err := u.transport.Send(ctx, u.Endpoint, nil, nil, probeTimeout)
	return err == nil
}

// Close releases the underlying Transport if this Upstream owns it
// exclusively.
func (u *Upstream[T]) Close() error {
	if u.ownsTransport {
		return u.transport.Close()
	}
	return nil
}

func mergeParams(defaults, override Params) Params {
	if len(defaults) == 0 {
		return override
	}
	out := make(Params, len(defaults)+len(override))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func mergeHeaders(defaults, override Headers) Headers {
	out := make(Headers, len(defaults)+len(override))
	for k, v := range defaults {
		out[strings.ToLower(k)] = v
	}
	for k, v := range override {
		out[strings.ToLower(k)] = v
	}
	return out
}

// appendQuery sorts params by key and appends them to endpoint's query
// string. RawValue params bypass url.Values' percent-encoding entirely
// and are appended verbatim after all encoded params, in key order
// among themselves.
func appendQuery(endpoint string, params Params) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.Query()

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var raw []string
	for _, k := range keys {
		switch v := params[k].(type) {
		case RawValue:
			raw = append(raw, k+"="+string(v))
		case []string:
			for _, item := range v {
				q.Add(k, item)
			}
		default:
			q.Set(k, toString(v))
		}
	}

	encoded := q.Encode()
	if len(raw) > 0 {
		if encoded != "" {
			encoded += "&"
		}
		encoded += strings.Join(raw, "&")
	}
	u.RawQuery = encoded
	return u.String()
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
