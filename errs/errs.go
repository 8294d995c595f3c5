// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package errs defines the tagged error variants shared across the
// transport, upstream, protocol, resolver, middleware and orchestrator
// layers. Each layer only recovers the variants it understands; every
// other error propagates unchanged.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors that carry no additional data.
var (
	ErrCanceled       = errors.New("adxgateway: canceled")
	ErrVastMalformed  = errors.New("adxgateway: malformed vast document")
	ErrVastVersion    = errors.New("adxgateway: vast version mismatch")
	ErrWrapperCycle   = errors.New("adxgateway: wrapper chain cycle detected")
	ErrWrapperDepth   = errors.New("adxgateway: wrapper chain depth exceeded")
	ErrChainTimeout   = errors.New("adxgateway: chain resolution timed out")
	ErrChainExhausted = errors.New("adxgateway: all upstreams exhausted")
	ErrCircuitOpen    = errors.New("adxgateway: circuit breaker open")
	ErrNoHandler      = errors.New("adxgateway: no handler registered for protocol")
)

// Retriable is implemented by errors that mark themselves eligible for
// the Retry middleware's retriable-error classification.
type Retriable interface {
	Retriable() bool
}

// TransportTimeout indicates a Transport.Send call exceeded its deadline.
type TransportTimeout struct {
	Endpoint string
}

func (e *TransportTimeout) Error() string {
	return fmt.Sprintf("adxgateway: transport timeout dialing %q", e.Endpoint)
}

func (e *TransportTimeout) Retriable() bool { return true }

// TransportUnreachable indicates the endpoint could not be reached at
// all (DNS failure, connection refused, file not found).
type TransportUnreachable struct {
	Endpoint string
	Cause    error
}

func (e *TransportUnreachable) Error() string {
	return fmt.Sprintf("adxgateway: transport unreachable %q: %v", e.Endpoint, e.Cause)
}

func (e *TransportUnreachable) Unwrap() error { return e.Cause }

func (e *TransportUnreachable) Retriable() bool { return true }

// TransportProtocolError wraps a non-2xx HTTP status or equivalent
// protocol-level failure. 5xx is retriable; 4xx is not.
type TransportProtocolError struct {
	StatusCode int
}

func (e *TransportProtocolError) Error() string {
	return fmt.Sprintf("adxgateway: transport protocol error, status %d", e.StatusCode)
}

func (e *TransportProtocolError) Retriable() bool {
	return e.StatusCode >= 500
}

// DecodeError wraps a decoder failure on otherwise well-formed bytes.
type DecodeError struct {
	Cause error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("adxgateway: decode error: %v", e.Cause) }
func (e *DecodeError) Unwrap() error { return e.Cause }

// UpstreamError wraps an application-level failure surfaced by an
// Upstream that isn't a transport or decode failure.
type UpstreamError struct {
	Detail string
}

func (e *UpstreamError) Error() string { return "adxgateway: upstream error: " + e.Detail }

// VastUnknownElement reports an element the parser did not recognize.
// It is never fatal: parsing ignores the element and the resolver logs
// this at debug level.
type VastUnknownElement struct {
	Element string
}

func (e *VastUnknownElement) Error() string {
	return "adxgateway: unknown vast element <" + e.Element + ">"
}

// FrequencyCapExceeded identifies which window (hourly/daily/weekly/
// per-campaign) tripped the cap.
type FrequencyCapExceeded struct {
	Which string
}

func (e *FrequencyCapExceeded) Error() string {
	return "adxgateway: frequency cap exceeded: " + e.Which
}

// BudgetExceeded identifies the campaign whose remaining budget was
// insufficient for the requested cost.
type BudgetExceeded struct {
	CampaignID string
}

func (e *BudgetExceeded) Error() string {
	return "adxgateway: budget exceeded for campaign " + e.CampaignID
}

// StateBackendError wraps any failure surfaced by a StateBackend
// implementation (network error, serialization failure, etc).
type StateBackendError struct {
	Cause error
}

func (e *StateBackendError) Error() string {
	return fmt.Sprintf("adxgateway: state backend error: %v", e.Cause)
}

func (e *StateBackendError) Unwrap() error { return e.Cause }

// InvalidAdRequest carries the reason a request failed orchestrator
// validation.
type InvalidAdRequest struct {
	Reason string
}

func (e *InvalidAdRequest) Error() string { return "adxgateway: invalid ad request: " + e.Reason }

// IsRetriable reports whether err opts into retry classification, either
// by implementing Retriable or by being a TransportTimeout/
// TransportUnreachable/TransportProtocolError(5xx).
func IsRetriable(err error) bool {
	var r Retriable
	if errors.As(err, &r) {
		return r.Retriable()
	}
	return false
}
