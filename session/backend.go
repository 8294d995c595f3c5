// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package session

import (
	"context"
	"time"
)

// Backend is the pluggable key-value store persisting SessionState,
// Budget and frequency-cap records. All operations are concurrency-safe
// and must be implementable by a remote store; Redis and the like are
// consumed, never reimplemented by this package.
//
// Key layout:
//
//	freq:{user_id}:{campaign_id?}  -> frequency cap record
//	budget:{campaign_id}          -> {total, spent, currency}
//	session:{session_id}          -> SessionState
//	cache:{fingerprint}           -> cached AdResponse
//
// Only the freq: keys (middleware.FrequencyCap) and cache: keys
// (orchestrator) are written by this module; no component here stores
// budget: or session: records in a Backend.
type Backend interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Increment atomically adds delta to field within key's hash and
	// returns the new value. Implementations must not perform a
	// client-side read-modify-write.
	Increment(ctx context.Context, key, field string, delta int64) (int64, error)
	Delete(ctx context.Context, key string) error
	Close() error
}
