// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package middleware

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/luxfi/adxgateway/upstream"
	"golang.org/x/crypto/blake2b"
)

// CacheConfig configures the Cache middleware.
type CacheConfig struct {
	TTL time.Duration
	// HeaderWhitelist restricts which headers participate in the cache
	// key; omit to exclude all headers from the key.
	HeaderWhitelist []string
}

type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

// Cache wraps a Requester with a deterministic-key, TTL-bounded cache.
// Calls made through RequestSkipCache bypass the cache, for
// non-idempotent semantics.
type Cache[T any] struct {
	next upstream.Requester[T]
	cfg  CacheConfig

	mu    sync.Mutex
	store map[string]cacheEntry[T]
}

// NewCache wraps next with response caching per cfg.
func NewCache[T any](next upstream.Requester[T], cfg CacheConfig) *Cache[T] {
	return &Cache[T]{next: next, cfg: cfg, store: make(map[string]cacheEntry[T])}
}

// RequestSkipCache behaves like Request but bypasses the cache entirely
// for non-idempotent operations, neither reading nor writing an entry.
func (c *Cache[T]) RequestSkipCache(ctx context.Context, endpoint string, params upstream.Params, headers upstream.Headers, payload []byte, timeout time.Duration) (T, error) {
	return c.next.Request(ctx, endpoint, params, headers, payload, timeout)
}

func (c *Cache[T]) Request(ctx context.Context, endpoint string, params upstream.Params, headers upstream.Headers, payload []byte, timeout time.Duration) (T, error) {
	key := c.key(endpoint, params, headers, payload)

	c.mu.Lock()
	entry, ok := c.store[key]
	c.mu.Unlock()

	if ok && time.Now().Before(entry.expiresAt) {
		return entry.value, nil
	}

	out, err := c.next.Request(ctx, endpoint, params, headers, payload, timeout)
	if err != nil {
		var zero T
		return zero, err
	}

	c.mu.Lock()
	c.store[key] = cacheEntry[T]{value: out, expiresAt: time.Now().Add(c.cfg.TTL)}
	c.mu.Unlock()

	return out, nil
}

// key computes a deterministic hash over (endpoint, sorted params,
// whitelisted headers, payload) using blake2b, so the cache key is
// stable regardless of map iteration order.
// endpoint participates so that two calls sharing params/headers but
// targeting different endpoint overrides (e.g. distinct wrapper-chain
// hops) never collide in the store.
func (c *Cache[T]) key(endpoint string, params upstream.Params, headers upstream.Headers, payload []byte) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(endpoint))
	h.Write([]byte{0})

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(toStableString(params[k])))
		h.Write([]byte{0})
	}

	wl := make([]string, len(c.cfg.HeaderWhitelist))
	copy(wl, c.cfg.HeaderWhitelist)
	sort.Strings(wl)
	for _, name := range wl {
		if v, ok := headers[name]; ok {
			h.Write([]byte(name))
			h.Write([]byte{0})
			h.Write([]byte(v))
			h.Write([]byte{0})
		}
	}

	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

func toStableString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case upstream.RawValue:
		return string(val)
	case []string:
		sorted := append([]string(nil), val...)
		sort.Strings(sorted)
		out := ""
		for _, s := range sorted {
			out += s + ","
		}
		return out
	default:
		return fmt.Sprint(val)
	}
}

func (c *Cache[T]) HealthCheck(ctx context.Context) bool { return c.next.HealthCheck(ctx) }
func (c *Cache[T]) Close() error                         { return c.next.Close() }
