// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package session

import (
	"context"
	"sync"
	"time"
)

type memRecord struct {
	fields    map[string]int64
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (r *memRecord) expired(now time.Time) bool {
	return !r.expiresAt.IsZero() && now.After(r.expiresAt)
}

// MemBackend is an in-process Backend for tests and single-process
// deployments. Entries expire lazily: a key is only actually evicted the
// next time it is looked up past its TTL.
type MemBackend struct {
	mu   sync.Mutex
	data map[string]*memRecord
}

// NewMemBackend constructs an empty MemBackend.
func NewMemBackend() *MemBackend {
	return &MemBackend{data: make(map[string]*memRecord)}
}

func (m *MemBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.data[key]
	if !ok || rec.expired(time.Now()) {
		delete(m.data, key)
		return nil, false, nil
	}
	return rec.value, true, nil
}

func (m *MemBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.data[key]
	if !ok {
		rec = &memRecord{fields: make(map[string]int64)}
		m.data[key] = rec
	}
	rec.value = value
	if ttl > 0 {
		rec.expiresAt = time.Now().Add(ttl)
	}
	return nil
}

func (m *MemBackend) Increment(_ context.Context, key, field string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.data[key]
	if !ok || rec.expired(time.Now()) {
		rec = &memRecord{fields: make(map[string]int64)}
		m.data[key] = rec
	}
	rec.fields[field] += delta
	return rec.fields[field], nil
}

func (m *MemBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemBackend) Close() error { return nil }
