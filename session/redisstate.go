// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/luxfi/adxgateway/errs"
)

// RedisBackend is the production Backend, consuming a Redis instance
// rather than reimplementing one. Field-level increments use HINCRBY so
// counters are atomic server-side with no client read-modify-write.
// Get, Set, Increment and Delete failures are surfaced as
// *errs.StateBackendError so middleware can apply its
// fail-open/fail-closed policy without knowing the store; Close returns
// the client's error unwrapped.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend wraps an existing *redis.Client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

// NewRedisBackendFromAddr dials a Redis client at addr (host:port).
func NewRedisBackendFromAddr(addr string) *RedisBackend {
	return &RedisBackend{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &errs.StateBackendError{Cause: err}
	}
	return data, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return &errs.StateBackendError{Cause: err}
	}
	return nil
}

func (r *RedisBackend) Increment(ctx context.Context, key, field string, delta int64) (int64, error) {
	val, err := r.client.HIncrBy(ctx, key, field, delta).Result()
	if err != nil {
		return 0, &errs.StateBackendError{Cause: err}
	}
	return val, nil
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return &errs.StateBackendError{Cause: err}
	}
	return nil
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}
