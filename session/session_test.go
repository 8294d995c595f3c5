// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestContext_WithMetadataIsImmutable(t *testing.T) {
	original := Context{
		SessionID: "s1",
		Metadata:  map[string]any{"a": 1},
	}

	updated := original.WithMetadata(map[string]any{"b": 2})

	require.Equal(t, map[string]any{"a": 1}, original.Metadata)
	require.Equal(t, map[string]any{"a": 1, "b": 2}, updated.Metadata)
	require.Equal(t, original.SessionID, updated.SessionID)
}

func TestBudget_Remaining(t *testing.T) {
	b := Budget{
		Total: decimal.NewFromFloat(100),
		Spent: decimal.NewFromFloat(40),
	}
	require.True(t, b.Remaining().Equal(decimal.NewFromFloat(60)))
}

func TestMemBackend_IncrementAccumulatesPerKey(t *testing.T) {
	backend := NewMemBackend()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := backend.Increment(ctx, "freq:user1", "hourly_count", 1)
		require.NoError(t, err)
	}

	val, err := backend.Increment(ctx, "freq:user1", "hourly_count", 0)
	require.NoError(t, err)
	require.Equal(t, int64(5), val)
}

func TestMemBackend_SetGetExpiry(t *testing.T) {
	backend := NewMemBackend()
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, found, err := backend.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, found)
}

func TestRedisBackend_IncrementAndGet(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	backend := NewRedisBackend(client)
	defer backend.Close()

	ctx := context.Background()
	val, err := backend.Increment(ctx, "freq:user1", "daily_count", 3)
	require.NoError(t, err)
	require.Equal(t, int64(3), val)

	require.NoError(t, backend.Set(ctx, "session:abc", []byte("payload"), time.Minute))
	data, found, err := backend.Get(ctx, "session:abc")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("payload"), data)
}
