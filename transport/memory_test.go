// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryTransport_SendHitAndMiss(t *testing.T) {
	tr := NewMemoryTransport()
	tr.Put("vast://primary", []byte("<VAST version=\"4.2\"></VAST>"))

	ctx := context.Background()

	t.Run("hit", func(t *testing.T) {
		data, err := tr.Send(ctx, "vast://primary", nil, nil, 0)
		require.NoError(t, err)
		require.Equal(t, []byte("<VAST version=\"4.2\"></VAST>"), data)
	})

	t.Run("miss", func(t *testing.T) {
		_, err := tr.Send(ctx, "vast://missing", nil, nil, 0)
		require.Error(t, err)
	})

	require.Equal(t, Kind("memory"), tr.Kind())
	require.NoError(t, tr.Close())
}

func TestMemoryTransport_SendCanceled(t *testing.T) {
	tr := NewMemoryTransport()
	tr.Put("vast://primary", []byte("x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Send(ctx, "vast://primary", nil, nil, 0)
	require.Error(t, err)
}
