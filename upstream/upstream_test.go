// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package upstream

import (
	"context"
	"testing"

	"github.com/luxfi/adxgateway/transport"
	"github.com/stretchr/testify/require"
)

func decodeString(data []byte) (string, error) {
	return string(data), nil
}

func TestUpstream_RequestMergesDefaults(t *testing.T) {
	mem := transport.NewMemoryTransport()
	mem.Put("vast://primary?lang=en&zone=123", []byte("ok"))

	u := New[string]("vast://primary", mem, decodeString,
		WithDefaultParams[string](Params{"lang": "en"}),
	)

	out, err := u.Request(context.Background(), "", Params{"zone": "123"}, nil, nil, 0)
	require.NoError(t, err)
	require.Equal(t, "ok", out)
}

func TestUpstream_RequestDecodeError(t *testing.T) {
	mem := transport.NewMemoryTransport()
	mem.Put("vast://primary", []byte("raw"))

	failingDecode := func(data []byte) (string, error) {
		return "", context.DeadlineExceeded
	}

	u := New[string]("vast://primary", mem, failingDecode)
	_, err := u.Request(context.Background(), "", nil, nil, []byte{}, 0)
	require.Error(t, err)
}

func TestAppendQuery_RawValueBypassesPercentEncoding(t *testing.T) {
	got := appendQuery("vast://primary", Params{
		"tag":  RawValue("a%2Fb+c"),
		"zone": "123",
	})
	require.Equal(t, "vast://primary?zone=123&tag=a%2Fb+c", got)
}

func TestUpstream_HealthCheck(t *testing.T) {
	mem := transport.NewMemoryTransport()
	mem.Put("vast://primary", []byte("ok"))

	u := New[string]("vast://primary", mem, decodeString)
	require.True(t, u.HealthCheck(context.Background()))

	missing := New[string]("vast://missing", mem, decodeString)
	require.False(t, missing.HealthCheck(context.Background()))
}
