// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/luxfi/adxgateway/upstream"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollectors holds the Prometheus instruments shared by every
// Metrics-wrapped Requester in a process. Construct once and pass to
// each NewMetrics call.
type MetricsCollectors struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetricsCollectors registers the gateway's request counters and
// latency histogram against reg.
func NewMetricsCollectors(reg prometheus.Registerer) *MetricsCollectors {
	c := &MetricsCollectors{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adxgateway",
			Name:      "upstream_requests_total",
			Help:      "Total upstream requests processed, by upstream and outcome.",
		}, []string{"upstream", "success"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "adxgateway",
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"upstream"}),
	}
	reg.MustRegister(c.RequestsTotal, c.RequestDuration)
	return c
}

// Metrics wraps a Requester, recording request count and latency. It sits
// innermost in the default composition order (Retry ∘ CircuitBreaker ∘
// Cache ∘ FrequencyCap ∘ Budget ∘ Metrics ∘ Base) so it observes exactly
// the calls that reach the base Upstream.
type Metrics[T any] struct {
	next       upstream.Requester[T]
	collectors *MetricsCollectors
	label      string
}

// NewMetrics wraps next, recording metrics under label (typically the
// upstream's name).
func NewMetrics[T any](next upstream.Requester[T], collectors *MetricsCollectors, label string) *Metrics[T] {
	return &Metrics[T]{next: next, collectors: collectors, label: label}
}

func (m *Metrics[T]) Request(ctx context.Context, endpoint string, params upstream.Params, headers upstream.Headers, payload []byte, timeout time.Duration) (T, error) {
	start := time.Now()
	out, err := m.next.Request(ctx, endpoint, params, headers, payload, timeout)

	m.collectors.RequestDuration.WithLabelValues(m.label).Observe(time.Since(start).Seconds())
	m.collectors.RequestsTotal.WithLabelValues(m.label, strconv.FormatBool(err == nil)).Inc()

	return out, err
}

func (m *Metrics[T]) HealthCheck(ctx context.Context) bool { return m.next.HealthCheck(ctx) }
func (m *Metrics[T]) Close() error                         { return m.next.Close() }
