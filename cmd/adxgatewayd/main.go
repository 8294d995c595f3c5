// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command adxgatewayd runs the upstream ad-serving gateway: it wires
// transport, upstream, middleware, protocol and resolver packages into
// two HTTP surfaces, a gin ad-serving router (VAST and OpenRTB) and a
// gorilla/mux ops router (health, Prometheus metrics), and serves both
// until a termination signal arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/luxfi/adxgateway/internal/gwlog"
	"github.com/luxfi/adxgateway/middleware"
	"github.com/luxfi/adxgateway/orchestrator"
	"github.com/luxfi/adxgateway/protocol/openrtb"
	"github.com/luxfi/adxgateway/protocol/vast"
	"github.com/luxfi/adxgateway/protocol/vasthandler"
	"github.com/luxfi/adxgateway/resolver"
	"github.com/luxfi/adxgateway/session"
	"github.com/luxfi/adxgateway/transport"
	"github.com/luxfi/adxgateway/upstream"
)

func main() {
	flag.Parse()

	logger := buildLogger()
	defer logger.Sync()

	logger.Info("starting adxgateway", zap.String("version", Version), zap.String("env", *env))

	backend := buildStateBackend(logger)
	defer backend.Close()

	registerer := prometheus.NewRegistry()
	collectors := middleware.NewMetricsCollectors(registerer)

	orch := orchestrator.New(orchestrator.Config{
		CacheEnabled: *cacheEnabled,
		CacheTTL:     *cacheTTL,
		Backend:      backend,
		Log:          logger,
	})
	orch.RegisterHandler(buildVASTHandler(backend, collectors, logger))
	orch.RegisterHandler(buildOpenRTBHandler(collectors))

	httpSrv := &http.Server{Addr: *httpAddr, Handler: newAdServingRouter(orch, logger)}
	opsSrv := &http.Server{Addr: *opsAddr, Handler: newOpsRouter(registerer)}

	go func() {
		logger.Info("ad-serving HTTP listening", zap.String("addr", *httpAddr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ad-serving server error", zap.Error(err))
		}
	}()
	go func() {
		logger.Info("ops HTTP listening", zap.String("addr", *opsAddr))
		if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Warn("ad-serving server shutdown error", zap.Error(err))
	}
	if err := opsSrv.Shutdown(ctx); err != nil {
		logger.Warn("ops server shutdown error", zap.Error(err))
	}
	logger.Info("stopped")
}

func buildLogger() *zap.Logger {
	if *env == "production" {
		return gwlog.New(*logLevel)
	}
	return gwlog.NewDevelopment(*logLevel)
}

func buildStateBackend(logger *zap.Logger) session.Backend {
	if *redisAddr == "" {
		return session.NewMemBackend()
	}
	logger.Info("using redis state backend", zap.String("addr", *redisAddr))
	return session.NewRedisBackendFromAddr(*redisAddr)
}

// buildVASTHandler wraps the primary and fallback VAST upstreams with
// the default middleware chain (Retry ∘ CircuitBreaker ∘ Cache ∘
// FrequencyCap ∘ Budget ∘ Metrics ∘ Base) and adapts the result into a
// vasthandler.Handler.
func buildVASTHandler(backend session.Backend, collectors *middleware.MetricsCollectors, logger *zap.Logger) *vasthandler.Handler {
	primary := wrapVASTUpstream("primary", *vastPrimary, backend, collectors, logger)

	var fallbacks []resolver.Upstream
	for i, endpoint := range fallbackEndpoints() {
		name := fmt.Sprintf("fallback-%d", i)
		fallbacks = append(fallbacks, wrapVASTUpstream(name, endpoint, backend, collectors, logger))
	}

	cfg := resolver.Config{
		MaxDepth:             *maxWrapperDepth,
		TotalTimeout:         *totalTimeout,
		PerHopTimeout:        *perHopTimeout,
		EnableFallbacks:      len(fallbacks) > 0,
		Strategy:             resolver.Recursive,
		SelectionStrategy:    vast.HighestBitrate,
		CollectTrackingURLs:  true,
		CollectErrorURLs:     true,
		ValidateEachResponse: true,
		Log:                  logger,
	}

	return vasthandler.New(primary, fallbacks, cfg, nil)
}

func wrapVASTUpstream(name, endpoint string, backend session.Backend, collectors *middleware.MetricsCollectors, logger *zap.Logger) resolver.Upstream {
	base := upstream.New[string](endpoint, transport.NewHTTPTransport(), vast.DecodeRaw,
		upstream.WithDefaultTimeout[string](*perHopTimeout))

	var req upstream.Requester[string] = base
	req = middleware.NewMetrics[string](req, collectors, name)
	req = wrapBudget[string](req)
	freqCtx := func() session.Context {
		sc := session.Context{}
		if *budgetCampaignID != "" {
			sc = sc.WithMetadata(map[string]any{"campaign_id": *budgetCampaignID})
		}
		return sc
	}
	req = middleware.NewFrequencyCap[string](req, backend, freqCtx,
		middleware.FrequencyCapConfig{
			HourlyLimit:   *hourlyFreqCap,
			DailyLimit:    *dailyFreqCap,
			CampaignLimit: *campaignFreqCap,
		}, logger)
	req = middleware.NewCache[string](req, middleware.CacheConfig{TTL: *cacheTTL})
	req = middleware.NewCircuitBreaker[string](req, middleware.CircuitBreakerConfig{
		FailureThreshold: *circuitThreshold,
		RecoveryInterval: *circuitRecovery,
	})
	req = middleware.NewRetry[string](req, middleware.RetryConfig{
		MaxAttempts: *retryMaxAttempts,
		BaseDelay:   50 * time.Millisecond,
		Factor:      2.0,
		Jitter:      25 * time.Millisecond,
	})

	vastReq := vast.NewRequester(req, true, vast.MacroContext{})
	return &resolver.NamedUpstream{UpstreamName: name, EndpointURL: endpoint, Req: vastReq}
}

func buildOpenRTBHandler(collectors *middleware.MetricsCollectors) *openrtb.Handler {
	base := upstream.New[*openrtb2.BidResponse](*openrtbDSP, transport.NewHTTPTransport(), openrtb.DecodeBidResponse,
		upstream.WithDefaultTimeout[*openrtb2.BidResponse](openrtb.DefaultTimeout))

	var req upstream.Requester[*openrtb2.BidResponse] = base
	req = middleware.NewMetrics[*openrtb2.BidResponse](req, collectors, "openrtb")
	req = middleware.NewCircuitBreaker[*openrtb2.BidResponse](req, middleware.CircuitBreakerConfig{
		FailureThreshold: *circuitThreshold,
		RecoveryInterval: *circuitRecovery,
	})
	req = middleware.NewRetry[*openrtb2.BidResponse](req, middleware.RetryConfig{
		MaxAttempts: *retryMaxAttempts,
		BaseDelay:   50 * time.Millisecond,
		Factor:      2.0,
	})

	return openrtb.New(openrtb.NewRequester(req))
}

// wrapBudget wraps req with budget enforcement when --budget-campaign-id
// is set; otherwise it passes req through unchanged, since Budget needs
// a concrete campaign/cost fixed at wrap time.
func wrapBudget[T any](req upstream.Requester[T]) upstream.Requester[T] {
	if *budgetCampaignID == "" {
		return req
	}
	total, err := decimal.NewFromString(*budgetTotal)
	if err != nil {
		total = decimal.Zero
	}
	cost, err := decimal.NewFromString(*budgetCostPerAd)
	if err != nil {
		cost = decimal.Zero
	}
	store := middleware.NewMemBudgetStore()
	store.SetBudget(*budgetCampaignID, total, "USD")
	return middleware.NewBudget[T](req, store, *budgetCampaignID, cost)
}
