// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"flag"
	"strings"
	"time"
)

var (
	httpAddr = flag.String("http-addr", ":8080", "Ad-serving HTTP address")
	opsAddr  = flag.String("ops-addr", ":9090", "Ops (health/metrics) address")
	env      = flag.String("env", "development", "Environment (development/production)")
	logLevel = flag.String("log-level", "info", "Log level")

	vastPrimary   = flag.String("vast-primary", "http://localhost:9001/vast", "Primary VAST upstream endpoint")
	vastFallbacks = flag.String("vast-fallbacks", "", "Comma-separated fallback VAST upstream endpoints")
	openrtbDSP    = flag.String("openrtb-dsp", "http://localhost:9002/bid", "OpenRTB DSP endpoint")

	redisAddr = flag.String("redis-addr", "", "Redis address for session/frequency-cap state; empty uses an in-process backend")

	cacheEnabled = flag.Bool("cache-enabled", true, "Enable the orchestrator response cache")
	cacheTTL     = flag.Duration("cache-ttl", 30*time.Second, "Orchestrator response cache TTL")

	maxWrapperDepth   = flag.Int("max-wrapper-depth", 5, "Maximum VAST wrapper chain depth")
	totalTimeout      = flag.Duration("total-timeout", 2*time.Second, "Total VAST chain resolution timeout")
	perHopTimeout     = flag.Duration("per-hop-timeout", 500*time.Millisecond, "Per-hop VAST request timeout")
	retryMaxAttempts  = flag.Int("retry-max-attempts", 3, "Max upstream retry attempts")
	circuitThreshold  = flag.Int("circuit-failure-threshold", 5, "Consecutive failures before the circuit breaker opens")
	circuitRecovery   = flag.Duration("circuit-recovery-interval", 10*time.Second, "Circuit breaker recovery interval")
	hourlyFreqCap     = flag.Int("hourly-frequency-cap", 0, "Hourly impression cap per user (0 disables)")
	dailyFreqCap      = flag.Int("daily-frequency-cap", 0, "Daily impression cap per user (0 disables)")
	campaignFreqCap   = flag.Int("campaign-frequency-cap", 0, "Per-campaign impression cap per user (0 disables)")

	budgetCampaignID = flag.String("budget-campaign-id", "", "Campaign ID to meter against a budget; empty disables budget enforcement")
	budgetTotal      = flag.String("budget-total", "0", "Total budget for budget-campaign-id, as a decimal string")
	budgetCostPerAd  = flag.String("budget-cost-per-ad", "0", "Cost debited per successful ad, as a decimal string")

	Version = "dev"
)

func fallbackEndpoints() []string {
	if *vastFallbacks == "" {
		return nil
	}
	parts := strings.Split(*vastFallbacks, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
