// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newOpsRouter sets up the operational surface (health and Prometheus
// metrics), kept separate from the ad-serving router so it can bind to
// an address that isn't exposed to the public internet.
func newOpsRouter(registerer *prometheus.Registry) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", handleHealth).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(registerer, promhttp.HandlerOpts{})).Methods("GET")
	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": Version})
}
