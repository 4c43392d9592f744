// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package telemetry provides Prometheus metrics and OpenTelemetry tracing
// for the CareLink client. Metrics are registered with the default registry
// and exposed only when the debug listener is enabled in config.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request metrics, incremented by the retrying client.
var (
	RequestAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carelink_request_attempts_total",
		Help: "HTTP request attempts, including retries.",
	}, []string{"method"})

	RequestRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carelink_request_retries_total",
		Help: "Retry attempts after a failed request.",
	})

	RequestFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carelink_request_failures_total",
		Help: "Requests that failed after exhausting the retry budget.",
	})
)

// Persistence metrics, incremented by the persistence syncer.
var (
	Saves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carelink_saves_total",
		Help: "Save operations by result (ok, failed).",
	}, []string{"result"})

	BackupsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carelink_backups_written_total",
		Help: "Local backup records written after failed saves.",
	})
)

// Session metrics, incremented by the session controller.
var (
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carelink_patient_cache_hits_total",
		Help: "Patient loads served from the TTL cache.",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carelink_patient_cache_misses_total",
		Help: "Patient loads that went to the network.",
	})

	StreamEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carelink_stream_events_total",
		Help: "Action stream events by type.",
	}, []string{"type"})
)

// ServeMetrics starts a debug HTTP listener exposing /metrics. Returns a
// shutdown function. Listen errors after startup are dropped; this is a
// diagnostic surface, not a product one.
func ServeMetrics(listen string) func(context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		_ = srv.ListenAndServe()
	}()

	return srv.Shutdown
}
