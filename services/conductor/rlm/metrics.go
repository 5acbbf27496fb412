// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rlm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Retrieval and Learning Memory
// =============================================================================

var (
	// successScores tracks the distribution of computed success scores.
	successScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "conductor",
		Subsystem: "rlm",
		Name:      "success_score",
		Help:      "Distribution of interaction success scores",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})

	// sessionsEvicted counts tracked sessions evicted by the TTL sweeper
	// without ever completing or being abandoned.
	sessionsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "conductor",
		Subsystem: "rlm",
		Name:      "sessions_evicted_total",
		Help:      "Tracked sessions evicted by TTL without completion",
	})

	// persistDropped counts persistence jobs dropped because the bounded
	// queue was full.
	persistDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "conductor",
		Subsystem: "rlm",
		Name:      "persist_dropped_total",
		Help:      "Learning rows dropped due to a full persistence queue",
	})

	// persistFailures counts best-effort persistence attempts that failed.
	// Labels: tier ("warm", "cold")
	persistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "conductor",
		Subsystem: "rlm",
		Name:      "persist_failures_total",
		Help:      "Failed best-effort learning persistence attempts",
	}, []string{"tier"})

	// retrievalSliceFailures counts retrieval slices that errored and were
	// omitted from the merged result.
	// Labels: slice ("knowledge", "strategy", "episodic")
	retrievalSliceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "conductor",
		Subsystem: "rlm",
		Name:      "retrieval_slice_failures_total",
		Help:      "Retrieval slices omitted due to store errors",
	}, []string{"slice"})
)
