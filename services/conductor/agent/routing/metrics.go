// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Agent Routing
// =============================================================================

var (
	// routingSelections counts agent selections by the router.
	// Labels: agent (selected agent id), task (resolved task type)
	routingSelections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "conductor",
		Subsystem: "routing",
		Name:      "selections_total",
		Help:      "Total agent selections by router",
	}, []string{"agent", "task"})

	// routingConfidence tracks the distribution of routing confidence scores.
	routingConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "conductor",
		Subsystem: "routing",
		Name:      "confidence",
		Help:      "Distribution of routing confidence scores",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1.0},
	})

	// routingLearnedInfluence counts decisions influenced by learned
	// per-task success data versus static capability data only.
	// Labels: influenced ("true", "false")
	routingLearnedInfluence = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "conductor",
		Subsystem: "routing",
		Name:      "learned_influence_total",
		Help:      "Routing decisions influenced by learned success data",
	}, []string{"influenced"})
)
