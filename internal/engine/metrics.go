// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK      = "ok"
	outcomeEmpty   = "empty"
	outcomeInvalid = "invalid"
	outcomeError   = "error"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "simplekp",
		Subsystem: "engine",
		Name:      "queries_total",
		Help:      "Query graphs handled, by outcome (ok, empty, invalid, error).",
	}, []string{"outcome"})

	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "simplekp",
		Subsystem: "engine",
		Name:      "query_duration_seconds",
		Help:      "Time to answer one query graph.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
	})

	resultsPerQuery = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "simplekp",
		Subsystem: "engine",
		Name:      "results_per_query",
		Help:      "Number of results returned for a successful query.",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
	})

	catalogBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "simplekp",
		Subsystem: "engine",
		Name:      "catalog_builds_total",
		Help:      "Capability catalog computations, by kind. Collapsed concurrent calls count once.",
	}, []string{"kind"})
)
