// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"github.com/datalift/policysync/pkg/debug"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RunsTotal tracks pipeline invocations by outcome.
	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "policysync",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Total number of pipeline invocations",
	}, []string{"outcome"}) // outcome: "done", "noop", "rejected", "failed"

	// StageFailuresTotal tracks failures by pipeline stage.
	StageFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "policysync",
		Subsystem: "pipeline",
		Name:      "stage_failures_total",
		Help:      "Total number of failures by pipeline stage",
	}, []string{"stage"})

	// RunDuration tracks end-to-end invocation latency.
	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "policysync",
		Subsystem: "pipeline",
		Name:      "run_duration_seconds",
		Help:      "Time spent processing one upload notification",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	// CrawlErrorsTotal tracks best-effort catalog crawl failures.
	CrawlErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "policysync",
		Subsystem: "pipeline",
		Name:      "crawl_errors_total",
		Help:      "Total number of failed catalog crawl triggers",
	})
)

func init() {
	debug.Registry().MustRegister(
		RunsTotal,
		StageFailuresTotal,
		RunDuration,
		CrawlErrorsTotal,
	)
}
