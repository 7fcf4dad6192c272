// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

package listener

import (
	"github.com/datalift/policysync/pkg/debug"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// EventsReceivedTotal tracks notifications received by source.
	EventsReceivedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "policysync",
		Subsystem: "listener",
		Name:      "events_received_total",
		Help:      "Total number of notifications received",
	}, []string{"source"}) // source: "sqs", "kafka", "redis", "webhook"

	// EventsRequeuedTotal tracks notifications left for redelivery after
	// a server-side failure.
	EventsRequeuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "policysync",
		Subsystem: "listener",
		Name:      "events_requeued_total",
		Help:      "Total number of notifications left for redelivery",
	}, []string{"source"})

	// SourceErrorsTotal tracks transport errors by source.
	SourceErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "policysync",
		Subsystem: "listener",
		Name:      "source_errors_total",
		Help:      "Total number of event source transport errors",
	}, []string{"source"})
)

func init() {
	debug.Registry().MustRegister(
		EventsReceivedTotal,
		EventsRequeuedTotal,
		SourceErrorsTotal,
	)
}
