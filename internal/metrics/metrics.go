// Package metrics defines the Prometheus collectors exposed by httpcored:
// queue depth/throughput, header-table live/resize counts, parser terminal
// outcomes, and worker-pool connection gauges.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// QueueDepth tracks the current number of items queued in the BQ.
	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "httpcored",
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Current number of connections queued for a worker.",
	})

	QueueSendTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "httpcored",
		Subsystem: "queue",
		Name:      "send_total",
		Help:      "Total connections enqueued onto the bounded queue.",
	})

	QueueRecvTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "httpcored",
		Subsystem: "queue",
		Name:      "recv_total",
		Help:      "Total connections dequeued by a worker.",
	})

	// TableLiveEntries tracks live header-table entries across the most
	// recently completed request, sampled by the reporter.
	TableLiveEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "httpcored",
		Subsystem: "table",
		Name:      "live_entries",
		Help:      "Live entries in the most recently sampled header table.",
	})

	TableResizeTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "httpcored",
		Subsystem: "table",
		Name:      "resize_total",
		Help:      "Total requests whose header table grew past its initial capacity.",
	})

	// ParserOutcomeTotal is labeled by terminal state: ok, invalid, err.
	ParserOutcomeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "httpcored",
		Subsystem: "parser",
		Name:      "outcome_total",
		Help:      "Terminal parse outcomes, labeled by status.",
	}, []string{"status"})

	ConnectionsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "httpcored",
		Subsystem: "worker",
		Name:      "connections_accepted_total",
		Help:      "Total TCP connections accepted.",
	})

	ConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "httpcored",
		Subsystem: "worker",
		Name:      "connections_active",
		Help:      "Connections currently being served by a worker.",
	})

	ConnectionsClosed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "httpcored",
		Subsystem: "worker",
		Name:      "connections_closed_total",
		Help:      "Total connections closed after a terminal parse outcome.",
	})
)

// Registry is the collector registry httpcored serves on /metrics. A
// package-level registry (rather than the global default) keeps tests
// that construct a Server from scratch free of cross-test collector
// registration panics.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		QueueDepth,
		QueueSendTotal,
		QueueRecvTotal,
		TableLiveEntries,
		TableResizeTotal,
		ParserOutcomeTotal,
		ConnectionsAccepted,
		ConnectionsActive,
		ConnectionsClosed,
	)
}
