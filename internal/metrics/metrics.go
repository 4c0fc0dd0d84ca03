// Package metrics exposes Prometheus gauges and histograms for the engine:
// workflow counts by status, per-node execution duration, and queue depth.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkflowsTotal counts dispatched workflows by type and terminal status.
	WorkflowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vaultforge",
		Name:      "workflows_total",
		Help:      "Total workflows dispatched, labeled by type and terminal status.",
	}, []string{"type", "status"})

	// NodeDuration observes how long each node takes to execute.
	NodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vaultforge",
		Name:      "node_duration_seconds",
		Help:      "Node execution duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"node"})

	// QueueDepth reports the number of tasks waiting in the async queue.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vaultforge",
		Name:      "queue_depth",
		Help:      "Number of tasks currently waiting in the async queue.",
	})
)
