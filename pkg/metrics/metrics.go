// Package metrics wraps the engine's Prometheus instrumentation: counters
// and gauges built with promauto, held and updated by pkg/engine; pkg/httpapi
// exposes them through the default registry's /metrics handler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	HeapResidentNodes prometheus.Gauge
	HeapMemoryUsed    prometheus.Gauge
	HeapFlushTotal    prometheus.Counter
	HeapEvictedTotal  prometheus.Counter

	TxnCommitTotal    *prometheus.CounterVec
	TxnCommitDuration prometheus.Histogram
	BranchSplitTotal  prometheus.Counter
}

// New creates and registers the engine's collectors against the default
// registry.
func New() *Metrics {
	return &Metrics{
		HeapResidentNodes: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "freyjatree_heap_resident_nodes",
			Help: "Number of nodes currently staged in the node heap.",
		}),
		HeapMemoryUsed: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "freyjatree_heap_memory_used_bytes",
			Help: "Estimated memory used by heap-resident nodes, in bytes.",
		}),
		HeapFlushTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "freyjatree_heap_flush_total",
			Help: "Total number of heap flush operations (evictions and commits).",
		}),
		HeapEvictedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "freyjatree_heap_evicted_nodes_total",
			Help: "Total number of nodes evicted from the node heap.",
		}),
		TxnCommitTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "freyjatree_txn_commit_total",
			Help: "Total number of transaction commits, by outcome.",
		}, []string{"outcome"}),
		TxnCommitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "freyjatree_txn_commit_duration_seconds",
			Help:    "Transaction commit latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		BranchSplitTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "freyjatree_branch_split_total",
			Help: "Total number of branch split operations performed.",
		}),
	}
}
