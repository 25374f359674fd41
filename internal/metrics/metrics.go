// Package metrics registers the server's Prometheus collectors.
// Grounded on PayRpc-Bitcoin_Sprint_Production_Final_2/internal/relay/dedupe.go
// and solana_dedup.go: package-scope promauto vars, updated inline from
// the hot path rather than scraped/computed on demand.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IndexCount tracks live key count per index backend.
	IndexCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kvwebserver_index_count",
		Help: "Number of live keys held by an index backend",
	}, []string{"index"})

	// HashBucketLen tracks chain length per hash bucket, the detail the
	// JSON stats shape deliberately omits (see SPEC_FULL.md).
	HashBucketLen = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kvwebserver_hash_bucket_chain_length",
		Help:    "Chain length observed per hash bucket on each snapshot",
		Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
	}, []string{})

	// QueueDepth is the number of tasks currently queued for the worker
	// pool (producer + consumer FIFO combined).
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kvwebserver_queue_depth",
		Help: "Work queue depth across both the producer and consumer FIFOs",
	})

	// WorkerBusy counts workers currently executing a task.
	WorkerBusy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kvwebserver_worker_busy",
		Help: "Number of worker-pool goroutines currently running a task",
	})

	// LiveConnections counts connections currently tracked by the timer
	// wheel (accepted and not yet reaped or closed by the client).
	LiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kvwebserver_live_connections",
		Help: "Connections currently open and tracked by the idle-timeout wheel",
	})

	// ConnectionsReaped counts connections closed by the idle timer.
	ConnectionsReaped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kvwebserver_connections_reaped_total",
		Help: "Connections force-closed for exceeding the idle timeout",
	})

	// CommandsTotal counts dispatched commands by name and resulting
	// status, so operators can see hot commands without tailing logs.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kvwebserver_commands_total",
		Help: "Commands dispatched, labeled by command name and result status",
	}, []string{"command", "status"})
)
