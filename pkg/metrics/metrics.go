package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hadbit_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// TreeMutations counts ordered-tree mutations by kind (create|move_up|move_down|reparent|reorder).
	TreeMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hadbit_tree_mutations_total",
			Help: "Total number of habit tree mutations",
		},
		[]string{"kind"},
	)

	// MigrationRuns counts legacy migration executions by result (success|failure).
	MigrationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hadbit_migration_runs_total",
			Help: "Total number of legacy data migration runs",
		},
		[]string{"result"},
	)

	// IntegrityAnomalies tracks anomalies found by the tree integrity sweep
	// (duplicate_order|orphan_child).
	IntegrityAnomalies = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hadbit_tree_integrity_anomalies",
			Help: "Anomalies detected during the last tree integrity sweep",
		},
		[]string{"kind"},
	)
)
