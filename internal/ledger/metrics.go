package ledger

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// EntriesTotal counts appended entries by transaction type.
	EntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "timebank",
			Name:      "ledger_entries_total",
			Help:      "Total ledger entries appended by transaction type.",
		},
		[]string{"txn_type"},
	)

	// OpsTotal counts ledger operations by type.
	OpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "timebank",
			Name:      "ledger_operations_total",
			Help:      "Total ledger operations by type.",
		},
		[]string{"type"},
	)

	// OpDuration observes operation latency by type.
	OpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "timebank",
			Name:      "ledger_operation_duration_seconds",
			Help:      "Ledger operation duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(EntriesTotal, OpsTotal, OpDuration)
}

// observeOp increments the operation counter and returns a function to observe duration.
func observeOp(opType string) func() {
	OpsTotal.WithLabelValues(opType).Inc()
	start := time.Now()
	return func() {
		OpDuration.WithLabelValues(opType).Observe(time.Since(start).Seconds())
	}
}
