package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionDuration tracks the latency of ledger writes by type
	TransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "loyalty_transaction_duration_seconds",
			Help: "Duration of ledger transaction requests in seconds",
			Buckets: []float64{
				0.001, // 1ms
				0.005, // 5ms
				0.01,  // 10ms
				0.025, // 25ms
				0.05,  // 50ms
				0.1,   // 100ms
				0.25,  // 250ms
				0.5,   // 500ms
				1.0,   // 1s
				2.5,   // 2.5s
				5.0,   // 5s
			},
		},
		[]string{"type", "status"}, // transaction type, success or failure
	)

	// TierChanges counts tier transitions by direction
	TierChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_tier_changes_total",
			Help: "Number of customer tier transitions",
		},
		[]string{"from", "to"},
	)
)

// RecordTransactionDuration records the duration of a ledger write request
func RecordTransactionDuration(txType, status string, duration float64) {
	TransactionDuration.WithLabelValues(txType, status).Observe(duration)
}

// RecordTierChange records one tier transition
func RecordTierChange(from, to string) {
	TierChanges.WithLabelValues(from, to).Inc()
}
