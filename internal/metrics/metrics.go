package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BumpsTotal counts swap attempts by terminal status
	BumpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bump_attempts_total",
			Help: "Total number of bump swap attempts",
		},
		[]string{"status"},
	)

	// BumpDuration tracks end-to-end swap attempt time
	BumpDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bump_attempt_duration_seconds",
			Help:    "Swap attempt duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// InflightAttempts tracks the number of swap attempts currently being
	// executed by the scheduler
	InflightAttempts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bump_inflight_attempts",
			Help: "Number of bump swap attempts currently in flight",
		},
	)

	// SessionsClaimed counts sessions claimed by the scheduler
	SessionsClaimed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bump_sessions_claimed_total",
			Help: "Total number of session claims by the scheduler",
		},
	)

	// CreditDebitedWei tracks wei debited from the ledger after confirmed swaps
	CreditDebitedWei = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bump_credit_debited_wei_total",
			Help: "Total wei debited after confirmed swaps",
		},
	)

	// ErrorsTotal counts errors by component and type
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bump_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)
