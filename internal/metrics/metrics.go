package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Pipeline metrics
	// ============================================
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_operations_total",
			Help: "Total number of batched pipeline runs by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vault_operation_duration_seconds",
			Help:    "End-to-end pipeline duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)

	ApprovalsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vault_approvals_issued_total",
		Help: "Total number of token approval transactions issued",
	})

	// ============================================
	// Proof metrics
	// ============================================
	ProofDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vault_proof_duration_seconds",
		Help:    "Zero-knowledge proof generation and verification duration",
		Buckets: []float64{1, 2.5, 5, 10, 30, 60, 120},
	})

	ProofFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_proof_failures_total",
			Help: "Proof failures by class (incorrect_password vs infrastructure)",
		},
		[]string{"class"},
	)

	// ============================================
	// Chain metrics
	// ============================================
	ChainSwitchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vault_chain_switches_total",
		Help: "Total number of network toggles",
	})

	CurrentChainID = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vault_current_chain_id",
		Help: "Chain id of the active network",
	})

	// ============================================
	// HTTP metrics
	// ============================================
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vault_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
