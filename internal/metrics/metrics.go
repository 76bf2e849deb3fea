package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "payee_ledger"

var (
	// TransactionsPosted counts new ledger rows; idempotent replays are counted as duplicates.
	TransactionsPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_posted_total",
			Help:      "Ledger postings by kind and result (created, duplicate, rejected)",
		},
		[]string{"kind", "result"},
	)

	LedgerConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_conflicts_total",
			Help:      "Idempotency keys reused with a different payload",
		},
	)

	BalanceRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_version_retries_total",
			Help:      "Optimistic version conflicts retried by the balance aggregator",
		},
	)

	WithdrawalTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "withdrawal_transitions_total",
			Help:      "Withdrawal status transitions by target status",
		},
		[]string{"status"},
	)

	CommissionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commission_transitions_total",
			Help:      "Commission records created or moved to a status",
		},
		[]string{"status"},
	)

	ReconciliationAnomalies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliation_anomalies_total",
			Help:      "Drift found by reconciliation by type",
		},
		[]string{"type"},
	)

	ReconciliationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconciliation_duration_seconds",
			Help:      "Duration of a full reconciliation pass",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Payout gateway round-trip time",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"operation", "outcome"},
	)

	OrderEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_events_total",
			Help:      "Order pipeline events by source and result",
		},
		[]string{"source", "result"},
	)
)
