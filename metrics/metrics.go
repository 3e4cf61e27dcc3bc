// Package metrics declares Prometheus collectors of the saved-product store.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values.
const (
	Fail = "fail"
	Ok   = "ok"
)

// Collectors of store.Executor transactions.
var (
	TransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "savedstore_transactions_total",
		Help: "Cumulative number of completed store transactions, by status.",
	}, []string{"status"})
	TransactionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "savedstore_transaction_duration_seconds",
		Help:    "Duration of store transactions, from begin through commit or rollback.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15), // 100us to ~1.6s
	})
)

// Collectors of the store.StatementCache.
var (
	StatementsPreparedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "savedstore_statements_prepared_total",
		Help: "Cumulative number of prepared statements, by operation and whether the statement is shared.",
	}, []string{"op", "shared"})
	StatementsEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "savedstore_statements_evicted_total",
		Help: "Cumulative number of shared statements evicted from the statement cache.",
	})
)

// Collectors of the store.Registry and its Subscriptions.
var (
	TableNotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "savedstore_table_notifications_total",
		Help: "Cumulative number of committed-change notifications, by table.",
	}, []string{"table"})
	SubscriptionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "savedstore_subscriptions_active",
		Help: "Number of open subscriptions.",
	})
	ReevaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "savedstore_reevaluations_total",
		Help: "Cumulative number of subscription query evaluations, by status.",
	}, []string{"status"})
	DiscardedSnapshotsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "savedstore_discarded_snapshots_total",
		Help: "Cumulative number of evaluated snapshots discarded because their subscription closed.",
	})
)
