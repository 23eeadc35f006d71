// Package metrics holds the process-wide Prometheus collectors for the escrow engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhooksTotal counts webhook deliveries by gateway and outcome.
	WebhooksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_webhooks_total",
		Help: "Webhook deliveries by gateway and outcome",
	}, []string{"gateway", "outcome"})

	// SettlementsTotal counts per-session settlement results.
	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_settlements_total",
		Help: "Session settlements by result",
	}, []string{"result"})

	SettlementBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "escrow_settlement_batch_duration_seconds",
		Help:    "Settlement batch duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	// PayoutsTotal counts payout requests by method and result.
	PayoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_payouts_total",
		Help: "Payout requests by method and result",
	}, []string{"method", "result"})

	// InvariantViolations counts ledger states that need manual reconciliation.
	InvariantViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_invariant_violations_total",
		Help: "Ledger invariant violations by operation",
	}, []string{"operation"})
)
