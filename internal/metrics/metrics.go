package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AccountRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_account_requests_total",
		Help: "Account creation requests handled by the bridge, by outcome (created, pending, rejected).",
	}, []string{"outcome"})

	RPCAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_rpc_attempts_total",
		Help: "Synchronous CreateAccount attempts, by result.",
	}, []string{"result"})

	RPCLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bridge_rpc_latency_seconds",
		Help:    "Latency of individual CreateAccount attempts.",
		Buckets: prometheus.DefBuckets,
	})

	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bridge_breaker_state",
		Help: "Circuit breaker state (0 closed, 1 half-open, 2 open).",
	}, []string{"breaker"})

	BreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_breaker_transitions_total",
		Help: "Circuit breaker state transitions.",
	}, []string{"breaker", "from", "to"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_events_published_total",
		Help: "Events handed to the broker, by topic and result.",
	}, []string{"topic", "result"})

	ConsumedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_consumed_events_total",
		Help: "Events processed by consumers, by topic and result.",
	}, []string{"topic", "result"})

	AccountsProvisioned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accounts_provisioned_total",
		Help: "Provisioning requests on the account side, by source (rpc, event) and result (created, duplicate, failed).",
	}, []string{"source", "result"})

	OutboxBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_outbox_backlog",
		Help: "Pending events found in the outbox on the last relay pass.",
	})
)

const (
	OutcomeCreated  = "created"
	OutcomePending  = "pending"
	OutcomeRejected = "rejected"
)

func RecordOutcome(outcome string) {
	AccountRequests.WithLabelValues(outcome).Inc()
}

func StartRPCTimer() *prometheus.Timer {
	return prometheus.NewTimer(RPCLatency)
}
