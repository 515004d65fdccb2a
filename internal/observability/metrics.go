// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Enforcement metrics
	EnforcementDecisions *prometheus.CounterVec

	// Vesting metrics
	TimelocksMinted   prometheus.Counter
	TokensLocked      prometheus.Counter
	TokensWithdrawn   prometheus.Counter
	TokensReclaimed   prometheus.Counter
	SchedulesCreated  prometheus.Counter
	TimelocksCanceled prometheus.Counter

	// Infrastructure metrics
	RPCCallLatency  *prometheus.HistogramVec
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	AuditPublished  *prometheus.CounterVec
	FeedSubscribers prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "security_token"
	}
	factory := promauto.With(reg)

	return &Metrics{
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "operations",
			Name:      "total",
			Help:      "Total number of operations by name and status",
		}, []string{"operation", "status", "code"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "operations",
			Name:      "duration_seconds",
			Help:      "Operation latency in seconds, including the transaction",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		EnforcementDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enforcement",
			Name:      "decisions_total",
			Help:      "Transfer enforcement decisions by movement kind and result",
		}, []string{"kind", "result", "reason"}),

		TimelocksMinted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vesting",
			Name:      "timelocks_minted_total",
			Help:      "Total number of timelocks minted",
		}),
		TokensLocked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vesting",
			Name:      "tokens_locked_total",
			Help:      "Total tokens minted into escrow",
		}),
		TokensWithdrawn: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vesting",
			Name:      "tokens_withdrawn_total",
			Help:      "Total tokens released from escrow to recipients",
		}),
		TokensReclaimed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vesting",
			Name:      "tokens_reclaimed_total",
			Help:      "Total locked tokens returned by cancellation",
		}),
		SchedulesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vesting",
			Name:      "schedules_created_total",
			Help:      "Total number of release schedules created",
		}),
		TimelocksCanceled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vesting",
			Name:      "timelocks_canceled_total",
			Help:      "Total number of timelocks cancelled",
		}),

		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
		AuditPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "events_published_total",
			Help:      "Audit events published by outcome",
		}, []string{"outcome"}),
		FeedSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "subscribers",
			Help:      "Number of connected audit feed subscribers",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", prometheus.DefaultRegisterer)

// RecordOperation records one operation outcome and its latency.
func RecordOperation(operation, status, code string, seconds float64) {
	DefaultMetrics.OperationsTotal.WithLabelValues(operation, status, code).Inc()
	DefaultMetrics.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordDecision records a transfer enforcement decision.
func RecordDecision(kind string, allowed bool, reason string) {
	result := "allow"
	if !allowed {
		result = "deny"
	}
	DefaultMetrics.EnforcementDecisions.WithLabelValues(kind, result, reason).Inc()
}

// RecordTimelockMinted records a new timelock of amount tokens.
func RecordTimelockMinted(amount uint64) {
	DefaultMetrics.TimelocksMinted.Inc()
	DefaultMetrics.TokensLocked.Add(float64(amount))
}

// RecordWithdrawal records tokens released to a recipient.
func RecordWithdrawal(amount uint64) {
	DefaultMetrics.TokensWithdrawn.Add(float64(amount))
}

// RecordCancellation records a cancelled timelock.
func RecordCancellation(paidOut, reclaimed uint64) {
	DefaultMetrics.TimelocksCanceled.Inc()
	DefaultMetrics.TokensWithdrawn.Add(float64(paidOut))
	DefaultMetrics.TokensReclaimed.Add(float64(reclaimed))
}

// RecordScheduleCreated records a new release schedule.
func RecordScheduleCreated() {
	DefaultMetrics.SchedulesCreated.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordAuditPublished records published audit events.
func RecordAuditPublished(outcome string, n int) {
	DefaultMetrics.AuditPublished.WithLabelValues(outcome).Add(float64(n))
}

// SetFeedSubscribers updates the feed subscriber gauge.
func SetFeedSubscribers(n int) {
	DefaultMetrics.FeedSubscribers.Set(float64(n))
}
