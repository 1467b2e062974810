package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IntentsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_intents_created_total",
		Help: "Total number of gateway payment intents created",
	})

	IntentsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_intents_failed_total",
		Help: "Total number of payment intent creation failures",
	}, []string{"reason"})

	VerificationsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_verifications_completed_total",
		Help: "Total number of verified checkouts that became commerce orders",
	})

	VerificationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_verifications_failed_total",
		Help: "Total number of failed verification pipelines",
	}, []string{"stage", "reason"})

	VerificationsDegradedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_verifications_degraded_total",
		Help: "Verifications that proceeded without a gateway status confirmation",
	})

	ReplayedSubmissionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_replayed_submissions_total",
		Help: "Verifications answered from a previously created commerce order",
	})

	CODOrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cod_orders_created_total",
		Help: "Total number of cash on delivery orders created",
	})

	PersistenceFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_persistence_failures_total",
		Help: "Failures persisting materialized orders",
	}, []string{"kind"})

	ReconciliationRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconciliation_records_total",
		Help: "Reconciliation records written for paid checkouts without an order",
	})

	GatewayRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_latency_seconds",
		Help:    "Latency of payment gateway calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	PlatformRequestLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "platform_order_latency_seconds",
		Help:    "Latency of commerce platform order creation",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
