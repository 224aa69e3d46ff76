package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhooksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "piwebhook_webhooks_received_total",
		Help: "Total number of webhook deliveries, labelled by outcome.",
	}, []string{"outcome"})

	Verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "piwebhook_verifications_total",
		Help: "Total number of issuer verification calls, labelled by result.",
	}, []string{"result"})

	VerificationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "piwebhook_verification_duration_ms",
		Help:    "Issuer verification latency in milliseconds.",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	})

	ActionsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "piwebhook_actions_dispatched_total",
		Help: "Total number of dispatched actions, labelled by action and status.",
	}, []string{"action", "status"})

	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "piwebhook_deliveries_total",
		Help: "Total number of fulfillment attempts, labelled by product and result.",
	}, []string{"product_id", "result"})

	WebhookProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "piwebhook_webhook_processing_duration_ms",
		Help:    "End-to-end webhook processing latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 30000},
	})

	AuditEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "piwebhook_audit_events_total",
		Help: "Total number of audit events written, labelled by level.",
	}, []string{"level"})

	AuditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "piwebhook_audit_write_failures_total",
		Help: "Total number of audit events that could not be appended.",
	})

	CatalogReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "piwebhook_catalog_reloads_total",
		Help: "Total number of product catalog reloads, labelled by status.",
	}, []string{"status"})
)
