package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created at checkout",
	})

	OrdersConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_confirmed_total",
		Help: "Total number of orders confirmed after payment approval",
	})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	CheckoutFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failed_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	PaymentsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_processed_total",
		Help: "Total number of payment submissions by resulting status",
	}, []string{"status"})

	PaymentDuplicatesSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_duplicates_suppressed_total",
		Help: "Total number of duplicate payment submissions resolved as no-ops",
	})

	PaymentGatewayErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_gateway_errors_total",
		Help: "Total number of failed payment gateway calls",
	})

	PaymentStaleUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_stale_updates_total",
		Help: "Total number of gateway status updates rejected by the transition guard",
	})

	PaymentGatewayLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_gateway_latency_seconds",
		Help:    "Latency of payment gateway calls",
		Buckets: prometheus.DefBuckets,
	})

	WebhooksReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhooks_received_total",
		Help: "Total number of gateway webhook notifications by outcome",
	}, []string{"outcome"})

	ReconcilePollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_polls_total",
		Help: "Total number of fallback status polls against the gateway",
	})

	ReconcileResolvedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_resolved_total",
		Help: "Total number of pending payments resolved by the fallback poller",
	})

	ShippingQuoteLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shipping_quote_latency_seconds",
		Help:    "Latency of carrier quote calls",
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
