package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CatalogFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_fetches_total",
		Help: "Total number of catalog fetches from the upstream shop API",
	}, []string{"result"})

	CatalogFetchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_fetch_latency_seconds",
		Help:    "Latency of catalog fetches",
		Buckets: prometheus.DefBuckets,
	})

	CatalogSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_products",
		Help: "Number of products in the current catalog",
	})

	SessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessions_created_total",
		Help: "Total number of storefront sessions created",
	})

	SessionsEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessions_evicted_total",
		Help: "Total number of idle sessions evicted",
	})

	BasketAddsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "basket_adds_total",
		Help: "Total number of products added to baskets",
	})

	BasketRemovesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "basket_removes_total",
		Help: "Total number of products removed from baskets",
	})

	ValidationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "validation_failures_total",
		Help: "Total number of order form validation failures",
	}, []string{"field"})

	ScreenTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "screen_transitions_total",
		Help: "Total number of screen transitions",
	}, []string{"screen"})

	OrdersSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_submitted_total",
		Help: "Total number of orders submitted to the upstream shop API",
	})

	OrdersCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_completed_total",
		Help: "Total number of orders accepted by the upstream shop API",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order submissions",
	}, []string{"reason"})

	OrderSubmitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_submit_latency_seconds",
		Help:    "Latency of order submissions",
		Buckets: prometheus.DefBuckets,
	})

	OrdersArchivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_archived_total",
		Help: "Total number of completed orders written to the archive",
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
