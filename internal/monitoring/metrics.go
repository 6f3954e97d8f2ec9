package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	GatewayCallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_callbacks_total",
			Help: "Payment gateway callbacks by outcome",
		},
		[]string{"outcome"}, // confirmed, replayed, rejected
	)

	PaymentsConfirmedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_confirmed_total",
			Help: "Payments marked PAID, by type",
		},
		[]string{"type"},
	)

	CommissionsRecordedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "commissions_recorded_total",
			Help: "Commission rows recorded",
		},
	)

	CommissionFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "commission_failures_total",
			Help: "Commission computations that failed and need reconciliation",
		},
	)
)
