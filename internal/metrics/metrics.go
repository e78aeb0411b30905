// Package metrics holds the Prometheus collectors shared by the engine,
// the broadcast sinks, the price feed and the HTTP layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector the service exports.
type Metrics struct {
	OrdersEnqueued   prometheus.Counter
	OrdersProcessed  prometheus.Counter
	OrderFailures    prometheus.Counter
	QueueDepth       prometheus.Gauge
	TradesExecuted   *prometheus.CounterVec
	BroadcastDropped *prometheus.CounterVec
	PriceFetches     *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_enqueued_total",
			Help: "Total number of orders accepted into the intake queue",
		}),
		OrdersProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_processed_total",
			Help: "Total number of orders processed by the matching engine",
		}),
		OrderFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "order_failures_total",
			Help: "Total number of orders dropped after a processing failure",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "order_queue_depth",
			Help: "Orders waiting in the intake queue",
		}),
		TradesExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trades_executed_total",
				Help: "Total number of trades executed",
			},
			[]string{"symbol"},
		),
		BroadcastDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "broadcast_dropped_total",
				Help: "Messages a broadcast sink could not deliver",
			},
			[]string{"sink"},
		),
		PriceFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "price_fetches_total",
				Help: "Quote fetches against the upstream price feed",
			},
			[]string{"result"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path"},
		),
	}

	reg.MustRegister(
		m.OrdersEnqueued,
		m.OrdersProcessed,
		m.OrderFailures,
		m.QueueDepth,
		m.TradesExecuted,
		m.BroadcastDropped,
		m.PriceFetches,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// NewUnregistered returns collectors registered against a throwaway
// registry, for tests and tools that do not export metrics.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
