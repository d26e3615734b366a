// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "foodkart"

// Metrics groups every collector. A nil *Metrics records nothing.
type Metrics struct {
	Requests        *prometheus.CounterVec
	Latency         *prometheus.HistogramVec
	CartMutations   *prometheus.CounterVec
	OrdersCreated   *prometheus.CounterVec
	OrderUpdates    *prometheus.CounterVec
	OutboxPublished *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on a fresh registry
// together with the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors on reg and serves them from g.
func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		CartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "mutations_total",
			Help:      "Cart mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "order",
			Name:      "created_total",
			Help:      "Orders created, by source.",
		}, []string{"source"}),
		OrderUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "order",
			Name:      "updates_total",
			Help:      "Order updates by outcome.",
		}, []string{"outcome"}),
		OutboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Outbox events handed to the broker, by result.",
		}, []string{"result"}),
		gatherer: g,
	}

	reg.MustRegister(m.Requests, m.Latency, m.CartMutations, m.OrdersCreated, m.OrderUpdates, m.OutboxPublished)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.Latency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// CartMutation records a cart mutation.
func (m *Metrics) CartMutation(operation string, err error) {
	if m == nil {
		return
	}
	m.CartMutations.WithLabelValues(operation, outcome(err)).Inc()
}

// OrderCreated records a new order.
func (m *Metrics) OrderCreated(source string) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues(source).Inc()
}

// OrderUpdated records an order update attempt.
func (m *Metrics) OrderUpdated(err error) {
	if m == nil {
		return
	}
	m.OrderUpdates.WithLabelValues(outcome(err)).Inc()
}

// OutboxPublish records a relay attempt.
func (m *Metrics) OutboxPublish(err error) {
	if m == nil {
		return
	}
	m.OutboxPublished.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
