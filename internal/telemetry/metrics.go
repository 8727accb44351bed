package telemetry

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Merge outcomes.
const (
	MergeNoop    = "noop"
	MergeSame    = "same"
	MergeAdopted = "adopted"
	MergeMerged  = "merged"
)

// Checkout outcomes.
const (
	CheckoutSucceeded = "succeeded"
	CheckoutRejected  = "rejected"
	CheckoutFailed    = "failed"
)

// Metrics holds the business counters for carts and checkout. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	CartsCreated   *prometheus.CounterVec
	CartMerges     *prometheus.CounterVec
	CartMutations  *prometheus.CounterVec
	Checkouts      *prometheus.CounterVec
	OrderTotal     *prometheus.HistogramVec
	OrdersCanceled prometheus.Counter
	HTTPRequests   *prometheus.CounterVec
	HTTPLatency    *prometheus.HistogramVec
}

// New creates the metrics on a dedicated registry, which also carries the Go
// runtime and process collectors.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "storefront"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		CartsCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cart",
				Name:      "carts_created_total",
				Help:      "Active carts created by the identity resolver",
			},
			[]string{"identity"}, // identity: user, session
		),
		CartMerges: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cart",
				Name:      "cart_merges_total",
				Help:      "Login-time cart merges by outcome",
			},
			[]string{"outcome"},
		),
		CartMutations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cart",
				Name:      "line_mutations_total",
				Help:      "Cart line mutations by kind",
			},
			[]string{"kind"}, // kind: add, update, remove, clear
		),
		Checkouts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "checkouts_total",
				Help:      "Cart to order conversions by outcome",
			},
			[]string{"outcome", "reason"},
		),
		OrderTotal: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "order_total_minor",
				Help:      "Order totals in minor currency units",
				Buckets:   prometheus.ExponentialBuckets(100, 4, 10),
			},
			[]string{"currency"},
		),
		OrdersCanceled: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "orders",
				Name:      "canceled_total",
				Help:      "Orders canceled with stock restored",
			},
		),
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) CartCreated(identity string) {
	if m == nil {
		return
	}
	m.CartsCreated.WithLabelValues(identity).Inc()
}

func (m *Metrics) CartMerged(outcome string) {
	if m == nil {
		return
	}
	m.CartMerges.WithLabelValues(outcome).Inc()
}

func (m *Metrics) LineMutated(kind string) {
	if m == nil {
		return
	}
	m.CartMutations.WithLabelValues(kind).Inc()
}

// CheckoutFinished records a conversion attempt. total is observed only on success.
func (m *Metrics) CheckoutFinished(outcome, reason, currency string, total int64) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(outcome, reason).Inc()
	if outcome == CheckoutSucceeded {
		m.OrderTotal.WithLabelValues(currency).Observe(float64(total))
	}
}

func (m *Metrics) OrderCanceled() {
	if m == nil {
		return
	}
	m.OrdersCanceled.Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(method, route).Observe(seconds)
}
