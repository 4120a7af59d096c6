package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "storefront"

// Order placement outcomes.
const (
	OutcomePlaced   = "placed"
	OutcomeConflict = "tracking_conflict"
	OutcomeFailed   = "failed"
)

// Collector is a prometheus.Collector for order placement and HTTP traffic.
type Collector struct {
	ordersPlaced      *prometheus.CounterVec
	trackingRetries   prometheus.Counter
	placementDuration prometheus.Histogram
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		ordersPlaced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "orders_total",
				Help:      "Order placement attempts by outcome.",
			}, []string{"outcome"},
		),
		trackingRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "tracking_id_retries_total",
				Help:      "Order transactions repeated after a tracking id collision.",
			},
		),
		placementDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "order_placement_seconds",
				Help:      "Time spent committing an order, retries included.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route pattern, method and status.",
			}, []string{"route", "method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_seconds",
				Help:      "HTTP request latency by route pattern.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.ordersPlaced.Describe(ch)
	c.trackingRetries.Describe(ch)
	c.placementDuration.Describe(ch)
	c.httpRequests.Describe(ch)
	c.httpDuration.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.ordersPlaced.Collect(ch)
	c.trackingRetries.Collect(ch)
	c.placementDuration.Collect(ch)
	c.httpRequests.Collect(ch)
	c.httpDuration.Collect(ch)
}

// OrderOutcome records the result of one PlaceOrder call.
func (c *Collector) OrderOutcome(outcome string, took time.Duration) {
	c.ordersPlaced.WithLabelValues(outcome).Inc()
	c.placementDuration.Observe(took.Seconds())
}

// TrackingRetry records one repeated order transaction.
func (c *Collector) TrackingRetry() {
	c.trackingRetries.Inc()
}

// Middleware counts requests by chi route pattern so ids never become label values.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		c.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
