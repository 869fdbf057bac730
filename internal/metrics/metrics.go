// Package metrics exposes Prometheus counters for token lifecycle and API activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spotauth"

// Collector owns a private registry so tests and multiple instances don't collide.
type Collector struct {
	registry *prometheus.Registry

	// TokenOperations counts lifecycle operations by op and result (ok, error).
	TokenOperations *prometheus.CounterVec
	// TokenExpiry is the unix time at which the stored access token expires.
	TokenExpiry prometheus.Gauge
	// APIRequests counts Web API calls by endpoint and status code.
	APIRequests *prometheus.CounterVec
	// APIDuration observes Web API latency by endpoint.
	APIDuration *prometheus.HistogramVec
}

// New registers all metrics on a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		TokenOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_operations_total",
				Help:      "The total number of token lifecycle operations.",
			},
			[]string{"op", "result"},
		),
		TokenExpiry: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "token_expiry_timestamp_seconds",
				Help:      "Unix time at which the stored access token expires, 0 when none.",
			},
		),
		APIRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "The total number of Web API requests.",
			},
			[]string{"endpoint", "status"},
		),
		APIDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "A histogram of Web API request latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
	}
}

// Observe records the outcome of a token lifecycle operation.
func (c *Collector) Observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.TokenOperations.WithLabelValues(op, result).Inc()
}

// SetExpiry publishes the access token expiry. A zero time resets the gauge.
func (c *Collector) SetExpiry(t time.Time) {
	if t.IsZero() {
		c.TokenExpiry.Set(0)
		return
	}
	c.TokenExpiry.Set(float64(t.Unix()))
}

// ObserveRequest records one Web API call. status is 0 for transport failures.
func (c *Collector) ObserveRequest(endpoint string, status int, elapsed time.Duration) {
	c.APIRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	c.APIDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
