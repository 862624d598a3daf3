// Package metrics exposes fan-out task metrics on a private Prometheus registry.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradeboard-api/pkg/market"
)

const defaultNamespace = "tradeboard"

// Collector implements market.Observer.
type Collector struct {
	registry *prometheus.Registry

	tasks    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	coerced  *prometheus.CounterVec
	requests *prometheus.CounterVec
}

var _ market.Observer = (*Collector)(nil)

// NewCollector registers the task collectors under namespace.
func NewCollector(namespace string) *Collector {
	namespace = sanitize(namespace)
	if namespace == "" {
		namespace = defaultNamespace
	}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fanout",
			Name:      "tasks_total",
			Help:      "Fan-out tasks by exchange and outcome.",
		}, []string{"exchange", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fanout",
			Name:      "task_duration_seconds",
			Help:      "Duration of fan-out tasks.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 11), // 10ms to ~10s
		}, []string{"exchange"}),
		coerced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalize",
			Name:      "coerced_fields_total",
			Help:      "Numeric fields that fell back to zero.",
		}, []string{"exchange", "field"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "fanout_requests_total",
			Help:      "Aggregate requests by endpoint and result.",
		}, []string{"endpoint", "result"}),
	}
	c.registry.MustRegister(
		c.tasks,
		c.latency,
		c.coerced,
		c.requests,
		prometheus.NewGoCollector(),
	)
	return c
}

// ObserveTask implements market.Observer.
func (c *Collector) ObserveTask(exchange, outcome string, d time.Duration) {
	c.tasks.WithLabelValues(exchange, outcome).Inc()
	c.latency.WithLabelValues(exchange).Observe(d.Seconds())
}

// ObserveCoerced implements market.Observer.
func (c *Collector) ObserveCoerced(exchange, field string) {
	c.coerced.WithLabelValues(exchange, field).Inc()
}

// ObserveRequest counts one aggregate request; result is ok, partial or failed.
func (c *Collector) ObserveRequest(endpoint, result string) {
	c.requests.WithLabelValues(endpoint, result).Inc()
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// sanitize maps a service name such as "tradeboard-api" to a valid metric
// namespace.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(name))
}
