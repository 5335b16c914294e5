// Package metrics exposes the service's prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "calculator_hub"

// Metrics owns a private registry so tests can build as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	calculations    *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
	exchangeLookups *prometheus.CounterVec
}

// New registers all collectors, plus the go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Calculator invocations by calculator and outcome.",
		}, []string{"calculator", "outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"identifier"}),
		exchangeLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_cache_lookups_total",
			Help:      "Exchange rate cache lookups by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.calculations,
		m.rateLimited,
		m.exchangeLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one completed request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Outcomes recorded by CountCalculation.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// CountCalculation records a calculator invocation.
func (m *Metrics) CountCalculation(calculator, outcome string) {
	m.calculations.WithLabelValues(calculator, outcome).Inc()
}

// CountRateLimited records a rejected request.
func (m *Metrics) CountRateLimited(identifier string) {
	m.rateLimited.WithLabelValues(identifier).Inc()
}

// CountExchangeLookup records an exchange cache lookup.
func (m *Metrics) CountExchangeLookup(result string) {
	m.exchangeLookups.WithLabelValues(result).Inc()
}
