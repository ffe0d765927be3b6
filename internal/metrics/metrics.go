// Package metrics exports run statistics in the Prometheus format while a
// run is in progress.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/patric-chuzhbe/urlshrtload/internal/stats"
)

const namespace = "shortload"

// Metrics implements stats.Observer on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	checks   *prometheus.CounterVec
	tasks    *prometheus.CounterVec
	users    prometheus.Gauge
}

// New registers the run metrics and the Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests sent to the shortener, by method, name and status code.",
		}, []string{"method", "name", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_failures_total",
			Help:      "Requests that failed at transport level or answered a 4xx/5xx status.",
		}, []string{"method", "name"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request latency.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"method", "name"}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Check results, by check name and result.",
		}, []string{"check", "result"}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Task executions, by task name and outcome.",
		}, []string{"task", "outcome"}),
		users: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "virtual_users",
			Help:      "Virtual users currently running.",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.failures,
		m.duration,
		m.checks,
		m.tasks,
		m.users,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry is where the metrics live.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		// the status server compresses its answers itself
		DisableCompression: true,
	})
}

func (m *Metrics) ObserveRequest(s stats.Sample) {
	status := "error"
	if s.Err == nil {
		status = strconv.Itoa(s.Status)
	}
	m.requests.WithLabelValues(s.Method, s.Name, status).Inc()
	if s.Failed || s.Err != nil {
		m.failures.WithLabelValues(s.Method, s.Name).Inc()
	}
	m.duration.WithLabelValues(s.Method, s.Name).Observe(s.Latency.Seconds())
}

func (m *Metrics) ObserveCheck(name string, passed bool) {
	result := "fail"
	if passed {
		result = "pass"
	}
	m.checks.WithLabelValues(name, result).Inc()
}

func (m *Metrics) ObserveTask(name string, outcome stats.Outcome) {
	m.tasks.WithLabelValues(name, outcome.String()).Inc()
}

func (m *Metrics) ObserveUsers(n int) {
	m.users.Set(float64(n))
}
