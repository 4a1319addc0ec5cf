// Package metrics collects client-side request counters for the console.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives gateway and session events. A nil *Metrics is a valid no-op Recorder.
type Recorder interface {
	ObserveRequest(method string, status int, elapsed time.Duration)
	IncRetry()
	IncRefresh(ok bool)
}

// Metrics owns a private registry so tests and the console never share globals.
type Metrics struct {
	Registry *prometheus.Registry

	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	retries   prometheus.Counter
	refreshes *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mergealert",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Requests issued by the console, by method and response status (0 for transport failures).",
		}, []string{"method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mergealert",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Round trip time of console requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mergealert",
			Subsystem: "gateway",
			Name:      "transparent_retries_total",
			Help:      "Requests replayed after a successful token refresh.",
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mergealert",
			Subsystem: "session",
			Name:      "refresh_attempts_total",
			Help:      "Access token refresh attempts by outcome.",
		}, []string{"outcome"}),
	}
	m.Registry.MustRegister(m.requests, m.latency, m.retries, m.refreshes)
	return m
}

func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) IncRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) IncRefresh(ok bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
