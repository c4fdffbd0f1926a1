// Package metrics exposes Prometheus instrumentation for request
// execution. A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "naett"

// Metrics holds the collectors updated by the client.
type Metrics struct {
	ResponsesTotal *prometheus.CounterVec
	InFlight       prometheus.Gauge
	BytesRead      prometheus.Counter
	Duration       *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ResponsesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Completed responses by status class.",
		}, []string{"class"}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "responses_in_flight",
			Help:      "Responses made but not yet complete.",
		}),
		BytesRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "body_bytes_read_total",
			Help:      "Response body bytes handed to body writers.",
		}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_duration_seconds",
			Help:      "Time from dispatch to completion.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// Started records a dispatched response.
func (m *Metrics) Started() {
	if m == nil {
		return
	}

	m.InFlight.Inc()
}

// Finished records a completed response.
func (m *Metrics) Finished(method string, status int, read int64, d time.Duration) {
	if m == nil {
		return
	}

	m.InFlight.Dec()
	m.ResponsesTotal.WithLabelValues(StatusClass(status)).Inc()
	m.BytesRead.Add(float64(read))
	m.Duration.WithLabelValues(method).Observe(d.Seconds())
}

// StatusClass buckets a status code for labelling: "2xx" style classes for
// HTTP codes and "error" for processing failures.
func StatusClass(status int) string {
	switch {
	case status < 0:
		return "error"
	case status < 100 || status > 599:
		return "unknown"
	default:
		return strconv.Itoa(status/100) + "xx"
	}
}
