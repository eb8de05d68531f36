package demo

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the demo sandbox.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	SessionsCreated prometheus.Counter
	SessionsEvicted prometheus.Counter
	SessionsCleaned *prometheus.CounterVec
	SweepDuration   prometheus.Histogram
	ActiveSessions  prometheus.Gauge
}

// NewMetrics creates the demo sandbox metrics. They are not registered.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "demo_sessions_created_total",
				Help: "Total number of demo sessions created",
			},
		),
		SessionsEvicted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "demo_sessions_evicted_total",
				Help: "Total number of demo sessions evicted to stay within the session limit",
			},
		),
		SessionsCleaned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demo_sessions_cleaned_total",
				Help: "Total number of demo sessions removed, by reason",
			},
			[]string{"reason"},
		),
		SweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "demo_sweep_duration_seconds",
				Help:    "Duration of demo expiry sweeps",
				Buckets: prometheus.DefBuckets,
			},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "demo_sessions_active",
				Help: "Number of registered demo sessions after the last lifecycle change",
			},
		),
	}
}

// Collectors returns every metric for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.SessionsCreated,
		m.SessionsEvicted,
		m.SessionsCleaned,
		m.SweepDuration,
		m.ActiveSessions,
	}
}

func (m *Metrics) created() {
	if m != nil {
		m.SessionsCreated.Inc()
	}
}

func (m *Metrics) evicted() {
	if m != nil {
		m.SessionsEvicted.Inc()
	}
}

func (m *Metrics) cleaned(reason string, n int) {
	if m != nil && n > 0 {
		m.SessionsCleaned.WithLabelValues(reason).Add(float64(n))
	}
}

func (m *Metrics) sweepSeconds(seconds float64) {
	if m != nil {
		m.SweepDuration.Observe(seconds)
	}
}

func (m *Metrics) active(n int) {
	if m != nil {
		m.ActiveSessions.Set(float64(n))
	}
}
