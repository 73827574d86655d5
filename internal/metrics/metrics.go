// Package metrics exposes client-side counters for a running session.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adamavenir/huddle/internal/types"
)

const namespace = "huddle"

// Metrics groups the collectors a session updates.
type Metrics struct {
	registry *prometheus.Registry

	Inputs          *prometheus.CounterVec
	RefreshSkipped  *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	RefreshFailures prometheus.Counter
	SendFailures    prometheus.Counter
	Notices         *prometheus.CounterVec
	Connected       prometheus.Gauge
	Threads         prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Inputs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inputs_total",
			Help:      "State inputs applied, by input name.",
		}, []string{"input"}),
		RefreshSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_skipped_total",
			Help:      "Refresh ticks skipped, by reason.",
		}, []string{"reason"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Time spent fetching the thread list.",
			Buckets:   prometheus.DefBuckets,
		}),
		RefreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_failures_total",
			Help:      "Thread list fetches that failed.",
		}),
		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Messages flagged as failed.",
		}),
		Notices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notices_total",
			Help:      "Notices shown, by kind.",
		}, []string{"kind"}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_connected",
			Help:      "1 while the realtime connection is up.",
		}),
		Threads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "threads",
			Help:      "Threads in the last snapshot.",
		}),
	}
	m.registry.MustRegister(
		m.Inputs,
		m.RefreshSkipped,
		m.RefreshDuration,
		m.RefreshFailures,
		m.SendFailures,
		m.Notices,
		m.Connected,
		m.Threads,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveInput counts an applied input.
func (m *Metrics) ObserveInput(name string) {
	m.Inputs.WithLabelValues(name).Inc()
}

// ObserveSkip counts a skipped refresh tick.
func (m *Metrics) ObserveSkip(reason string) {
	m.RefreshSkipped.WithLabelValues(reason).Inc()
}

// ObserveRefresh records a completed fetch.
func (m *Metrics) ObserveRefresh(elapsed time.Duration, err error) {
	m.RefreshDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.RefreshFailures.Inc()
	}
}

// ObserveNotice counts a shown notice.
func (m *Metrics) ObserveNotice(notice types.Notice) {
	m.Notices.WithLabelValues(string(notice.Kind)).Inc()
}

// SetConnected flips the connection gauge.
func (m *Metrics) SetConnected(up bool) {
	if up {
		m.Connected.Set(1)
		return
	}
	m.Connected.Set(0)
}
