// Package metrics holds the prometheus collectors for command dispatch and
// session refresh. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spotify_mcp"

type Metrics struct {
	registry         *prometheus.Registry
	dispatches       *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	refreshes        *prometheus.CounterVec
}

// New creates the collectors on a private registry together with the
// standard process and Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Commands dispatched, by command and outcome kind.",
		}, []string{"command", "outcome"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Wall time of a command dispatch including token refresh.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Access token refresh exchanges, by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		m.dispatches,
		m.dispatchDuration,
		m.refreshes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveDispatch(command, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(command, outcome).Inc()
	m.dispatchDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRefresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
