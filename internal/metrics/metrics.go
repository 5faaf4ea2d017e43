// Package metrics exposes tracker activity for Prometheus scraping on a
// private registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Poll outcomes.
const (
	PollApplied     = "applied"
	PollUnavailable = "unavailable"
	PollStale       = "stale"
	PollSuppressed  = "suppressed"
)

// Metrics holds the tracker's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	submissions *prometheus.CounterVec
	polls       *prometheus.CounterVec
	completions *prometheus.CounterVec
	historySize prometheus.Gauge
	activePolls prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shadowzap_submissions_total",
			Help: "Scan submissions by outcome (accepted, rejected, invalid).",
		}, []string{"outcome"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shadowzap_polls_total",
			Help: "Status polls by outcome.",
		}, []string{"outcome"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shadowzap_completions_total",
			Help: "Completion notifications by terminal status.",
		}, []string{"status"}),
		historySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shadowzap_history_entries",
			Help: "Entries in the local scan history after the last write.",
		}),
		activePolls: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shadowzap_auto_polls_active",
			Help: "Auto-poll timers currently scheduled.",
		}),
	}
	reg.MustRegister(m.submissions, m.polls, m.completions, m.historySize, m.activePolls)
	return m
}

func (m *Metrics) Submission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Poll(outcome string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Completion(status string) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(status).Inc()
}

func (m *Metrics) HistorySize(n int) {
	if m == nil {
		return
	}
	m.historySize.Set(float64(n))
}

func (m *Metrics) ActivePolls(n int) {
	if m == nil {
		return
	}
	m.activePolls.Set(float64(n))
}

// Registry returns the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
