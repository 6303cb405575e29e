// ABOUTME: Prometheus counters for logon checks and rejected cookie candidates
// ABOUTME: Implements the middleware Recorder and the logon Observer on a private registry

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/2389/logon-gateway/internal/auth"
	"github.com/2389/logon-gateway/internal/logon"
)

const namespace = "logon"

// Metrics holds the gateway's collectors. The zero value is not usable; use New.
type Metrics struct {
	registry          *prometheus.Registry
	checks            *prometheus.CounterVec
	candidateFailures *prometheus.CounterVec
	sessionsPurged    prometheus.Counter
}

var (
	_ auth.Recorder  = (*Metrics)(nil)
	_ logon.Observer = (*Metrics)(nil)
)

// New creates a registry with the logon collectors plus the Go and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Logon checks by module and outcome.",
		}, []string{"module", "outcome"}),
		candidateFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidate_failures_total",
			Help:      "Rejected auth cookie candidates by reason.",
		}, []string{"reason"}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_purged_total",
			Help:      "Expired gateway sessions removed by the janitor.",
		}),
	}
	m.registry.MustRegister(
		m.checks,
		m.candidateFailures,
		m.sessionsPurged,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCheck implements auth.Recorder.
func (m *Metrics) ObserveCheck(module, outcome string) {
	m.checks.WithLabelValues(module, outcome).Inc()
}

// CandidateRejected implements logon.Observer.
func (m *Metrics) CandidateRejected(_ string, f logon.Failure) {
	m.candidateFailures.WithLabelValues(f.String()).Inc()
}

// SessionsPurged adds n removed sessions.
func (m *Metrics) SessionsPurged(n int64) {
	if n > 0 {
		m.sessionsPurged.Add(float64(n))
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
