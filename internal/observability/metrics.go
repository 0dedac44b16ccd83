// Package observability provides metrics, tracing helpers and the health/metrics endpoint.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the application counters and histograms.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	AuthFailures      *prometheus.CounterVec
	LoginAttempts     *prometheus.CounterVec
	RevisionsAppended prometheus.Counter
}

// NewMetrics creates and registers gophpress metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gophpress_requests_total",
				Help: "Total number of requests by transport, route and status",
			},
			[]string{"transport", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gophpress_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"transport", "route"},
		),
		AuthFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gophpress_auth_failures_total",
				Help: "Rejected bearer tokens by reason",
			},
			[]string{"reason"},
		),
		LoginAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gophpress_login_attempts_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		RevisionsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gophpress_revisions_appended_total",
			Help: "Total number of post revisions recorded",
		}),
	}

	reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.AuthFailures, m.LoginAttempts, m.RevisionsAppended)
	return m
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(transport, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(transport, route, status).Inc()
	m.RequestDuration.WithLabelValues(transport, route).Observe(seconds)
}

// AuthFailure counts a rejected token.
func (m *Metrics) AuthFailure(reason string) {
	if m == nil {
		return
	}
	m.AuthFailures.WithLabelValues(reason).Inc()
}

// Login counts a login attempt: ok, bad_credentials, rate_limited or error.
func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(result).Inc()
}

// RevisionAppended counts a recorded edit.
func (m *Metrics) RevisionAppended() {
	if m == nil {
		return
	}
	m.RevisionsAppended.Inc()
}
