package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records sign-in activity. A nil *Metrics is valid and records nothing,
// so services can be built without a registry in tests.
type Metrics struct {
	reg           *prometheus.Registry
	signIns       *prometheus.CounterVec
	otpIssued     prometheus.Counter
	otpRejected   *prometheus.CounterVec
	gateDecisions *prometheus.CounterVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return &Metrics{
		reg: reg,
		signIns: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_signins_total",
				Help: "Sign-in attempts by strategy and outcome",
			},
			[]string{"strategy", "outcome"}, // outcome: "success" or the failure kind
		),
		otpIssued: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "authgate_otp_issued_total",
			Help: "One-time passcodes issued",
		}),
		otpRejected: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_otp_rejected_total",
				Help: "OTP verifications rejected by reason",
			},
			[]string{"reason"},
		),
		gateDecisions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_gate_decisions_total",
				Help: "Access gate decisions",
			},
			[]string{"decision"},
		),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordSignIn(strategy, outcome string) {
	if m == nil {
		return
	}
	m.signIns.WithLabelValues(strategy, outcome).Inc()
}

func (m *Metrics) RecordOTPIssued() {
	if m == nil {
		return
	}
	m.otpIssued.Inc()
}

func (m *Metrics) RecordOTPRejected(reason string) {
	if m == nil {
		return
	}
	m.otpRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordGateDecision(decision string) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(decision).Inc()
}
