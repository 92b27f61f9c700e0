package session

import "github.com/prometheus/client_golang/prometheus"

// Validation outcomes recorded by Metrics.
const (
	resultOK             = "ok"
	resultInvalidToken   = "invalid_token"
	resultUnknownSession = "unknown_session"
	resultRevoked        = "revoked"
	resultExpired        = "expired"
	resultError          = "error"
)

// Revocation kinds recorded by Metrics.
const (
	revokeLogout       = "logout"
	revokeOthers       = "logout_others"
	revokeByID         = "by_id"
	revokeCleanupSweep = "cleanup"
)

// Metrics holds the session subsystem's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	created     prometheus.Counter
	validations *prometheus.CounterVec
	revocations *prometheus.CounterVec
	cleanupRows *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "desk_sessions_created_total",
			Help: "Sessions issued.",
		}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "desk_session_validations_total",
			Help: "Token validations by outcome.",
		}, []string{"result"}),
		revocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "desk_session_revocations_total",
			Help: "Sessions deactivated by kind.",
		}, []string{"kind"}),
		cleanupRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "desk_session_cleanup_rows_total",
			Help: "Rows touched by the cleanup sweep by action.",
		}, []string{"action"}),
	}
	if reg != nil {
		reg.MustRegister(m.created, m.validations, m.revocations, m.cleanupRows)
	}
	return m
}

func (m *Metrics) sessionCreated() {
	if m == nil {
		return
	}
	m.created.Inc()
}

func (m *Metrics) validation(result string) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(result).Inc()
}

func (m *Metrics) revoked(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.revocations.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) cleanup(action string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.cleanupRows.WithLabelValues(action).Add(float64(n))
}
