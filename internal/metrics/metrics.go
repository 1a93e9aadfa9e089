// Package metrics exposes Prometheus metrics for the GymKeep server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SyncMetrics counts offline sync event outcomes. All methods are safe on a
// nil receiver so tests can run the gateway without a registry.
type SyncMetrics struct {
	attendanceEvents *prometheus.CounterVec
	paymentEvents    *prometheus.CounterVec
	limitDenials     *prometheus.CounterVec
}

// NewSyncMetrics registers sync counters on the given registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	factory := promauto.With(reg)
	return &SyncMetrics{
		attendanceEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gymkeep",
			Subsystem: "sync",
			Name:      "attendance_events_total",
			Help:      "Attendance sync events by outcome.",
		}, []string{"outcome"}),
		paymentEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gymkeep",
			Subsystem: "sync",
			Name:      "payment_events_total",
			Help:      "Payment sync events by outcome.",
		}, []string{"outcome"}),
		limitDenials: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gymkeep",
			Subsystem: "entitlement",
			Name:      "limit_denials_total",
			Help:      "Mutating operations denied by tier limits.",
		}, []string{"limit_key"}),
	}
}

// AttendanceApplied counts an applied attendance event.
func (m *SyncMetrics) AttendanceApplied() {
	if m == nil {
		return
	}
	m.attendanceEvents.WithLabelValues("applied").Inc()
}

// AttendanceStale counts an attendance event ignored as stale.
func (m *SyncMetrics) AttendanceStale() {
	if m == nil {
		return
	}
	m.attendanceEvents.WithLabelValues("stale").Inc()
}

// AttendanceRejected counts a rejected attendance event.
func (m *SyncMetrics) AttendanceRejected() {
	if m == nil {
		return
	}
	m.attendanceEvents.WithLabelValues("rejected").Inc()
}

// PaymentApplied counts a created payment record.
func (m *SyncMetrics) PaymentApplied() {
	if m == nil {
		return
	}
	m.paymentEvents.WithLabelValues("applied").Inc()
}

// PaymentReplayed counts a payment event deduplicated by its token.
func (m *SyncMetrics) PaymentReplayed() {
	if m == nil {
		return
	}
	m.paymentEvents.WithLabelValues("replayed").Inc()
}

// PaymentRejected counts a rejected payment event.
func (m *SyncMetrics) PaymentRejected() {
	if m == nil {
		return
	}
	m.paymentEvents.WithLabelValues("rejected").Inc()
}

// LimitDenied counts a limit-guard denial for the given limit key.
func (m *SyncMetrics) LimitDenied(limitKey string) {
	if m == nil {
		return
	}
	m.limitDenials.WithLabelValues(limitKey).Inc()
}
