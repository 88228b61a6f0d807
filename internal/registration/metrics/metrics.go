package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration workflow.
type Metrics struct {
	Registrations *prometheus.CounterVec
}

// New creates a new Metrics instance with all registration metrics registered.
func New() *Metrics {
	return &Metrics{
		Registrations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cohort_registrations_total",
			Help: "Registration attempts by outcome (accepted, closed, duplicate, invalid, not_found)",
		}, []string{"outcome"}),
	}
}

// IncrementRegistrations records a registration attempt outcome.
func (m *Metrics) IncrementRegistrations(outcome string) {
	m.Registrations.WithLabelValues(outcome).Inc()
}
