package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the participant module.
type Metrics struct {
	Resolved     *prometheus.CounterVec
	Linked       *prometheus.CounterVec
	ImportedRows prometheus.Counter
	SkippedRows  prometheus.Counter
}

// New creates a new Metrics instance with all participant module metrics registered.
func New() *Metrics {
	return &Metrics{
		Resolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cohort_participants_resolved_total",
			Help: "Identity resolutions by outcome (created, merged)",
		}, []string{"outcome"}),
		Linked: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cohort_participants_linked_total",
			Help: "Program memberships established, by entry channel",
		}, []string{"channel"}),
		ImportedRows: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cohort_participant_import_rows_total",
			Help: "Bulk import rows that produced a membership",
		}),
		SkippedRows: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cohort_participant_import_skipped_total",
			Help: "Bulk import rows skipped for missing contact details",
		}),
	}
}

// IncrementResolved records an identity resolution outcome.
func (m *Metrics) IncrementResolved(outcome string) {
	m.Resolved.WithLabelValues(outcome).Inc()
}

// IncrementLinked records an established program membership.
func (m *Metrics) IncrementLinked(channel string) {
	m.Linked.WithLabelValues(channel).Inc()
}
