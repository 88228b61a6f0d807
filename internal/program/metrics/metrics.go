package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the program module.
type Metrics struct {
	Created       *prometheus.CounterVec
	Derived       *prometheus.CounterVec
	StatusChanged *prometheus.CounterVec
	Completed     prometheus.Counter
	SlugRetries   prometheus.Counter
}

// New creates a new Metrics instance with all program module metrics registered.
func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cohort_programs_created_total",
			Help: "Blueprints and standalone programs created, by structure",
		}, []string{"structure"}),
		Derived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cohort_programs_derived_total",
			Help: "Instances derived from blueprints, by parent structure",
		}, []string{"structure"}),
		StatusChanged: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cohort_program_status_changes_total",
			Help: "Status transitions applied, by resulting status",
		}, []string{"status"}),
		Completed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cohort_programs_completed_total",
			Help: "Programs completed with a completion payload",
		}),
		SlugRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cohort_program_slug_retries_total",
			Help: "Slug collisions resolved by regeneration",
		}),
	}
}
