// Package httptransport assembles the HTTP surface: middleware chain, public
// registration routes, authenticated management routes, and operational
// endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	departmenthandler "cohort/internal/department/handler"
	participanthandler "cohort/internal/participant/handler"
	"cohort/internal/platform/metrics"
	"cohort/internal/platform/middleware"
	programhandler "cohort/internal/program/handler"
	registrationhandler "cohort/internal/registration/handler"
	"cohort/pkg/platform/httputil"
	devicemw "cohort/pkg/platform/middleware/device"
	"cohort/pkg/platform/middleware/requesttime"
)

// HealthChecker reports the readiness of one backing resource.
type HealthChecker func(ctx context.Context) error

// Deps carries everything the router mounts.
type Deps struct {
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	Validator    middleware.TokenValidator
	Programs     *programhandler.Handler
	Participants *participanthandler.Handler
	Registration *registrationhandler.Handler
	Departments  *departmenthandler.Handler
	// Health maps resource names to checkers; failures turn /healthz red.
	Health map[string]HealthChecker
}

// NewRouter wires all endpoints.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.Instrument(deps.Metrics))
	}

	// Public surface: registration links carry their own capability, so
	// these routes take device metadata instead of bearer tokens.
	r.Group(func(public chi.Router) {
		public.Use(devicemw.Middleware)
		deps.Registration.Register(public)
	})

	// Management surface.
	r.Group(func(private chi.Router) {
		private.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
		deps.Programs.Register(private)
		deps.Participants.Register(private)
		deps.Departments.Register(private)
	})

	r.Get("/healthz", healthHandler(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
			} else {
				body[name] = "ok"
			}
		}
		httputil.WriteJSON(w, status, body)
	}
}
