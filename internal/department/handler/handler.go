// Package handler exposes department management and the overview report over
// HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cohort/internal/department/models"
	"cohort/internal/overview"
	id "cohort/pkg/domain"
	"cohort/pkg/platform/httputil"
)

// Service defines the department operations the handler delegates to.
type Service interface {
	Create(ctx context.Context, name string) (*models.Department, error)
	Get(ctx context.Context, departmentID id.DepartmentID) (*models.Department, error)
	List(ctx context.Context) ([]*models.Department, error)
	SetKPIOverrides(ctx context.Context, departmentID id.DepartmentID, targets, weights map[string]float64) (*models.Department, error)
}

// OverviewEngine computes department performance reports.
type OverviewEngine interface {
	Compute(ctx context.Context, departmentID id.DepartmentID, rangeToken string) (*overview.Overview, error)
}

// Handler wires department endpoints to the department service and the
// overview engine.
type Handler struct {
	service Service
	engine  OverviewEngine
	logger  *slog.Logger
}

// New constructs a department handler.
func New(service Service, engine OverviewEngine, logger *slog.Logger) *Handler {
	return &Handler{service: service, engine: engine, logger: logger}
}

// Register mounts department endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/departments", h.handleCreate)
	r.Get("/departments", h.handleList)
	r.Get("/departments/{departmentID}", h.handleGet)
	r.Put("/departments/{departmentID}/kpis", h.handleSetKPIOverrides)
	r.Get("/departments/{departmentID}/overview", h.handleOverview)
}

// CreateRequest is the JSON body of POST /departments.
type CreateRequest struct {
	Name string `json:"name"`
}

// KPIOverridesRequest is the JSON body of PUT /departments/{departmentID}/kpis.
type KPIOverridesRequest struct {
	Targets map[string]float64 `json:"targets"`
	Weights map[string]float64 `json:"weights"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[CreateRequest](w, r)
	if !ok {
		return
	}
	department, err := h.service.Create(r.Context(), req.Name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, department)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	departments, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"departments": departments})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	departmentID, err := id.ParseDepartmentID(chi.URLParam(r, "departmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	department, err := h.service.Get(r.Context(), departmentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, department)
}

func (h *Handler) handleSetKPIOverrides(w http.ResponseWriter, r *http.Request) {
	departmentID, err := id.ParseDepartmentID(chi.URLParam(r, "departmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[KPIOverridesRequest](w, r)
	if !ok {
		return
	}
	department, err := h.service.SetKPIOverrides(r.Context(), departmentID, req.Targets, req.Weights)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, department)
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	departmentID, err := id.ParseDepartmentID(chi.URLParam(r, "departmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	report, err := h.engine.Compute(r.Context(), departmentID, r.URL.Query().Get("range"))
	if err != nil {
		h.logger.WarnContext(r.Context(), "overview computation failed",
			"department_id", departmentID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}
