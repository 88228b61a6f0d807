// Package handler exposes program management over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cohort/internal/program/models"
	programservice "cohort/internal/program/service"
	id "cohort/pkg/domain"
	"cohort/pkg/platform/audit"
	"cohort/pkg/platform/httputil"
)

// Service defines the program operations the handler delegates to.
type Service interface {
	CreateProgram(ctx context.Context, input programservice.CreateProgramInput) (*models.Program, error)
	CreateInstance(ctx context.Context, input programservice.CreateInstanceInput) (*models.Program, error)
	Get(ctx context.Context, programID id.ProgramID) (*models.Program, error)
	ListInstances(ctx context.Context, parentID id.ProgramID) ([]*models.Program, error)
	Transition(ctx context.Context, programID id.ProgramID, next models.Status) (*models.Program, error)
	Complete(ctx context.Context, programID id.ProgramID, input programservice.CompleteInput) (*models.Program, error)
	AddUpdate(ctx context.Context, programID id.ProgramID, text string) (*models.Program, error)
}

// AuditLister reads a program's audit trail.
type AuditLister interface {
	ListByProgram(ctx context.Context, programID id.ProgramID) ([]audit.Event, error)
}

// Handler wires program endpoints to the hierarchy manager.
type Handler struct {
	service Service
	auditor AuditLister
	logger  *slog.Logger
}

// New constructs a program handler.
func New(service Service, auditor AuditLister, logger *slog.Logger) *Handler {
	return &Handler{service: service, auditor: auditor, logger: logger}
}

// Register mounts program endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/programs", h.handleCreate)
	r.Get("/programs/{programID}", h.handleGet)
	r.Post("/programs/{programID}/instances", h.handleCreateInstance)
	r.Get("/programs/{programID}/instances", h.handleListInstances)
	r.Post("/programs/{programID}/status", h.handleTransition)
	r.Post("/programs/{programID}/complete", h.handleComplete)
	r.Post("/programs/{programID}/updates", h.handleAddUpdate)
	r.Get("/programs/{programID}/audit", h.handleAuditTrail)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[CreateProgramRequest](w, r)
	if !ok {
		return
	}
	input, err := req.toInput()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	program, err := h.service.CreateProgram(r.Context(), input)
	if err != nil {
		h.logger.WarnContext(r.Context(), "program creation rejected", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, program)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	programID, err := id.ParseProgramID(chi.URLParam(r, "programID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	program, err := h.service.Get(r.Context(), programID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, program)
}

func (h *Handler) handleCreateInstance(w http.ResponseWriter, r *http.Request) {
	parentID, err := id.ParseProgramID(chi.URLParam(r, "programID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[CreateInstanceRequest](w, r)
	if !ok {
		return
	}
	program, err := h.service.CreateInstance(r.Context(), req.toInput(parentID))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, program)
}

func (h *Handler) handleListInstances(w http.ResponseWriter, r *http.Request) {
	parentID, err := id.ParseProgramID(chi.URLParam(r, "programID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	instances, err := h.service.ListInstances(r.Context(), parentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"instances": instances})
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	programID, err := id.ParseProgramID(chi.URLParam(r, "programID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[TransitionRequest](w, r)
	if !ok {
		return
	}
	program, err := h.service.Transition(r.Context(), programID, models.Status(req.Status))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, program)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	programID, err := id.ParseProgramID(chi.URLParam(r, "programID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[CompleteRequest](w, r)
	if !ok {
		return
	}
	program, err := h.service.Complete(r.Context(), programID, programservice.CompleteInput{
		ActualAttendance: req.ActualAttendance,
		ActualStart:      req.ActualStart,
		ActualEnd:        req.ActualEnd,
		DriveLink:        req.DriveLink,
		FinalDocument:    req.FinalDocument,
		AmountDisbursed:  req.AmountDisbursed,
		Comment:          req.Comment,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, program)
}

func (h *Handler) handleAddUpdate(w http.ResponseWriter, r *http.Request) {
	programID, err := id.ParseProgramID(chi.URLParam(r, "programID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[UpdateRequest](w, r)
	if !ok {
		return
	}
	program, err := h.service.AddUpdate(r.Context(), programID, req.Text)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, program)
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	programID, err := id.ParseProgramID(chi.URLParam(r, "programID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	// Confirm the program exists so unknown IDs return 404 rather than an
	// empty trail.
	if _, err := h.service.Get(r.Context(), programID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.auditor.ListByProgram(r.Context(), programID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}
