// Package handler exposes participant lookup and bulk import over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cohort/internal/participant/models"
	participantservice "cohort/internal/participant/service"
	id "cohort/pkg/domain"
	"cohort/pkg/platform/httputil"
)

// Service defines the participant operations the handler delegates to.
type Service interface {
	Get(ctx context.Context, participantID id.ParticipantID) (*models.Participant, error)
	Resolve(ctx context.Context, attrs models.Attributes) (*models.Participant, error)
	LinkToProgram(ctx context.Context, participantID id.ParticipantID, programID id.ProgramID, channel participantservice.Channel) error
	BulkImport(ctx context.Context, programID id.ProgramID, rows []models.Attributes) (participantservice.ImportResult, error)
}

// Handler wires participant endpoints to the identity resolver.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a participant handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts participant endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/participants/{participantID}", h.handleGet)
	r.Post("/programs/{programID}/participants", h.handleManualEntry)
	r.Post("/programs/{programID}/participants/import", h.handleBulkImport)
}

// AttributesRequest is the JSON shape of one contact row.
type AttributesRequest struct {
	FullName       string         `json:"full_name"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	Gender         string         `json:"gender"`
	Organization   string         `json:"organization"`
	State          string         `json:"state"`
	AgeGroup       string         `json:"age_group"`
	ReferralSource string         `json:"referral_source"`
	Data           map[string]any `json:"data"`
}

func (r AttributesRequest) toAttributes() models.Attributes {
	return models.Attributes{
		FullName:       r.FullName,
		Email:          r.Email,
		Phone:          r.Phone,
		Gender:         r.Gender,
		Organization:   r.Organization,
		State:          r.State,
		AgeGroup:       r.AgeGroup,
		ReferralSource: r.ReferralSource,
		Data:           r.Data,
	}
}

// BulkImportRequest is the JSON body of POST /programs/{programID}/participants/import.
type BulkImportRequest struct {
	Rows []AttributesRequest `json:"rows"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	participantID, err := id.ParseParticipantID(chi.URLParam(r, "participantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	participant, err := h.service.Get(r.Context(), participantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, participant)
}

// handleManualEntry lets staff add a single participant to a program without
// going through the public registration link.
func (h *Handler) handleManualEntry(w http.ResponseWriter, r *http.Request) {
	programID, err := id.ParseProgramID(chi.URLParam(r, "programID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[AttributesRequest](w, r)
	if !ok {
		return
	}
	participant, err := h.service.Resolve(r.Context(), req.toAttributes())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.LinkToProgram(r.Context(), participant.ID, programID, participantservice.ChannelManual); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, participant)
}

func (h *Handler) handleBulkImport(w http.ResponseWriter, r *http.Request) {
	programID, err := id.ParseProgramID(chi.URLParam(r, "programID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[BulkImportRequest](w, r)
	if !ok {
		return
	}
	rows := make([]models.Attributes, 0, len(req.Rows))
	for _, row := range req.Rows {
		rows = append(rows, row.toAttributes())
	}
	result, err := h.service.BulkImport(r.Context(), programID, rows)
	if err != nil {
		h.logger.WarnContext(r.Context(), "bulk import aborted",
			"program_id", programID, "imported", result.Imported, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
