// Package handler exposes the public registration endpoints. These routes
// are unauthenticated: anyone holding a registration link may view the form
// and submit it.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	participantmodels "cohort/internal/participant/models"
	programmodels "cohort/internal/program/models"
	registrationservice "cohort/internal/registration/service"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/platform/httputil"
	"cohort/pkg/platform/sentinel"
)

// Service defines the registration operations the handler delegates to.
type Service interface {
	Register(ctx context.Context, req registrationservice.Request) (*participantmodels.Participant, error)
}

// ProgramFinder resolves the public view of a program by its link.
type ProgramFinder interface {
	FindBySlug(ctx context.Context, linkSlug string) (*programmodels.Program, error)
}

// Handler wires registration endpoints to the registration workflow.
type Handler struct {
	service  Service
	programs ProgramFinder
	logger   *slog.Logger
}

// New constructs a registration handler.
func New(service Service, programs ProgramFinder, logger *slog.Logger) *Handler {
	return &Handler{service: service, programs: programs, logger: logger}
}

// Register mounts registration endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/register/{slug}", h.handleGetForm)
	r.Post("/register/{slug}", h.handleRegister)
}

// RegisterRequest is the JSON body of POST /register/{slug}.
type RegisterRequest struct {
	FullName       string         `json:"full_name"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	Gender         string         `json:"gender"`
	Organization   string         `json:"organization"`
	State          string         `json:"state"`
	AgeGroup       string         `json:"age_group"`
	ReferralSource string         `json:"referral_source"`
	Answers        map[string]any `json:"answers"`
	Consent        bool           `json:"consent"`
}

// formView is the public projection of a program's registration form. It
// deliberately omits participants, updates, and internal bookkeeping.
type formView struct {
	Name        string                    `json:"name"`
	Description string                    `json:"description,omitempty"`
	Date        any                       `json:"date,omitempty"`
	Venue       string                    `json:"venue,omitempty"`
	Open        bool                      `json:"open"`
	Deadline    any                       `json:"deadline,omitempty"`
	FormFields  []programmodels.FormField `json:"form_fields,omitempty"`
}

func (h *Handler) handleGetForm(w http.ResponseWriter, r *http.Request) {
	program, err := h.programs.FindBySlug(r.Context(), chi.URLParam(r, "slug"))
	if errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "program not found"))
		return
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	view := formView{
		Name:        program.Name,
		Description: program.Description,
		Venue:       program.Venue,
		Open:        program.Registration.Open,
		FormFields:  program.Registration.FormFields,
	}
	if program.Date != nil {
		view.Date = program.Date
	}
	if program.Registration.Deadline != nil {
		view.Deadline = program.Registration.Deadline
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[RegisterRequest](w, r)
	if !ok {
		return
	}
	participant, err := h.service.Register(r.Context(), registrationservice.Request{
		ProgramRef: chi.URLParam(r, "slug"),
		Attributes: participantmodels.Attributes{
			FullName:       req.FullName,
			Email:          req.Email,
			Phone:          req.Phone,
			Gender:         req.Gender,
			Organization:   req.Organization,
			State:          req.State,
			AgeGroup:       req.AgeGroup,
			ReferralSource: req.ReferralSource,
		},
		Answers: req.Answers,
		Consent: req.Consent,
	})
	if err != nil {
		h.logger.InfoContext(r.Context(), "registration rejected",
			"slug", chi.URLParam(r, "slug"), "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, participant)
}
