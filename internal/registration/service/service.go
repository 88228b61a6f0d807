// Package service runs the public registration workflow: resolve the program
// from its link, gate on open state and deadline, validate the form answers,
// and hand the contact to the identity resolver.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"cohort/internal/notify"
	participantmodels "cohort/internal/participant/models"
	participantservice "cohort/internal/participant/service"
	programmodels "cohort/internal/program/models"
	registrationmetrics "cohort/internal/registration/metrics"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/platform/audit"
	"cohort/pkg/platform/sentinel"
	"cohort/pkg/requestcontext"
)

// ProgramFinder resolves programs by slug or ID. The program store satisfies
// it.
type ProgramFinder interface {
	FindByID(ctx context.Context, programID id.ProgramID) (*programmodels.Program, error)
	FindBySlug(ctx context.Context, linkSlug string) (*programmodels.Program, error)
}

// IdentityResolver is the participant-side half of registration.
type IdentityResolver interface {
	Resolve(ctx context.Context, attrs participantmodels.Attributes) (*participantmodels.Participant, error)
	LinkToProgram(ctx context.Context, participantID id.ParticipantID, programID id.ProgramID, channel participantservice.Channel) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service processes registration requests.
type Service struct {
	programs       ProgramFinder
	resolver       IdentityResolver
	notifier       notify.Notifier
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *registrationmetrics.Metrics
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithNotifier(notifier notify.Notifier) Option {
	return func(s *Service) {
		s.notifier = notifier
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *registrationmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(programs ProgramFinder, resolver IdentityResolver, opts ...Option) *Service {
	s := &Service{
		programs: programs,
		resolver: resolver,
		tracer:   otel.Tracer("cohort/registration"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Request is one self-service registration attempt.
type Request struct {
	// ProgramRef is the registration link slug; a syntactically valid
	// program ID is accepted as a fallback for internal callers.
	ProgramRef string
	Attributes participantmodels.Attributes
	Answers    map[string]any
	Consent    bool
}

// Register processes a registration. Preconditions are checked in order,
// each a terminal rejection: the program must exist, registration must be
// open and before the deadline, consent must be given, and required form
// fields must be answered. On success the contact is resolved into a
// canonical participant and linked to the program, and a confirmation
// notification is dispatched best-effort.
func (s *Service) Register(ctx context.Context, req Request) (*participantmodels.Participant, error) {
	ctx, span := s.tracer.Start(ctx, "registration.register",
		trace.WithAttributes(attribute.String("program.ref", req.ProgramRef)))
	defer span.End()

	program, err := s.resolveProgram(ctx, req.ProgramRef)
	if err != nil {
		s.incrementOutcome("not_found")
		return nil, err
	}
	span.SetAttributes(attribute.String("program.id", program.ID.String()))

	if err := program.Registration.Gate(requestcontext.Now(ctx)); err != nil {
		s.incrementOutcome("closed")
		return nil, err
	}
	if !req.Consent {
		s.incrementOutcome("invalid")
		return nil, dErrors.New(dErrors.CodeInvalidInput, "consent is required")
	}
	if err := programmodels.ValidateAnswers(program.Registration.FormFields, req.Answers); err != nil {
		s.incrementOutcome("invalid")
		return nil, err
	}

	attrs := req.Attributes
	attrs.Data = mergeAnswers(attrs.Data, req.Answers)

	participant, err := s.resolver.Resolve(ctx, attrs)
	if err != nil {
		s.incrementOutcome("invalid")
		return nil, err
	}
	if err := s.resolver.LinkToProgram(ctx, participant.ID, program.ID, participantservice.ChannelSelfService); err != nil {
		if dErrors.HasCode(err, dErrors.CodeAlreadyRegistered) {
			s.incrementOutcome("duplicate")
		}
		return nil, err
	}

	s.emitAudit(ctx, audit.Event{
		Action:        audit.ActionParticipantRegistered,
		ProgramID:     program.ID,
		ParticipantID: participant.ID,
		DepartmentID:  program.DepartmentID,
		Channel:       string(participantservice.ChannelSelfService),
		DeviceName:    requestcontext.DeviceName(ctx),
		ClientIP:      requestcontext.ClientIP(ctx),
	})
	s.incrementOutcome("accepted")
	s.logger.InfoContext(ctx, "registration accepted",
		"program_id", program.ID, "participant_id", participant.ID)

	s.sendConfirmation(ctx, program, participant)
	return participant, nil
}

// resolveProgram looks the reference up as a slug first; only a reference
// that parses as a program ID falls back to direct lookup, so public links
// stay slug-shaped while internal callers can bypass them.
func (s *Service) resolveProgram(ctx context.Context, ref string) (*programmodels.Program, error) {
	program, err := s.programs.FindBySlug(ctx, ref)
	if err == nil {
		return program, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve program")
	}

	programID, idErr := id.ParseProgramID(ref)
	if idErr != nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "program not found")
	}
	program, err = s.programs.FindByID(ctx, programID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "program not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve program")
	}
	// Blueprints are templates, not concrete occurrences; the ID fallback
	// must not open a registration door their missing slug keeps shut.
	if program.IsBlueprint() {
		return nil, dErrors.New(dErrors.CodeNotFound, "program not found")
	}
	return program, nil
}

// sendConfirmation dispatches the confirmation without blocking or failing
// the registration. Context detachment keeps the send alive past the request.
func (s *Service) sendConfirmation(ctx context.Context, program *programmodels.Program, participant *participantmodels.Participant) {
	if s.notifier == nil {
		return
	}
	recipient := participant.Email
	if recipient == "" {
		recipient = participant.Phone
	}
	data := map[string]any{
		"program_name":     program.Name,
		"participant_name": participant.FullName,
	}
	if program.Date != nil {
		data["program_date"] = program.Date
	}

	go func() {
		if err := s.notifier.Notify(context.WithoutCancel(ctx), recipient, notify.TemplateRegistrationConfirmed, data); err != nil {
			s.logger.WarnContext(ctx, "confirmation notification failed",
				"program_id", program.ID, "participant_id", participant.ID, "error", err)
		}
	}()
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}

func (s *Service) incrementOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementRegistrations(outcome)
	}
}

func mergeAnswers(data, answers map[string]any) map[string]any {
	if len(answers) == 0 {
		return data
	}
	if data == nil {
		data = make(map[string]any, len(answers))
	}
	for k, v := range answers {
		if _, exists := data[k]; !exists {
			data[k] = v
		}
	}
	return data
}
