// Package service owns the program hierarchy: creating blueprints, standalone
// programs, and derived instances, and running the status machine.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cohort/internal/platform/middleware"
	programmetrics "cohort/internal/program/metrics"
	"cohort/internal/program/models"
	"cohort/internal/program/slug"
	programstore "cohort/internal/program/store"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/platform/audit"
	"cohort/pkg/platform/sentinel"
	"cohort/pkg/requestcontext"
)

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Manager creates and mutates programs. One blueprint can spawn many
// instances; the manager enforces that the parent chain never grows deeper
// than one level.
type Manager struct {
	programs       programstore.Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *programmetrics.Metrics
}

type Option func(m *Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(m *Manager) {
		m.auditPublisher = publisher
	}
}

func WithMetrics(metrics *programmetrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// NewManager constructs a Manager.
func NewManager(programs programstore.Store, opts ...Option) *Manager {
	m := &Manager{programs: programs}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// CreateProgramInput describes a blueprint or standalone program.
type CreateProgramInput struct {
	DepartmentID      id.DepartmentID
	Name              string
	Description       string
	Structure         models.Structure
	Date              *time.Time
	Venue             string
	Cost              float64
	RegistrationOpen  bool
	Deadline          *time.Time
	FormFields        []models.FormField
	ParticipantsCount int
	StartupsCount     int
}

// CreateProgram creates a top-level program. A Recurring or Numerical program
// becomes a blueprint: it gets no date and no registration slug, existing
// only as a template for instances. A OneTime program is a concrete event and
// receives both. Programs created by an admin are approved directly;
// everything else starts pending.
func (m *Manager) CreateProgram(ctx context.Context, input CreateProgramInput) (*models.Program, error) {
	if input.Name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "program name is required")
	}
	if !input.Structure.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown structure %q", input.Structure)
	}
	if input.DepartmentID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "department is required")
	}
	if err := models.ValidateSchema(input.FormFields); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	p := &models.Program{
		ID:           id.NewProgramID(),
		DepartmentID: input.DepartmentID,
		Name:         input.Name,
		Description:  input.Description,
		Structure:    input.Structure,
		Venue:        input.Venue,
		Cost:         input.Cost,
		Registration: models.Registration{
			Open:       input.RegistrationOpen,
			Deadline:   input.Deadline,
			FormFields: input.FormFields,
		},
		ParticipantsCount: input.ParticipantsCount,
		StartupsCount:     input.StartupsCount,
		Status:            models.StatusPending,
		CreatedBy:         requestcontext.UserID(ctx),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if input.Structure == models.StructureOneTime {
		if input.Date == nil {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "one-time programs require a date")
		}
		p.Date = input.Date
		p.Registration.LinkSlug = slug.New(input.Name, "")
	} else {
		// A blueprint is only a template: it gets no slug and no date, so
		// it must never be registration-eligible either. Its instances
		// declare their own registration windows.
		p.Registration.Open = false
		p.Registration.Deadline = nil
	}

	if requestcontext.Role(ctx) == middleware.RoleAdmin {
		if err := p.ApplyStatus(models.StatusApproved, now); err != nil {
			return nil, err
		}
	}

	if err := m.createWithSlugRetry(ctx, p); err != nil {
		return nil, err
	}

	m.emitAudit(ctx, audit.Event{
		Action:       audit.ActionProgramCreated,
		ActorID:      p.CreatedBy,
		ProgramID:    p.ID,
		DepartmentID: p.DepartmentID,
	})
	if m.metrics != nil {
		m.metrics.Created.WithLabelValues(string(p.Structure)).Inc()
	}
	m.logger.InfoContext(ctx, "program created",
		"program_id", p.ID, "structure", p.Structure, "status", p.Status)
	return p, nil
}

// CreateInstanceInput describes an instance derived from a blueprint. Venue
// and Cost are inherited from the parent unless overridden.
type CreateInstanceInput struct {
	ParentID          id.ProgramID
	CustomSuffix      string
	Description       string
	Date              time.Time
	Venue             *string
	Cost              *float64
	RegistrationOpen  bool
	Deadline          *time.Time
	FormFields        []models.FormField
	ParticipantsCount int
	StartupsCount     int
}

// CreateInstance derives a concrete occurrence from a blueprint. A Numerical
// parent numbers its instances with an atomically allocated batch number; a
// Recurring parent labels them by date unless a custom suffix is supplied.
// Instances always get a date and a registration slug.
func (m *Manager) CreateInstance(ctx context.Context, input CreateInstanceInput) (*models.Program, error) {
	parent, err := m.programs.FindByID(ctx, input.ParentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "parent program not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load parent program")
	}
	if parent.IsInstance() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "cannot derive an instance from another instance")
	}
	if parent.Structure == models.StructureOneTime {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "one-time programs cannot have instances")
	}
	if input.Date.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "instance date is required")
	}
	if err := models.ValidateSchema(input.FormFields); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	parentID := parent.ID
	date := input.Date
	p := &models.Program{
		ID:           id.NewProgramID(),
		DepartmentID: parent.DepartmentID,
		Description:  input.Description,
		Structure:    parent.Structure,
		ParentID:     &parentID,
		Date:         &date,
		Venue:        parent.Venue,
		Cost:         parent.Cost,
		Registration: models.Registration{
			Open:       input.RegistrationOpen,
			Deadline:   input.Deadline,
			FormFields: input.FormFields,
		},
		ParticipantsCount: input.ParticipantsCount,
		StartupsCount:     input.StartupsCount,
		Status:            models.StatusPending,
		CreatedBy:         requestcontext.UserID(ctx),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if input.Venue != nil {
		p.Venue = *input.Venue
	}
	if input.Cost != nil {
		p.Cost = *input.Cost
	}

	switch parent.Structure {
	case models.StructureNumerical:
		n, err := m.programs.AllocateBatchNumber(ctx, parent.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate batch number")
		}
		p.BatchNumber = n
		p.VersionLabel = input.CustomSuffix
		if p.VersionLabel == "" {
			p.VersionLabel = fmt.Sprintf("Batch %d", n)
		}
	case models.StructureRecurring:
		p.VersionLabel = input.CustomSuffix
		if p.VersionLabel == "" {
			p.VersionLabel = date.Format("January 2, 2006")
		}
	}
	p.Name = parent.Name + " - " + p.VersionLabel
	p.Registration.LinkSlug = slug.New(parent.Name, p.VersionLabel)

	if requestcontext.Role(ctx) == middleware.RoleAdmin {
		if err := p.ApplyStatus(models.StatusApproved, now); err != nil {
			return nil, err
		}
	}

	if err := m.createWithSlugRetry(ctx, p); err != nil {
		return nil, err
	}

	m.emitAudit(ctx, audit.Event{
		Action:       audit.ActionProgramDerived,
		ActorID:      p.CreatedBy,
		ProgramID:    p.ID,
		DepartmentID: p.DepartmentID,
		Reason:       "parent=" + parent.ID.String(),
	})
	if m.metrics != nil {
		m.metrics.Derived.WithLabelValues(string(parent.Structure)).Inc()
	}
	m.logger.InfoContext(ctx, "program instance created",
		"program_id", p.ID, "parent_id", parent.ID, "batch_number", p.BatchNumber)
	return p, nil
}

// createWithSlugRetry inserts the program, regenerating the slug once when
// the storage constraint reports a collision of the random token.
func (m *Manager) createWithSlugRetry(ctx context.Context, p *models.Program) error {
	err := m.programs.Create(ctx, p)
	if errors.Is(err, sentinel.ErrConflict) && p.Registration.LinkSlug != "" {
		if m.metrics != nil {
			m.metrics.SlugRetries.Inc()
		}
		p.Registration.LinkSlug = slug.New(p.Name, p.VersionLabel)
		err = m.programs.Create(ctx, p)
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.New(dErrors.CodeConflict, "registration link is already taken")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create program")
	}
	return nil
}

// Get fetches a program by ID.
func (m *Manager) Get(ctx context.Context, programID id.ProgramID) (*models.Program, error) {
	p, err := m.programs.FindByID(ctx, programID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "program not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load program")
	}
	return p, nil
}

// ListInstances returns all instances derived from a blueprint, oldest first.
func (m *Manager) ListInstances(ctx context.Context, parentID id.ProgramID) ([]*models.Program, error) {
	instances, err := m.programs.ListByParent(ctx, parentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list instances")
	}
	return instances, nil
}

// Transition reassigns a program's lifecycle status. Transitions are
// caller-authorized; the only refusal is Completed, which must go through
// Complete so the completion payload is never skipped.
func (m *Manager) Transition(ctx context.Context, programID id.ProgramID, next models.Status) (*models.Program, error) {
	now := requestcontext.Now(ctx)
	var previous models.Status
	p, err := m.programs.Execute(ctx, programID,
		func(p *models.Program) error {
			if !next.Valid() {
				return dErrors.Newf(dErrors.CodeInvalidInput, "unknown status %q", next)
			}
			if next == models.StatusCompleted {
				return dErrors.New(dErrors.CodeInvalidInput, "completion requires the completion payload")
			}
			previous = p.Status
			return nil
		},
		func(p *models.Program) {
			_ = p.ApplyStatus(next, now)
		},
	)
	if err != nil {
		return nil, m.wrapExecuteErr(err)
	}

	m.emitAudit(ctx, audit.Event{
		Action:       audit.ActionProgramStatusChanged,
		ActorID:      requestcontext.UserID(ctx),
		ProgramID:    p.ID,
		DepartmentID: p.DepartmentID,
		Reason:       "from=" + string(previous),
	})
	if m.metrics != nil {
		m.metrics.StatusChanged.WithLabelValues(string(next)).Inc()
	}
	m.logger.InfoContext(ctx, "program status changed",
		"program_id", p.ID, "from", previous, "to", next)
	return p, nil
}

// CompleteInput is the bookkeeping recorded when a program finishes.
type CompleteInput struct {
	ActualAttendance int
	ActualStart      time.Time
	ActualEnd        time.Time
	DriveLink        string
	FinalDocument    string
	AmountDisbursed  float64
	// Comment, when present, is appended to the update thread as a
	// completion note rather than discarded.
	Comment string
}

// Complete transitions the program into Completed and records the completion
// payload. Unset actual dates default to the originally scheduled date.
func (m *Manager) Complete(ctx context.Context, programID id.ProgramID, input CompleteInput) (*models.Program, error) {
	now := requestcontext.Now(ctx)
	actorID := requestcontext.UserID(ctx)
	completion := models.Completion{
		ActualAttendance: input.ActualAttendance,
		ActualStart:      input.ActualStart,
		ActualEnd:        input.ActualEnd,
		DriveLink:        input.DriveLink,
		FinalDocument:    input.FinalDocument,
		AmountDisbursed:  input.AmountDisbursed,
	}

	p, err := m.programs.Execute(ctx, programID,
		func(*models.Program) error { return nil },
		func(p *models.Program) {
			p.ApplyCompletion(completion, now)
			if input.Comment != "" {
				_ = p.AppendUpdate(actorID, input.Comment, true, now)
			}
		},
	)
	if err != nil {
		return nil, m.wrapExecuteErr(err)
	}

	m.emitAudit(ctx, audit.Event{
		Action:       audit.ActionProgramCompleted,
		ActorID:      actorID,
		ProgramID:    p.ID,
		DepartmentID: p.DepartmentID,
	})
	if m.metrics != nil {
		m.metrics.Completed.Inc()
	}
	m.logger.InfoContext(ctx, "program completed",
		"program_id", p.ID, "actual_attendance", completion.ActualAttendance)
	return p, nil
}

// AddUpdate appends an entry to the program's discussion thread.
func (m *Manager) AddUpdate(ctx context.Context, programID id.ProgramID, text string) (*models.Program, error) {
	now := requestcontext.Now(ctx)
	actorID := requestcontext.UserID(ctx)

	p, err := m.programs.Execute(ctx, programID,
		func(*models.Program) error {
			if text == "" {
				return dErrors.New(dErrors.CodeInvalidInput, "update text is required")
			}
			return nil
		},
		func(p *models.Program) {
			_ = p.AppendUpdate(actorID, text, false, now)
		},
	)
	if err != nil {
		return nil, m.wrapExecuteErr(err)
	}

	m.emitAudit(ctx, audit.Event{
		Action:       audit.ActionProgramUpdatePosted,
		ActorID:      actorID,
		ProgramID:    p.ID,
		DepartmentID: p.DepartmentID,
	})
	return p, nil
}

func (m *Manager) wrapExecuteErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "program not found")
	}
	var de *dErrors.DomainError
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "program mutation failed")
}

func (m *Manager) emitAudit(ctx context.Context, event audit.Event) {
	if m.auditPublisher == nil {
		return
	}
	if err := m.auditPublisher.Emit(ctx, event); err != nil {
		m.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
