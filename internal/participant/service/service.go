// Package service resolves contact attempts into canonical participants and
// manages program membership across every entry channel.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cohort/internal/participant/models"
	participantstore "cohort/internal/participant/store"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/email"
	"cohort/pkg/platform/audit"
	"cohort/pkg/platform/sentinel"
	"cohort/pkg/requestcontext"

	participantmetrics "cohort/internal/participant/metrics"
)

// Channel names how a registration arrived.
type Channel string

const (
	ChannelSelfService Channel = "self_service"
	ChannelManual      Channel = "manual"
	ChannelBulkImport  Channel = "bulk_import"
)

// createRetries bounds how often Resolve retries when another request
// creates the same contact identity concurrently.
const createRetries = 3

// ProgramLinker is the program-side half of membership. The program store
// satisfies it.
type ProgramLinker interface {
	AddParticipant(ctx context.Context, programID id.ProgramID, participantID id.ParticipantID, now time.Time) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Resolver owns participant identity: one person, one record, no matter how
// many channels they arrive through.
type Resolver struct {
	participants   participantstore.Store
	programs       ProgramLinker
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *participantmetrics.Metrics
}

type Option func(r *Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(r *Resolver) {
		r.auditPublisher = publisher
	}
}

func WithMetrics(m *participantmetrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// NewResolver constructs a Resolver.
func NewResolver(participants participantstore.Store, programs ProgramLinker, opts ...Option) *Resolver {
	r := &Resolver{participants: participants, programs: programs}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Resolve finds or creates the canonical participant for a contact attempt.
// A record matching the attempt's email or phone is merged with the new
// attributes; otherwise a fresh record is created. When a concurrent request
// creates the same identity first, the storage conflict is retried as a
// merge against the winner's record.
func (r *Resolver) Resolve(ctx context.Context, attrs models.Attributes) (*models.Participant, error) {
	if !attrs.HasContact() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "email or phone is required")
	}
	now := requestcontext.Now(ctx)

	for attempt := 0; attempt < createRetries; attempt++ {
		existing, err := r.participants.FindByContact(ctx, attrs.Email, attrs.Phone)
		if err == nil {
			return r.merge(ctx, existing.ID, attrs, now)
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up participant")
		}

		// A fresh record still gets a displayable name; a derived name
		// never overwrites one a matched record already carries.
		createAttrs := attrs
		if createAttrs.FullName == "" && createAttrs.Email != "" {
			createAttrs.FullName = email.FullNameFromEmail(createAttrs.Email)
		}
		p, err := models.New(id.NewParticipantID(), createAttrs, now)
		if err != nil {
			return nil, err
		}
		err = r.participants.Create(ctx, p)
		if err == nil {
			r.incrementResolved("created")
			return p, nil
		}
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost the race to another request for this identity. Loop
			// back and merge into the winner's record.
			continue
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create participant")
	}
	return nil, dErrors.New(dErrors.CodeConflict, "could not resolve participant identity")
}

func (r *Resolver) merge(ctx context.Context, participantID id.ParticipantID, attrs models.Attributes, now time.Time) (*models.Participant, error) {
	merged, err := r.participants.Execute(ctx, participantID,
		func(*models.Participant) error { return nil },
		func(p *models.Participant) { p.Reconcile(attrs, now) },
	)
	if errors.Is(err, sentinel.ErrConflict) {
		// A contact field the merge would fill already belongs to another
		// record. The matched contact keeps the identity; the contended
		// field stays with its owner, so re-merge without the contacts.
		reduced := attrs
		reduced.Email = ""
		reduced.Phone = ""
		merged, err = r.participants.Execute(ctx, participantID,
			func(*models.Participant) error { return nil },
			func(p *models.Participant) { p.Reconcile(reduced, now) },
		)
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "participant not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to merge participant")
	}
	r.incrementResolved("merged")
	return merged, nil
}

// Get fetches a participant by ID.
func (r *Resolver) Get(ctx context.Context, participantID id.ParticipantID) (*models.Participant, error) {
	p, err := r.participants.FindByID(ctx, participantID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "participant not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load participant")
	}
	return p, nil
}

// LinkToProgram records the participant's membership in a program on both
// sides of the relation. Membership is unique: a duplicate attempt from the
// self-service channel is rejected as already registered, while internal
// channels treat it as a no-op.
func (r *Resolver) LinkToProgram(ctx context.Context, participantID id.ParticipantID, programID id.ProgramID, channel Channel) error {
	now := requestcontext.Now(ctx)

	err := r.programs.AddParticipant(ctx, programID, participantID, now)
	switch {
	case errors.Is(err, sentinel.ErrAlreadyLinked):
		if channel == ChannelSelfService {
			return dErrors.New(dErrors.CodeAlreadyRegistered, "participant is already registered for this program")
		}
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "program not found")
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to link participant to program")
	}

	err = r.participants.AddProgram(ctx, participantID, programID, now)
	switch {
	case errors.Is(err, sentinel.ErrAlreadyLinked):
		// Program side was the source of truth; tolerate a repaired record.
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "participant not found")
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to link program to participant")
	}

	r.incrementLinked(channel)
	return nil
}

// ImportResult summarizes a bulk import run.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// BulkImport resolves each row and links it to the program. Rows without a
// contact method are skipped, and rows already registered count as imported
// without effect. A row that fails for any other reason aborts the run.
func (r *Resolver) BulkImport(ctx context.Context, programID id.ProgramID, rows []models.Attributes) (ImportResult, error) {
	var result ImportResult
	for _, attrs := range rows {
		if !attrs.HasContact() {
			result.Skipped++
			if r.metrics != nil {
				r.metrics.SkippedRows.Inc()
			}
			continue
		}
		p, err := r.Resolve(ctx, attrs)
		if err != nil {
			return result, err
		}
		if err := r.LinkToProgram(ctx, p.ID, programID, ChannelBulkImport); err != nil {
			return result, err
		}
		result.Imported++
		if r.metrics != nil {
			r.metrics.ImportedRows.Inc()
		}
	}

	r.emitAudit(ctx, audit.Event{
		Action:    audit.ActionParticipantsImported,
		ActorID:   requestcontext.UserID(ctx),
		ProgramID: programID,
		Channel:   string(ChannelBulkImport),
		Reason:    importSummary(result),
	})
	r.logger.InfoContext(ctx, "bulk import finished",
		"program_id", programID,
		"imported", result.Imported,
		"skipped", result.Skipped,
	)
	return result, nil
}

func (r *Resolver) emitAudit(ctx context.Context, event audit.Event) {
	if r.auditPublisher == nil {
		return
	}
	if err := r.auditPublisher.Emit(ctx, event); err != nil {
		r.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}

func (r *Resolver) incrementResolved(outcome string) {
	if r.metrics != nil {
		r.metrics.IncrementResolved(outcome)
	}
}

func (r *Resolver) incrementLinked(channel Channel) {
	if r.metrics != nil {
		r.metrics.IncrementLinked(string(channel))
	}
}

func importSummary(result ImportResult) string {
	return fmt.Sprintf("imported=%d skipped=%d", result.Imported, result.Skipped)
}
