package models

import (
	"time"

	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
)

// Structure describes how a program repeats.
type Structure string

const (
	// StructureOneTime is a standalone program with a single occurrence.
	StructureOneTime Structure = "one_time"
	// StructureRecurring repeats on dates; the blueprint has no date of its
	// own and each derived instance carries one.
	StructureRecurring Structure = "recurring"
	// StructureNumerical repeats as numbered batches derived from a
	// blueprint.
	StructureNumerical Structure = "numerical"
)

func (s Structure) Valid() bool {
	switch s {
	case StructureOneTime, StructureRecurring, StructureNumerical:
		return true
	}
	return false
}

// Status is a program's lifecycle state.
//
// Any state is administratively reassignable: the caller is trusted to have
// authorized the transition. The one rule the model enforces is that entering
// StatusCompleted must go through ApplyCompletion so the completion payload is
// always recorded.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Registration is the public-registration sub-object of a program.
type Registration struct {
	Open       bool        `json:"open"`
	Deadline   *time.Time  `json:"deadline,omitempty"`
	LinkSlug   string      `json:"link_slug,omitempty"`
	FormFields []FormField `json:"form_fields,omitempty"`
}

// Gate checks whether a registration may proceed at the given instant.
// Ordering matters: a manually closed program reports "closed" even when the
// deadline has also passed.
func (r Registration) Gate(now time.Time) error {
	if !r.Open {
		return dErrors.New(dErrors.CodeRegistrationClosed, "registration is closed")
	}
	if r.Deadline != nil && !now.Before(*r.Deadline) {
		return dErrors.Newf(dErrors.CodeRegistrationClosed,
			"registration deadline passed at %s", r.Deadline.UTC().Format(time.RFC3339))
	}
	return nil
}

// Update is one entry in a program's append-only discussion thread.
type Update struct {
	Text           string    `json:"text"`
	AuthorID       id.UserID `json:"author_id"`
	CreatedAt      time.Time `json:"created_at"`
	CompletionNote bool      `json:"completion_note,omitempty"`
}

// Completion holds the bookkeeping recorded when a program transitions into
// StatusCompleted.
type Completion struct {
	ActualAttendance int       `json:"actual_attendance"`
	ActualStart      time.Time `json:"actual_start"`
	ActualEnd        time.Time `json:"actual_end"`
	DriveLink        string    `json:"drive_link,omitempty"`
	FinalDocument    string    `json:"final_document,omitempty"`
	AmountDisbursed  float64   `json:"amount_disbursed,omitempty"`
}

// Documented reports whether the completion carries evidence (a drive link or
// final document). Feeds the documentation-compliance KPI.
func (c Completion) Documented() bool {
	return c.DriveLink != "" || c.FinalDocument != ""
}

// Program is either a blueprint (a Recurring/Numerical template with no
// parent, no date, and no slug) or a concrete program: a standalone one-time
// program or an instance derived from a blueprint.
//
// Invariants:
//   - An instance inherits Structure from its parent.
//   - The parent chain is at most one level deep: no instance of an instance.
//   - LinkSlug, when present, is globally unique (storage constraint).
//   - BatchNumber is set only on Numerical instances and is unique and
//     monotonically increasing per parent.
type Program struct {
	ID           id.ProgramID    `json:"id"`
	DepartmentID id.DepartmentID `json:"department_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Structure    Structure       `json:"structure"`

	ParentID     *id.ProgramID `json:"parent_id,omitempty"`
	BatchNumber  int           `json:"batch_number,omitempty"`
	VersionLabel string        `json:"version_label,omitempty"`

	Date  *time.Time `json:"date,omitempty"`
	Venue string     `json:"venue,omitempty"`
	Cost  float64    `json:"cost,omitempty"`

	Registration Registration `json:"registration"`

	// Participants materializes the program side of the program/participant
	// relation for query convenience. Membership is unique.
	Participants []id.ParticipantID `json:"participants,omitempty"`
	// ParticipantsCount is the expected/target headcount declared at
	// planning time. It is intentionally never reconciled with the actual
	// registered count; only the reach-rate KPI relates the two.
	ParticipantsCount int `json:"participants_count,omitempty"`
	StartupsCount     int `json:"startups_count,omitempty"`

	Status     Status      `json:"status"`
	Updates    []Update    `json:"updates,omitempty"`
	Completion *Completion `json:"completion,omitempty"`

	CreatedBy  id.UserID  `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

// IsBlueprint reports whether the program is a template rather than a
// concrete occurrence.
func (p *Program) IsBlueprint() bool {
	return p.ParentID == nil && p.Structure != StructureOneTime
}

// IsInstance reports whether the program was derived from a blueprint.
func (p *Program) IsInstance() bool {
	return p.ParentID != nil
}

// HasParticipant reports whether the participant is already a member.
func (p *Program) HasParticipant(participantID id.ParticipantID) bool {
	for _, existing := range p.Participants {
		if existing == participantID {
			return true
		}
	}
	return false
}

// AddParticipant appends a participant to the membership set. Callers must
// check HasParticipant first; the method is a no-op on duplicates so bulk
// import stays idempotent.
func (p *Program) AddParticipant(participantID id.ParticipantID, now time.Time) {
	if p.HasParticipant(participantID) {
		return
	}
	p.Participants = append(p.Participants, participantID)
	p.UpdatedAt = now
}

// ApplyStatus reassigns the lifecycle state. Transitions are caller-authorized
// and unrestricted except for StatusCompleted, which must go through
// ApplyCompletion so the completion payload is never skipped.
func (p *Program) ApplyStatus(next Status, now time.Time) error {
	if !next.Valid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown status %q", next)
	}
	if next == StatusCompleted {
		return dErrors.New(dErrors.CodeInvalidInput, "completion requires the completion payload")
	}
	if next == StatusApproved && p.ApprovedAt == nil {
		t := now
		p.ApprovedAt = &t
	}
	p.Status = next
	p.UpdatedAt = now
	return nil
}

// ApplyCompletion transitions the program into StatusCompleted and records the
// completion bookkeeping. A zero ActualStart/ActualEnd defaults to the
// originally scheduled date.
func (p *Program) ApplyCompletion(c Completion, now time.Time) {
	if c.ActualStart.IsZero() && p.Date != nil {
		c.ActualStart = *p.Date
	}
	if c.ActualEnd.IsZero() {
		if p.Date != nil {
			c.ActualEnd = *p.Date
		} else {
			c.ActualEnd = c.ActualStart
		}
	}
	p.Completion = &c
	p.Status = StatusCompleted
	p.UpdatedAt = now
}

// AppendUpdate adds an entry to the discussion thread. The thread is
// append-only: entries are never edited or deleted and carry no size cap.
func (p *Program) AppendUpdate(authorID id.UserID, text string, completionNote bool, now time.Time) error {
	if text == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "update text is required")
	}
	p.Updates = append(p.Updates, Update{
		Text:           text,
		AuthorID:       authorID,
		CreatedAt:      now,
		CompletionNote: completionNote,
	})
	p.UpdatedAt = now
	return nil
}
