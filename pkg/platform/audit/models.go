package audit

import (
	"context"
	"time"

	id "cohort/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp     time.Time        `json:"timestamp"`
	Action        Action           `json:"action"`
	ActorID       id.UserID        `json:"actor_id,omitempty"`
	ProgramID     id.ProgramID     `json:"program_id,omitempty"`
	ParticipantID id.ParticipantID `json:"participant_id,omitempty"`
	DepartmentID  id.DepartmentID  `json:"department_id,omitempty"`
	// Reason carries transition or rejection detail (e.g. previous status).
	Reason string `json:"reason,omitempty"`
	// Channel distinguishes how a registration arrived: self_service,
	// manual, or bulk_import.
	Channel string `json:"channel,omitempty"`
	// DeviceName and ClientIP enrich self-service registration events for
	// security review. Empty for internal channels.
	DeviceName string `json:"device_name,omitempty"`
	ClientIP   string `json:"client_ip,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// Action names an auditable domain action.
type Action string

const (
	ActionProgramCreated        Action = "program_created"
	ActionProgramDerived        Action = "program_derived"
	ActionProgramStatusChanged  Action = "program_status_changed"
	ActionProgramCompleted      Action = "program_completed"
	ActionProgramUpdatePosted   Action = "program_update_posted"
	ActionParticipantRegistered Action = "participant_registered"
	ActionParticipantsImported  Action = "participants_imported"
)

// Store persists audit events append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByProgram(ctx context.Context, programID id.ProgramID) ([]Event, error)
}
