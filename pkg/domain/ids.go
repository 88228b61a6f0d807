// Package domain defines typed identifiers shared across modules.
//
// Each entity gets its own UUID-backed type so a ParticipantID can never be
// passed where a ProgramID is expected. Parse functions enforce the trust
// boundary rule that IDs must be valid, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "cohort/pkg/domain-errors"
)

type (
	// ProgramID identifies a program (blueprint or instance).
	ProgramID uuid.UUID
	// ParticipantID identifies a canonical participant record.
	ParticipantID uuid.UUID
	// DepartmentID identifies a department.
	DepartmentID uuid.UUID
	// UserID identifies an acting staff user supplied by the caller.
	UserID uuid.UUID
)

func (id ProgramID) String() string     { return uuid.UUID(id).String() }
func (id ParticipantID) String() string { return uuid.UUID(id).String() }
func (id DepartmentID) String() string  { return uuid.UUID(id).String() }
func (id UserID) String() string        { return uuid.UUID(id).String() }

func (id ProgramID) IsZero() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ParticipantID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id DepartmentID) IsZero() bool  { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsZero() bool        { return uuid.UUID(id) == uuid.Nil }

// The ID types marshal as canonical UUID strings, not byte arrays.

func (id ProgramID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id ParticipantID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id DepartmentID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id UserID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }

func (id *ProgramID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ParticipantID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *DepartmentID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *UserID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }

// NewProgramID returns a fresh random program ID.
func NewProgramID() ProgramID { return ProgramID(uuid.New()) }

// NewParticipantID returns a fresh random participant ID.
func NewParticipantID() ParticipantID { return ParticipantID(uuid.New()) }

// NewDepartmentID returns a fresh random department ID.
func NewDepartmentID() DepartmentID { return DepartmentID(uuid.New()) }

// NewUserID returns a fresh random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}

// ParseProgramID parses and validates a program ID string.
func ParseProgramID(s string) (ProgramID, error) {
	u, err := parseUUID(s)
	return ProgramID(u), err
}

// ParseParticipantID parses and validates a participant ID string.
func ParseParticipantID(s string) (ParticipantID, error) {
	u, err := parseUUID(s)
	return ParticipantID(u), err
}

// ParseDepartmentID parses and validates a department ID string.
func ParseDepartmentID(s string) (DepartmentID, error) {
	u, err := parseUUID(s)
	return DepartmentID(u), err
}

// ParseUserID parses and validates a user ID string.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	return UserID(u), err
}
