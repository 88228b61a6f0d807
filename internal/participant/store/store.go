// Package participantstore persists canonical participant records.
package participantstore

import (
	"context"
	"time"

	"cohort/internal/participant/models"
	id "cohort/pkg/domain"
)

// Store is the persistence boundary for participants.
//
// Email and phone are independently unique: Create returns
// sentinel.ErrConflict when either collides, which the resolver treats as
// "someone else created this person first" and retries as a merge.
type Store interface {
	// Create inserts a new participant. Returns sentinel.ErrConflict on an
	// email or phone uniqueness violation.
	Create(ctx context.Context, p *models.Participant) error

	FindByID(ctx context.Context, participantID id.ParticipantID) (*models.Participant, error)

	// FindByContact matches a participant whose stored email equals the
	// supplied email OR whose stored phone equals the supplied phone.
	// Empty arguments never match.
	FindByContact(ctx context.Context, email, phone string) (*models.Participant, error)

	// AddProgram adds a program to the participant's membership set.
	// Returns sentinel.ErrAlreadyLinked when already present and
	// sentinel.ErrNotFound when the participant does not exist.
	AddProgram(ctx context.Context, participantID id.ParticipantID, programID id.ProgramID, now time.Time) error

	// Execute atomically validates and mutates a participant, holding the
	// store lock across both callbacks.
	Execute(ctx context.Context, participantID id.ParticipantID, validate func(*models.Participant) error, mutate func(*models.Participant)) (*models.Participant, error)
}
