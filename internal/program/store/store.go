// Package programstore persists programs. Services depend on the Store
// interface; memory and postgres implementations are provided.
package programstore

import (
	"context"
	"time"

	"cohort/internal/program/models"
	id "cohort/pkg/domain"
)

// Store is the persistence boundary for programs.
//
// Uniqueness of Registration.LinkSlug is a storage concern: Create returns
// sentinel.ErrConflict when the slug is taken so callers can regenerate and
// retry. Batch numbers are allocated through AllocateBatchNumber, an atomic
// per-parent counter, never by read-max-then-write.
type Store interface {
	// Create inserts a new program. Returns sentinel.ErrConflict when the
	// program's link slug is already taken.
	Create(ctx context.Context, p *models.Program) error

	FindByID(ctx context.Context, programID id.ProgramID) (*models.Program, error)

	// FindBySlug resolves a program by its registration link slug.
	FindBySlug(ctx context.Context, linkSlug string) (*models.Program, error)

	ListByParent(ctx context.Context, parentID id.ProgramID) ([]*models.Program, error)

	// ListByDepartmentCreatedBetween returns programs of a department created
	// in [from, to], newest first. Feeds the overview engine read-only.
	ListByDepartmentCreatedBetween(ctx context.Context, departmentID id.DepartmentID, from, to time.Time) ([]*models.Program, error)

	// AllocateBatchNumber atomically reserves the next batch number for a
	// Numerical parent, starting at 1. Allocations are unique and
	// monotonically increasing per parent under concurrency.
	AllocateBatchNumber(ctx context.Context, parentID id.ProgramID) (int, error)

	// AddParticipant adds a participant to the program's membership set.
	// Returns sentinel.ErrAlreadyLinked when the membership already exists
	// and sentinel.ErrNotFound when the program does not.
	AddParticipant(ctx context.Context, programID id.ProgramID, participantID id.ParticipantID, now time.Time) error

	// Execute atomically validates and mutates a program. The store holds
	// its lock (mutex or SELECT ... FOR UPDATE) across both callbacks, so
	// validate sees the state mutate will act on. A validate error aborts
	// without writing.
	Execute(ctx context.Context, programID id.ProgramID, validate func(*models.Program) error, mutate func(*models.Program)) (*models.Program, error)
}
