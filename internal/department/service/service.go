// Package service manages departments and their KPI overrides.
package service

import (
	"context"
	"errors"
	"log/slog"

	"cohort/internal/department/models"
	departmentstore "cohort/internal/department/store"
	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/platform/sentinel"
	"cohort/pkg/requestcontext"
)

// Service orchestrates department management.
type Service struct {
	departments departmentstore.Store
	logger      *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs a Service.
func New(departments departmentstore.Store, opts ...Option) *Service {
	s := &Service{departments: departments}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Create adds a department.
func (s *Service) Create(ctx context.Context, name string) (*models.Department, error) {
	d, err := models.New(id.NewDepartmentID(), name, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.departments.Create(ctx, d); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "department already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create department")
	}
	s.logger.InfoContext(ctx, "department created", "department_id", d.ID, "name", d.Name)
	return d, nil
}

// Get fetches a department by ID.
func (s *Service) Get(ctx context.Context, departmentID id.DepartmentID) (*models.Department, error) {
	d, err := s.departments.FindByID(ctx, departmentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "department not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load department")
	}
	return d, nil
}

// List returns all departments.
func (s *Service) List(ctx context.Context) ([]*models.Department, error) {
	departments, err := s.departments.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list departments")
	}
	return departments, nil
}

// SetKPIOverrides replaces a department's per-metric target and weight
// overrides. Negative values are rejected; a missing key falls back to the
// engine default.
func (s *Service) SetKPIOverrides(ctx context.Context, departmentID id.DepartmentID, targets, weights map[string]float64) (*models.Department, error) {
	for metric, v := range targets {
		if v < 0 {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "target for %q must not be negative", metric)
		}
	}
	for metric, v := range weights {
		if v < 0 {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "weight for %q must not be negative", metric)
		}
	}

	d, err := s.departments.SetKPIOverrides(ctx, departmentID, targets, weights)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "department not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update kpi overrides")
	}
	s.logger.InfoContext(ctx, "kpi overrides updated", "department_id", departmentID)
	return d, nil
}
