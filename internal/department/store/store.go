// Package departmentstore persists departments.
package departmentstore

import (
	"context"

	"cohort/internal/department/models"
	id "cohort/pkg/domain"
)

// Store is the persistence boundary for departments.
type Store interface {
	Create(ctx context.Context, d *models.Department) error
	FindByID(ctx context.Context, departmentID id.DepartmentID) (*models.Department, error)
	List(ctx context.Context) ([]*models.Department, error)

	// SetKPIOverrides replaces the department's per-metric target and
	// weight overrides.
	SetKPIOverrides(ctx context.Context, departmentID id.DepartmentID, targets, weights map[string]float64) (*models.Department, error)
}
