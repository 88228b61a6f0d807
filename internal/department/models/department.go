// Package models defines departments, the organizational unit the overview
// engine scores.
package models

import (
	"time"

	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
)

// Department owns programs and staff. KPITargets and KPIWeights override the
// engine defaults per metric key; absent keys fall back to the defaults.
type Department struct {
	ID         id.DepartmentID    `json:"id"`
	Name       string             `json:"name"`
	StaffCount int                `json:"staff_count,omitempty"`
	KPITargets map[string]float64 `json:"kpi_targets,omitempty"`
	KPIWeights map[string]float64 `json:"kpi_weights,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// New creates a department.
func New(departmentID id.DepartmentID, name string, now time.Time) (*Department, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "department name is required")
	}
	return &Department{
		ID:        departmentID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Target returns the department's target for a metric, or the fallback.
func (d *Department) Target(metric string, fallback float64) float64 {
	if v, ok := d.KPITargets[metric]; ok {
		return v
	}
	return fallback
}

// Weight returns the department's weight for a metric, or the fallback.
func (d *Department) Weight(metric string, fallback float64) float64 {
	if v, ok := d.KPIWeights[metric]; ok {
		return v
	}
	return fallback
}
