package departmentstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"cohort/internal/department/models"
	id "cohort/pkg/domain"
	"cohort/pkg/platform/sentinel"
	"cohort/pkg/requestcontext"
)

// PostgresStore persists departments in PostgreSQL. KPI overrides live in
// JSONB columns keyed by metric.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const departmentColumns = `id, name, staff_count, kpi_targets, kpi_weights, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, d *models.Department) error {
	targets, weights, err := marshalOverrides(d.KPITargets, d.KPIWeights)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO departments (`+departmentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		uuid.UUID(d.ID), d.Name, d.StaffCount, targets, weights, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert department: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, departmentID id.DepartmentID) (*models.Department, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+departmentColumns+` FROM departments WHERE id = $1`, uuid.UUID(departmentID))
	return scanDepartment(row)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Department, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+departmentColumns+` FROM departments ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	var out []*models.Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SetKPIOverrides(ctx context.Context, departmentID id.DepartmentID, targets, weights map[string]float64) (*models.Department, error) {
	targetsJSON, weightsJSON, err := marshalOverrides(targets, weights)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE departments SET kpi_targets = $2, kpi_weights = $3, updated_at = $4
		WHERE id = $1
		RETURNING `+departmentColumns,
		uuid.UUID(departmentID), targetsJSON, weightsJSON, requestcontext.Now(ctx))
	return scanDepartment(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDepartment(row rowScanner) (*models.Department, error) {
	var (
		d            models.Department
		departmentID uuid.UUID
		targets      []byte
		weights      []byte
	)
	err := row.Scan(&departmentID, &d.Name, &d.StaffCount, &targets, &weights,
		&d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan department: %w", err)
	}

	d.ID = id.DepartmentID(departmentID)
	if err := json.Unmarshal(targets, &d.KPITargets); err != nil {
		return nil, fmt.Errorf("unmarshal kpi targets: %w", err)
	}
	if err := json.Unmarshal(weights, &d.KPIWeights); err != nil {
		return nil, fmt.Errorf("unmarshal kpi weights: %w", err)
	}
	if len(d.KPITargets) == 0 {
		d.KPITargets = nil
	}
	if len(d.KPIWeights) == 0 {
		d.KPIWeights = nil
	}
	return &d, nil
}

func marshalOverrides(targets, weights map[string]float64) ([]byte, []byte, error) {
	targetsJSON, err := marshalOverrideMap(targets)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal kpi targets: %w", err)
	}
	weightsJSON, err := marshalOverrideMap(weights)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal kpi weights: %w", err)
	}
	return targetsJSON, weightsJSON, nil
}

func marshalOverrideMap(m map[string]float64) ([]byte, error) {
	if m == nil {
		return []byte(`{}`), nil
	}
	return json.Marshal(m)
}
