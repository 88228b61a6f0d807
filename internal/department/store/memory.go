package departmentstore

import (
	"context"
	"sort"
	"sync"

	"cohort/internal/department/models"
	id "cohort/pkg/domain"
	"cohort/pkg/platform/sentinel"
	"cohort/pkg/requestcontext"
)

// InMemoryStore implements Store with a mutex-guarded map.
type InMemoryStore struct {
	mu          sync.RWMutex
	departments map[id.DepartmentID]*models.Department
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{departments: make(map[id.DepartmentID]*models.Department)}
}

func (s *InMemoryStore) Create(_ context.Context, d *models.Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.departments[d.ID]; taken {
		return sentinel.ErrConflict
	}
	s.departments[d.ID] = cloneDepartment(d)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, departmentID id.DepartmentID) (*models.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.departments[departmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneDepartment(d), nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Department, 0, len(s.departments))
	for _, d := range s.departments {
		out = append(out, cloneDepartment(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemoryStore) SetKPIOverrides(ctx context.Context, departmentID id.DepartmentID, targets, weights map[string]float64) (*models.Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.departments[departmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	d.KPITargets = cloneOverrides(targets)
	d.KPIWeights = cloneOverrides(weights)
	d.UpdatedAt = requestcontext.Now(ctx)
	return cloneDepartment(d), nil
}

func cloneDepartment(d *models.Department) *models.Department {
	cp := *d
	cp.KPITargets = cloneOverrides(d.KPITargets)
	cp.KPIWeights = cloneOverrides(d.KPIWeights)
	return &cp
}

func cloneOverrides(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
