package programstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"cohort/internal/program/models"
	id "cohort/pkg/domain"
	"cohort/pkg/platform/sentinel"
)

// InMemoryStore implements Store with mutex-guarded maps. The slug index
// doubles as the uniqueness constraint the postgres implementation gets from
// its unique index.
type InMemoryStore struct {
	mu       sync.RWMutex
	programs map[id.ProgramID]*models.Program
	bySlug   map[string]id.ProgramID
	counters map[id.ProgramID]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		programs: make(map[id.ProgramID]*models.Program),
		bySlug:   make(map[string]id.ProgramID),
		counters: make(map[id.ProgramID]int),
	}
}

func (s *InMemoryStore) Create(_ context.Context, p *models.Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slug := p.Registration.LinkSlug; slug != "" {
		if _, taken := s.bySlug[slug]; taken {
			return sentinel.ErrConflict
		}
		s.bySlug[slug] = p.ID
	}
	s.programs[p.ID] = cloneProgram(p)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, programID id.ProgramID) (*models.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.programs[programID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneProgram(p), nil
}

func (s *InMemoryStore) FindBySlug(_ context.Context, linkSlug string) (*models.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	programID, ok := s.bySlug[linkSlug]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneProgram(s.programs[programID]), nil
}

func (s *InMemoryStore) ListByParent(_ context.Context, parentID id.ProgramID) ([]*models.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Program
	for _, p := range s.programs {
		if p.ParentID != nil && *p.ParentID == parentID {
			out = append(out, cloneProgram(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) ListByDepartmentCreatedBetween(_ context.Context, departmentID id.DepartmentID, from, to time.Time) ([]*models.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Program
	for _, p := range s.programs {
		if p.DepartmentID != departmentID {
			continue
		}
		if p.CreatedAt.Before(from) || p.CreatedAt.After(to) {
			continue
		}
		out = append(out, cloneProgram(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) AllocateBatchNumber(_ context.Context, parentID id.ProgramID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.programs[parentID]; !ok {
		return 0, sentinel.ErrNotFound
	}
	s.counters[parentID]++
	return s.counters[parentID], nil
}

func (s *InMemoryStore) AddParticipant(_ context.Context, programID id.ProgramID, participantID id.ParticipantID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.programs[programID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if p.HasParticipant(participantID) {
		return sentinel.ErrAlreadyLinked
	}
	p.AddParticipant(participantID, now)
	return nil
}

func (s *InMemoryStore) Execute(_ context.Context, programID id.ProgramID, validate func(*models.Program) error, mutate func(*models.Program)) (*models.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.programs[programID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	mutate(p)
	return cloneProgram(p), nil
}

// cloneProgram deep-copies a program so callers can never mutate store state
// through a returned pointer.
func cloneProgram(p *models.Program) *models.Program {
	cp := *p
	if p.ParentID != nil {
		v := *p.ParentID
		cp.ParentID = &v
	}
	if p.Date != nil {
		v := *p.Date
		cp.Date = &v
	}
	if p.ApprovedAt != nil {
		v := *p.ApprovedAt
		cp.ApprovedAt = &v
	}
	if p.Completion != nil {
		v := *p.Completion
		cp.Completion = &v
	}
	if p.Registration.Deadline != nil {
		v := *p.Registration.Deadline
		cp.Registration.Deadline = &v
	}
	cp.Registration.FormFields = make([]models.FormField, len(p.Registration.FormFields))
	for i, f := range p.Registration.FormFields {
		cp.Registration.FormFields[i] = f
		cp.Registration.FormFields[i].Options = append([]string(nil), f.Options...)
	}
	cp.Participants = append([]id.ParticipantID(nil), p.Participants...)
	cp.Updates = append([]models.Update(nil), p.Updates...)
	return &cp
}
