package participantstore

import (
	"context"
	"sync"
	"time"

	"cohort/internal/participant/models"
	id "cohort/pkg/domain"
	"cohort/pkg/platform/sentinel"
)

// InMemoryStore implements Store with mutex-guarded maps. The email and phone
// indexes double as the uniqueness constraints the postgres implementation
// gets from its unique indexes.
type InMemoryStore struct {
	mu           sync.RWMutex
	participants map[id.ParticipantID]*models.Participant
	byEmail      map[string]id.ParticipantID
	byPhone      map[string]id.ParticipantID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		participants: make(map[id.ParticipantID]*models.Participant),
		byEmail:      make(map[string]id.ParticipantID),
		byPhone:      make(map[string]id.ParticipantID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, p *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Email != "" {
		if _, taken := s.byEmail[p.Email]; taken {
			return sentinel.ErrConflict
		}
	}
	if p.Phone != "" {
		if _, taken := s.byPhone[p.Phone]; taken {
			return sentinel.ErrConflict
		}
	}
	if p.Email != "" {
		s.byEmail[p.Email] = p.ID
	}
	if p.Phone != "" {
		s.byPhone[p.Phone] = p.ID
	}
	s.participants[p.ID] = cloneParticipant(p)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, participantID id.ParticipantID) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[participantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneParticipant(p), nil
}

func (s *InMemoryStore) FindByContact(_ context.Context, email, phone string) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if email != "" {
		if participantID, ok := s.byEmail[email]; ok {
			return cloneParticipant(s.participants[participantID]), nil
		}
	}
	if phone != "" {
		if participantID, ok := s.byPhone[phone]; ok {
			return cloneParticipant(s.participants[participantID]), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) AddProgram(_ context.Context, participantID id.ParticipantID, programID id.ProgramID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[participantID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if p.HasProgram(programID) {
		return sentinel.ErrAlreadyLinked
	}
	p.AddProgram(programID, now)
	return nil
}

func (s *InMemoryStore) Execute(_ context.Context, participantID id.ParticipantID, validate func(*models.Participant) error, mutate func(*models.Participant)) (*models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.participants[participantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	updated := cloneParticipant(stored)
	if err := validate(updated); err != nil {
		return nil, err
	}
	mutate(updated)
	// Merges can fill a previously-missing contact field, but never with a
	// value another record owns: the indexes are the uniqueness constraints
	// the postgres implementation gets from its unique indexes.
	if updated.Email != "" {
		if owner, taken := s.byEmail[updated.Email]; taken && owner != updated.ID {
			return nil, sentinel.ErrConflict
		}
	}
	if updated.Phone != "" {
		if owner, taken := s.byPhone[updated.Phone]; taken && owner != updated.ID {
			return nil, sentinel.ErrConflict
		}
	}
	if updated.Email != "" {
		s.byEmail[updated.Email] = updated.ID
	}
	if updated.Phone != "" {
		s.byPhone[updated.Phone] = updated.ID
	}
	s.participants[participantID] = updated
	return cloneParticipant(updated), nil
}

func cloneParticipant(p *models.Participant) *models.Participant {
	cp := *p
	cp.Programs = append([]id.ProgramID(nil), p.Programs...)
	if p.Data != nil {
		cp.Data = make(map[string]any, len(p.Data))
		for k, v := range p.Data {
			cp.Data[k] = v
		}
	}
	return &cp
}
