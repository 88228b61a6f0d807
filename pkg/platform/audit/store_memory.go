package audit

import (
	"context"
	"sync"

	id "cohort/pkg/domain"
)

// InMemoryStore keeps audit events in insertion order. Suitable for tests and
// single-instance deployments.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByProgram(_ context.Context, programID id.ProgramID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.ProgramID == programID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns every stored event, for tests.
func (s *InMemoryStore) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events...)
}
