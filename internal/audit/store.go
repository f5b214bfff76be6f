package audit

import (
	"context"
	"sync"
)

// Store is the persistence boundary for audit events. Append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByApplicant(ctx context.Context, applicantID string) ([]Event, error)
}

// InMemoryStore keeps events in memory, grouped by applicant. Used in tests
// and single-instance deployments.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ApplicantID] = append(s.events[event.ApplicantID], event)
	return nil
}

func (s *InMemoryStore) ListByApplicant(_ context.Context, applicantID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[applicantID]...), nil
}

// ListAll returns every recorded event across applicants.
func (s *InMemoryStore) ListAll(_ context.Context) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Event
	for _, events := range s.events {
		all = append(all, events...)
	}
	return all, nil
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]Event)
}
