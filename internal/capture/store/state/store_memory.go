// Package state persists TTL-bounded upload-state snapshots so any dashboard
// instance can observe a session's progress.
package state

import (
	"context"
	"sync"
	"time"

	"veridoc/internal/capture/models"
	id "veridoc/pkg/domain"
)

type memoryEntry struct {
	state     models.UploadSessionState
	expiresAt time.Time
}

// InMemoryStore keeps snapshots in process memory with lazy expiry. It backs
// tests and single-instance deployments; multi-instance deployments use
// RedisStore.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.CaptureSessionID]memoryEntry
	now     func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[id.CaptureSessionID]memoryEntry),
		now:     time.Now,
	}
}

func (s *InMemoryStore) Put(_ context.Context, sessionID id.CaptureSessionID, state models.UploadSessionState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionID] = memoryEntry{state: state, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, sessionID id.CaptureSessionID) (*models.UploadSessionState, error) {
	s.mu.RLock()
	entry, ok := s.entries[sessionID]
	s.mu.RUnlock()

	if !ok || s.now().After(entry.expiresAt) {
		return nil, nil
	}
	state := entry.state
	return &state, nil
}

func (s *InMemoryStore) Delete(_ context.Context, sessionID id.CaptureSessionID) error {
	s.mu.Lock()
	delete(s.entries, sessionID)
	s.mu.Unlock()
	return nil
}
