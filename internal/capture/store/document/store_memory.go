// Package document persists uploaded document records so dashboards can list
// what an applicant has submitted after the capture session is gone.
package document

import (
	"context"
	"sort"
	"sync"

	"veridoc/internal/capture/models"
	id "veridoc/pkg/domain"
)

// InMemoryStore keeps document records in process memory. It backs tests and
// single-instance deployments; multi-instance deployments use PostgresStore.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[id.DocumentID]models.Document
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{docs: make(map[id.DocumentID]models.Document)}
}

func (s *InMemoryStore) Save(_ context.Context, doc models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	return nil
}

func (s *InMemoryStore) ListByApplicant(_ context.Context, applicantID id.ApplicantID) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Document
	for _, doc := range s.docs {
		if doc.ApplicantID == applicantID {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, nil
}
