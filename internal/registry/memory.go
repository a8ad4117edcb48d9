package registry

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/berth/internal/domain"
)

// MemoryStore keeps the document in process memory. Nothing survives a
// restart; it backs tests and throwaway runs (BERTH_REGISTRY_BACKEND=memory).
type MemoryStore struct {
	mu  sync.RWMutex
	doc *domain.RegistryDocument

	// Fail, when set, makes Load and Save return it (tests).
	Fail error
}

// NewMemoryStore creates an empty memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{doc: domain.NewRegistryDocument()}
}

// Load returns a copy of the document.
func (s *MemoryStore) Load(_ context.Context) (*domain.RegistryDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Fail != nil {
		return nil, s.Fail
	}
	return s.doc.Clone(), nil
}

// Save replaces the document with a copy of doc.
func (s *MemoryStore) Save(_ context.Context, doc *domain.RegistryDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return s.Fail
	}
	s.doc = doc.Clone()
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
