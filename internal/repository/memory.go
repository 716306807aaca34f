package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docparser/internal/document"
)

// MemoryStore keeps encoded results in a map, so callers never share
// mutable state with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[uuid.UUID][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[uuid.UUID][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*document.ProcessingResult, error) {
	s.mu.RLock()
	b, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}
	return decode(id, b)
}

func (s *MemoryStore) Put(_ context.Context, res *document.ProcessingResult) error {
	b, err := encode(res)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[res.DocumentID] = b
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return notFound(id)
	}
	delete(s.docs, id)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
func (s *MemoryStore) Close() error               { return nil }
