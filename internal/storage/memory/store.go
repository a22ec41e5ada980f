// Package memory is an in-process storage backend used by tests and by the
// daemon when persistence is disabled.
package memory

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/waypoint/internal/storage"
)

// Store keeps documents in a map
type Store struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewStore creates an empty memory store
func NewStore() *Store {
	return &Store{docs: make(map[string][]byte)}
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.docs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = append([]byte(nil), data...)
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.docs, key)
	return nil
}

// Len returns the number of stored documents
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

var _ storage.Storage = (*Store)(nil)
