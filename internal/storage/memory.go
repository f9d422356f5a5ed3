package storage

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an in-process Store used by tests and ephemeral runs.
type MemoryStore struct {
	collections map[string]map[string]json.RawMessage
	mu          sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]json.RawMessage)}
}

// Load returns a copy of the named collection, empty if absent.
func (s *MemoryStore) Load(_ context.Context, name string) (map[string]json.RawMessage, error) {
	if err := validateCollection(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make(map[string]json.RawMessage, len(s.collections[name]))
	for k, v := range s.collections[name] {
		docs[k] = v
	}
	return docs, nil
}

// Save replaces the named collection with a copy of docs.
func (s *MemoryStore) Save(_ context.Context, name string, docs map[string]json.RawMessage) error {
	if err := validateCollection(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make(map[string]json.RawMessage, len(docs))
	for k, v := range docs {
		copied[k] = v
	}
	s.collections[name] = copied
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
