// Package memory provides a process-local KV store for tests and ephemeral runs.
package memory

import (
	"context"
	"sync"

	"lifeline/pkg/domain"
)

var _ domain.KVStore = (*Store)(nil)

// Store keeps values in a map guarded by a mutex. Values are copied on the way in and out.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{values: make(map[string][]byte)}
}

// Read returns a copy of the value stored at key.
func (s *Store) Read(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Write replaces the value stored at key.
func (s *Store) Write(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.values[key] = append([]byte(nil), value...)
	s.mu.Unlock()
	return nil
}
