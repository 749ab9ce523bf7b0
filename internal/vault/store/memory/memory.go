// Package memory is the in-memory vault store used by tests and local runs.
package memory

import (
	"context"
	"sync"

	"unigraph/internal/vault"
)

type Store struct {
	mu      sync.RWMutex
	records []vault.Record
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, rec vault.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *Store) All(_ context.Context) ([]vault.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]vault.Record, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *Store) Recent(_ context.Context, limit int) ([]vault.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]vault.Record, limit)
	copy(out, s.records[len(s.records)-limit:])
	return out, nil
}
