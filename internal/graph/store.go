// Package graph holds unified entities and typed relationship edges, and
// answers traversal queries over an immutable snapshot.
//
// The store is a single atomic reference to the current snapshot. Resolution
// runs build a complete new snapshot off to the side and swap it in one step, so
// concurrent readers always observe either the old or the new graph, never a
// mix, and no read ever blocks on a write.
package graph

import (
	"sync/atomic"
)

// Store publishes the current snapshot.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore starts empty; reads served before the first resolution run
// complete against the empty snapshot.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(Empty())
	return s
}

// Snapshot returns the current graph. The returned snapshot is immutable and
// remains valid after later swaps.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Swap atomically publishes a fully built snapshot. Callers must never mutate
// a snapshot after passing it here.
func (s *Store) Swap(next *Snapshot) {
	s.current.Store(next)
}
