// Package memory holds the engine's in-memory mutable stores: the per-type
// collection snapshots used by the change detector, the notification feed,
// and the user ledger table. Each store guards its state with a single mutex;
// no operation spans two stores atomically.
package memory

import "sync"

// Snapshot holds the last-observed collection of one tracked entity type.
// The stored slice always reflects the state as of the previous comparison
// pass; Swap replaces it wholesale and returns what was there before, so a
// detection pass sees exactly one transition per real change.
type Snapshot[T any] struct {
	mu    sync.Mutex
	items []T
}

// Swap stores a copy of cur as the new snapshot and returns the previous
// one. The returned slice is owned by the caller.
func (s *Snapshot[T]) Swap(cur []T) []T {
	next := make([]T, len(cur))
	copy(next, cur)

	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.items
	s.items = next
	return prev
}

// Items returns a copy of the current snapshot.
func (s *Snapshot[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}
