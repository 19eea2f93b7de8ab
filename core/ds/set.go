// Package ds provides small generic data structures shared across the core.
package ds

import "fmt"

// Set is an ordered set: O(1) membership with deterministic,
// insertion-ordered iteration.
type Set[T comparable] struct {
	items map[T]struct{}
	order []T
}

// NewSet creates a set holding the given items, first occurrence wins.
func NewSet[T comparable](items ...T) *Set[T] {
	s := &Set[T]{items: make(map[T]struct{}, len(items))}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Add inserts v and reports whether it was newly added.
func (s *Set[T]) Add(v T) bool {
	if _, ok := s.items[v]; ok {
		return false
	}
	s.items[v] = struct{}{}
	s.order = append(s.order, v)
	return true
}

// Contains reports membership. Safe on a nil receiver.
func (s *Set[T]) Contains(v T) bool {
	if s == nil {
		return false
	}
	_, ok := s.items[v]
	return ok
}

// Len returns the number of elements.
func (s *Set[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// IsEmpty reports whether the set has no elements.
func (s *Set[T]) IsEmpty() bool { return s.Len() == 0 }

// Values returns a copy of the elements in insertion order.
func (s *Set[T]) Values() []T {
	out := make([]T, len(s.order))
	copy(out, s.order)
	return out
}

// Copy returns a new set with the same elements and order.
func (s *Set[T]) Copy() *Set[T] {
	if s == nil {
		return NewSet[T]()
	}
	return NewSet(s.order...)
}

func (s *Set[T]) String() string { return fmt.Sprintf("%v", s.order) }
