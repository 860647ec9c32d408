package structure

import (
	"cmp"
	"slices"
)

// SortedIndex is an ascending, array-backed list of keys.
// It is not safe for concurrent mutation; owners share instances copy-on-write via Clone.
type SortedIndex[T cmp.Ordered] struct {
	items []T
}

func NewSortedIndex[T cmp.Ordered](items ...T) *SortedIndex[T] {
	s := &SortedIndex[T]{items: slices.Clone(items)}
	slices.Sort(s.items)
	return s
}

func (s *SortedIndex[T]) Clone() *SortedIndex[T] {
	return &SortedIndex[T]{items: slices.Clone(s.items)}
}

func (s *SortedIndex[T]) Len() int {
	return len(s.items)
}

func (s *SortedIndex[T]) Get(i int) T {
	return s.items[i]
}

func (s *SortedIndex[T]) IsInRange(i int) bool {
	return i >= 0 && i < len(s.items)
}

// Find returns the index of v, or -(insertionPoint+1) when v is absent.
func (s *SortedIndex[T]) Find(v T) int {
	i, found := slices.BinarySearch(s.items, v)
	if found {
		return i
	}
	return -(i + 1)
}

func (s *SortedIndex[T]) Contains(v T) bool {
	return s.Find(v) >= 0
}

func (s *SortedIndex[T]) Lower(v T) int  { return Lower(s.Find(v)) }
func (s *SortedIndex[T]) Higher(v T) int { return Higher(s.Find(v)) }
func (s *SortedIndex[T]) Floor(v T) int  { return Floor(s.Find(v)) }
func (s *SortedIndex[T]) Ceil(v T) int   { return Ceil(s.Find(v)) }

// Add inserts v at its ordered position. Duplicates are not suppressed.
func (s *SortedIndex[T]) Add(v T) {
	i, _ := slices.BinarySearch(s.items, v)
	s.items = slices.Insert(s.items, i, v)
}

func (s *SortedIndex[T]) RemoveAt(i int) {
	s.items = slices.Delete(s.items, i, i+1)
}

// RemoveValue drops one occurrence of v and reports whether it was present.
func (s *SortedIndex[T]) RemoveValue(v T) bool {
	i := s.Find(v)
	if i < 0 {
		return false
	}
	s.RemoveAt(i)
	return true
}

// Values returns a copy of the keys in ascending order.
func (s *SortedIndex[T]) Values() []T {
	return slices.Clone(s.items)
}
