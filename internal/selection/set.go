package selection

import "sort"

// Set is a set of positive item ids. It is not safe for concurrent use; the
// Controller guards it.
type Set struct {
	ids map[int]struct{}
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{ids: make(map[int]struct{})}
}

// Toggle flips membership of id and reports whether id is now selected.
// Non-positive ids are ignored.
func (s *Set) Toggle(id int) bool {
	if id <= 0 {
		return false
	}
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Has reports whether id is selected.
func (s *Set) Has(id int) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected ids.
func (s *Set) Len() int {
	return len(s.ids)
}

// Sorted returns the ids in ascending order.
func (s *Set) Sorted() []int {
	out := make([]int, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Clear removes every id.
func (s *Set) Clear() {
	clear(s.ids)
}
