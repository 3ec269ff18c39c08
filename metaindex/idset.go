// Package metaindex implements the three metadata sub-indexes (exact,
// sorted range, word) plus the filter planner/evaluator (spec §4.5).
package metaindex

import "github.com/google/uuid"

// IDSet is an id-keyed set, the representation spec §12 calls for
// ("inverted indexes over cyclic object graphs... implement them as
// id-keyed maps of id-sets, no pointers between nodes").
type IDSet map[uuid.UUID]struct{}

func NewIDSet(ids ...uuid.UUID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Add(id uuid.UUID)    { s[id] = struct{}{} }
func (s IDSet) Remove(id uuid.UUID) { delete(s, id) }
func (s IDSet) Has(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Slice() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

// Union returns a new set containing every id in s or other.
func Union(sets ...IDSet) IDSet {
	out := make(IDSet)
	for _, s := range sets {
		for id := range s {
			out[id] = struct{}{}
		}
	}
	return out
}

// Intersect returns a new set containing only ids present in every set.
func Intersect(sets ...IDSet) IDSet {
	if len(sets) == 0 {
		return NewIDSet()
	}
	out := make(IDSet)
	for id := range sets[0] {
		in := true
		for _, s := range sets[1:] {
			if !s.Has(id) {
				in = false
				break
			}
		}
		if in {
			out[id] = struct{}{}
		}
	}
	return out
}

// Subtract returns a - b.
func Subtract(a, b IDSet) IDSet {
	out := make(IDSet, len(a))
	for id := range a {
		if !b.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}
