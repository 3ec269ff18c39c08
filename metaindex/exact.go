package metaindex

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ExactIndex maps (field, value) -> set<id> for O(1) equality/existence
// lookups (spec §4.5 "Exact/Existence index").
type ExactIndex struct {
	mu sync.RWMutex
	// byField[field][stringifiedValue] -> ids
	byField map[string]map[string]IDSet
	// exists[field] -> ids that have field set at all, for the `exists` op
	exists map[string]IDSet
}

func NewExactIndex() *ExactIndex {
	return &ExactIndex{
		byField: make(map[string]map[string]IDSet),
		exists:  make(map[string]IDSet),
	}
}

func valueKey(v interface{}) string { return fmt.Sprintf("%T:%v", v, v) }

// Put indexes id under field=value.
func (ix *ExactIndex) Put(field string, value interface{}, id uuid.UUID) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.byField[field] == nil {
		ix.byField[field] = make(map[string]IDSet)
	}
	key := valueKey(value)
	if ix.byField[field][key] == nil {
		ix.byField[field][key] = NewIDSet()
	}
	ix.byField[field][key].Add(id)

	if ix.exists[field] == nil {
		ix.exists[field] = NewIDSet()
	}
	ix.exists[field].Add(id)
}

// Remove un-indexes id from field=value.
func (ix *ExactIndex) Remove(field string, value interface{}, id uuid.UUID) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if s, ok := ix.byField[field][valueKey(value)]; ok {
		s.Remove(id)
	}
	if s, ok := ix.exists[field]; ok {
		s.Remove(id)
	}
}

// Equals returns every id whose field equals value.
func (ix *ExactIndex) Equals(field string, value interface{}) IDSet {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	s, ok := ix.byField[field][valueKey(value)]
	if !ok {
		return NewIDSet()
	}
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// NotEquals returns every id with field set but not equal to value.
func (ix *ExactIndex) NotEquals(field string, value interface{}) IDSet {
	return Subtract(ix.Exists(field), ix.Equals(field, value))
}

// In returns every id whose field equals any of values.
func (ix *ExactIndex) In(field string, values []interface{}) IDSet {
	sets := make([]IDSet, len(values))
	for i, v := range values {
		sets[i] = ix.Equals(field, v)
	}
	return Union(sets...)
}

// Exists returns every id that has field set at all.
func (ix *ExactIndex) Exists(field string) IDSet {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	s, ok := ix.exists[field]
	if !ok {
		return NewIDSet()
	}
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Cardinality returns the number of distinct ids with field=value,
// feeding the planner's per-(field,value) statistics (spec §4.5).
func (ix *ExactIndex) Cardinality(field string, value interface{}) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byField[field][valueKey(value)])
}
