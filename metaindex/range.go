package metaindex

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Ordered is the subset of comparable field-value types the range index
// accepts (spec §4.5: gt/gte/lt/lte/between on numeric, string, and time
// fields). Values are compared via their float64/string/int64 projection;
// RangeIndex stores only that projected key with its id set, not the raw
// value.
type Ordered interface {
	Less(other Ordered) bool
}

// Float64Key, StringKey, Int64Key adapt primitive Go types to Ordered.
type Float64Key float64

func (a Float64Key) Less(b Ordered) bool { return a < b.(Float64Key) }

type StringKey string

func (a StringKey) Less(b Ordered) bool { return a < b.(StringKey) }

type Int64Key int64

func (a Int64Key) Less(b Ordered) bool { return a < b.(Int64Key) }

type entry struct {
	key Ordered
	ids IDSet
}

// RangeIndex is a per-field sorted sequence of (value, set<id>), supporting
// binary-search range queries (spec §4.5 "Sorted (range) index").
type RangeIndex struct {
	mu      sync.RWMutex
	entries []entry // kept sorted by key
}

func NewRangeIndex() *RangeIndex { return &RangeIndex{} }

func (r *RangeIndex) find(key Ordered) int {
	return sort.Search(len(r.entries), func(i int) bool { return !r.entries[i].key.Less(key) })
}

// Put inserts id under key, creating a new sorted slot if key is new.
func (r *RangeIndex) Put(key Ordered, id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.find(key)
	if i < len(r.entries) && !r.entries[i].key.Less(key) && !key.Less(r.entries[i].key) {
		r.entries[i].ids.Add(id)
		return
	}
	r.entries = append(r.entries, entry{})
	copy(r.entries[i+1:], r.entries[i:])
	r.entries[i] = entry{key: key, ids: NewIDSet(id)}
}

// Remove un-indexes id from key.
func (r *RangeIndex) Remove(key Ordered, id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.find(key)
	if i < len(r.entries) && !r.entries[i].key.Less(key) && !key.Less(r.entries[i].key) {
		r.entries[i].ids.Remove(id)
	}
}

func equalKey(a, b Ordered) bool { return !a.Less(b) && !b.Less(a) }

func (r *RangeIndex) collect(from, to int) IDSet {
	out := NewIDSet()
	for i := from; i < to; i++ {
		for id := range r.entries[i].ids {
			out[id] = struct{}{}
		}
	}
	return out
}

// GT returns every id with key strictly greater than key.
func (r *RangeIndex) GT(key Ordered) IDSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.find(key)
	for i < len(r.entries) && equalKey(r.entries[i].key, key) {
		i++
	}
	return r.collect(i, len(r.entries))
}

// GTE returns every id with key greater than or equal to key.
func (r *RangeIndex) GTE(key Ordered) IDSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.find(key)
	return r.collect(i, len(r.entries))
}

// LT returns every id with key strictly less than key.
func (r *RangeIndex) LT(key Ordered) IDSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.find(key)
	return r.collect(0, i)
}

// LTE returns every id with key less than or equal to key.
func (r *RangeIndex) LTE(key Ordered) IDSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.find(key)
	for i < len(r.entries) && equalKey(r.entries[i].key, key) {
		i++
	}
	return r.collect(0, i)
}

// Between returns every id with lo <= key <= hi.
func (r *RangeIndex) Between(lo, hi Ordered) IDSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	from := r.find(lo)
	to := r.find(hi)
	for to < len(r.entries) && equalKey(r.entries[to].key, hi) {
		to++
	}
	return r.collect(from, to)
}
