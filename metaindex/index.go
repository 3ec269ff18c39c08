package metaindex

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brainydb/brainy/types"
)

// textFields names the metadata keys indexed into the word index in
// addition to whatever primary text an entity carries (spec §4.5 "Built on
// string fields marked for text indexing and on the entity's primary data
// string if present").
var textFields = map[string]struct{}{
	"name":        {},
	"title":       {},
	"description": {},
	"body":        {},
	"content":     {},
}

// Index bundles the three metadata sub-indexes and tracks the full id
// population for NOT evaluation (spec §4.5).
type Index struct {
	mu    sync.RWMutex
	all   IDSet
	Exact *ExactIndex
	ranges map[string]*RangeIndex
	Word  *WordIndex
	arena *Arena
}

func New() *Index {
	arena := NewArena()
	return &Index{
		all:    NewIDSet(),
		Exact:  NewExactIndex(),
		ranges: make(map[string]*RangeIndex),
		Word:   NewWordIndex(arena),
		arena:  arena,
	}
}

func (ix *Index) rangeFor(field string) *RangeIndex {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.ranges[field] == nil {
		ix.ranges[field] = NewRangeIndex()
	}
	return ix.ranges[field]
}

// AllIDs returns every id currently indexed, the universe NOT subtracts
// from.
func (ix *Index) AllIDs() IDSet {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(IDSet, len(ix.all))
	for id := range ix.all {
		out[id] = struct{}{}
	}
	return out
}

// IndexEntity inserts id into every applicable sub-index from its
// metadata and type-tagged fields (spec §4.5 index()).
func (ix *Index) IndexEntity(id uuid.UUID, noun types.NounType, meta types.Metadata) {
	ix.mu.Lock()
	ix.all.Add(id)
	ix.mu.Unlock()

	ix.Exact.Put("noun", string(noun), id)

	for field, v := range meta {
		ix.Exact.Put(field, v, id)
		if ord := tryOrdered(v); ord != nil {
			ix.rangeFor(field).Put(ord, id)
		}
		if s, ok := v.(string); ok {
			if _, wanted := textFields[field]; wanted {
				ix.Word.Index(id, s)
			}
		}
	}
}

// UnindexEntity removes id from every sub-index it was added to (spec
// §4.5 unindex()).
func (ix *Index) UnindexEntity(id uuid.UUID, noun types.NounType, meta types.Metadata) {
	ix.mu.Lock()
	ix.all.Remove(id)
	ix.mu.Unlock()

	ix.Exact.Remove("noun", string(noun), id)
	for field, v := range meta {
		ix.Exact.Remove(field, v, id)
		if ord := tryOrdered(v); ord != nil {
			ix.rangeFor(field).Remove(ord, id)
		}
	}
	ix.Word.Unindex(id)
}

func tryOrdered(v interface{}) Ordered {
	switch t := v.(type) {
	case float64:
		return Float64Key(t)
	case int64:
		return Float64Key(float64(t))
	case int:
		return Float64Key(float64(t))
	case string:
		return StringKey(t)
	case time.Time:
		return Float64Key(float64(t.UnixNano()))
	default:
		return nil
	}
}
