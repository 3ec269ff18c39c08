package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/brainydb/brainy/metaindex"
	"github.com/brainydb/brainy/query"
	"github.com/brainydb/brainy/types"
)

// index bundles the sub-indexes query.Find needs, built fresh per call
// since the engine's handles are themselves the live indexes (no copy).
func (e *Engine) index() *query.Index {
	return &query.Index{Store: e.store, Meta: e.meta, Graph: e.graph, HNSW: e.vec}
}

// Find runs the unified query contract (spec §6 find(), §4.9).
func (e *Engine) Find(ctx context.Context, p query.Params) ([]query.Result, error) {
	return query.Find(ctx, e.index(), p)
}

// SimilarSpec describes a similar() call's optional fields (spec §6
// similar({to, limit?, threshold?, type?, where?})).
type SimilarSpec struct {
	Limit     int
	Threshold float64 // 0 means unfiltered; otherwise a minimum fused score
	Type      types.NounType
	Where     *metaindex.Filter
}

// Similar is find()'s find-nearest-to-id shortcut: it resolves to's own
// vector, then runs a semantic-mode find anchored on it, excluding to
// itself from the results.
func (e *Engine) Similar(ctx context.Context, to uuid.UUID, spec SimilarSpec) ([]query.Result, error) {
	anchor, err := e.fetchFull(ctx, to)
	if err != nil {
		return nil, err
	}

	limit := spec.Limit
	if limit <= 0 {
		limit = 10
	}

	var nounFilter []types.NounType
	if spec.Type != "" {
		nounFilter = []types.NounType{spec.Type}
	}

	results, err := query.Find(ctx, e.index(), query.Params{
		QueryVector: anchor.Vector,
		Mode:        query.ModeSemantic,
		Filter:      spec.Where,
		Types:       nounFilter,
		Limit:       limit + 1, // +1 so excluding the anchor itself still fills limit
	})
	if err != nil {
		return nil, err
	}

	out := make([]query.Result, 0, len(results))
	for _, r := range results {
		if r.Entity.ID == to {
			continue
		}
		if spec.Threshold > 0 && r.Score < spec.Threshold {
			continue
		}
		out = append(out, r)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}
