// Package query implements the unified find() planner/executor: vector,
// text, metadata, and graph signals combined via Reciprocal Rank Fusion
// (spec §4.9).
package query

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/brainydb/brainy/entitystore"
	"github.com/brainydb/brainy/graphindex"
	"github.com/brainydb/brainy/hnsw"
	"github.com/brainydb/brainy/metaindex"
	"github.com/brainydb/brainy/types"
)

// Mode selects which signals a text-capable query exercises.
type Mode string

const (
	ModeSemantic Mode = "semantic"
	ModeText     Mode = "text"
	ModeHybrid   Mode = "hybrid"
)

// GraphConstraint restricts results to ids reachable from/to a set of
// anchor ids (spec §4.9 "Graph constraint").
type GraphConstraint struct {
	From, To  []uuid.UUID
	VerbType  types.VerbType
	Depth     int
	Direction graphindex.Direction
}

// SortOrder overrides relevance ordering with a field sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Params is find()'s input contract (spec §4.9).
type Params struct {
	QueryVector []float32
	QueryText   string
	Mode        Mode // defaults to ModeHybrid when QueryText is set

	Types     []types.NounType
	Filter    *metaindex.Filter
	Graph     *GraphConstraint
	Limit     int
	Offset    int
	OrderBy   string
	Order     SortOrder
	Explain   bool
	Alpha     *float64 // overrides the auto-tuned RRF alpha when set
}

// ScoreExplain reports each signal's contribution to a result's score,
// returned only when Params.Explain is set.
type ScoreExplain struct {
	VectorRank  int
	VectorScore float64
	TextRank    int
	TextScore   float64
	Fused       float64
	PassedFilters []string
}

// Result is one ranked find() hit.
type Result struct {
	Entity  *types.Entity
	Score   float64
	Explain *ScoreExplain
}

// Index bundles the sub-indexes find() plans and executes against.
type Index struct {
	Store *entitystore.Store
	Meta  *metaindex.Index
	Graph *graphindex.Index
	HNSW  *hnsw.Index
}

const rrfK = 60

// autoAlpha implements spec §4.9's auto-tuned RRF alpha schedule: 0.3 for
// 1-2 query tokens, 0.5 for 3-4, 0.7 for 5+.
func autoAlpha(tokenCount int) float64 {
	switch {
	case tokenCount <= 2:
		return 0.3
	case tokenCount <= 4:
		return 0.5
	default:
		return 0.7
	}
}

// Find executes the unified query contract (spec §4.9 steps 1-8).
func Find(ctx context.Context, ix *Index, p Params) ([]Result, error) {
	mode := p.Mode
	if mode == "" {
		mode = ModeHybrid
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}

	// Step 1: plan. Combine type + metadata filters (AND).
	filterSet, hasFilter := planFilterSet(ix.Meta, p)

	// Graph constraint candidates, computed once and intersected later.
	var graphSet metaindex.IDSet
	hasGraph := p.Graph != nil
	if hasGraph {
		graphSet = evalGraphConstraint(ix.Graph, p.Graph)
	}

	queryTokens := metaindex.Tokenize(p.QueryText)
	hasVectorSignal := len(p.QueryVector) > 0 && mode != ModeText
	hasTextSignal := p.QueryText != "" && (mode == ModeText || mode == ModeHybrid)

	var ranked []Result
	switch {
	case hasVectorSignal || hasTextSignal:
		var vecRank map[uuid.UUID]int
		var vecScore map[uuid.UUID]float64
		var vecOrder []uuid.UUID
		if hasVectorSignal {
			vecOrder, vecRank, vecScore = vectorStage(ix.HNSW, p.QueryVector, limit, filterSet, hasFilter)
		}

		var textRank map[uuid.UUID]int
		var textScore map[uuid.UUID]float64
		var textOrder []uuid.UUID
		if hasTextSignal {
			textOrder, textRank, textScore = textStage(ix.Meta, queryTokens, filterSet, hasFilter)
		}

		alpha := autoAlpha(len(queryTokens))
		if p.Alpha != nil {
			alpha = *p.Alpha
		}
		ranked = fuse(vecOrder, vecRank, vecScore, textOrder, textRank, textScore, alpha, p.Explain)

	default:
		// Metadata-only path (spec §4.9 step 4).
		var ids metaindex.IDSet
		if hasFilter {
			ids = filterSet
		} else {
			ids = ix.Meta.AllIDs()
		}
		for id := range ids {
			ranked = append(ranked, Result{Entity: &types.Entity{ID: id}, Score: 0})
		}
	}

	// Step 6: graph intersection.
	if hasGraph {
		ranked = intersectRanked(ranked, graphSet)
	}

	// Step 7: materialize full entities.
	ranked = materialize(ctx, ix.Store, ranked)

	// Filter by noun type, if requested (cheap post-filter; type is also
	// indexed into Meta.Exact so hasFilter callers already narrowed by it
	// when Filter itself references "noun").
	if len(p.Types) > 0 {
		ranked = filterByType(ranked, p.Types)
	}

	// Step 8: rank and slice.
	if p.OrderBy != "" {
		sortByField(ranked, p.OrderBy, p.Order)
	} else {
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	}

	return paginate(ranked, p.Offset, limit), nil
}

func planFilterSet(meta *metaindex.Index, p Params) (metaindex.IDSet, bool) {
	var filters []*metaindex.Filter
	if p.Filter != nil {
		filters = append(filters, p.Filter)
	}
	if len(p.Types) == 1 {
		filters = append(filters, &metaindex.Filter{Field: "noun", Op: metaindex.OpEquals, Value: string(p.Types[0])})
	}
	if len(filters) == 0 {
		return nil, false
	}
	if len(filters) == 1 {
		return meta.Eval(filters[0]), true
	}
	return meta.Eval(&metaindex.Filter{AllOf: filters}), true
}

func evalGraphConstraint(g *graphindex.Index, gc *GraphConstraint) metaindex.IDSet {
	out := metaindex.NewIDSet()
	anchors := gc.From
	if len(anchors) == 0 {
		anchors = gc.To
	}
	depth := gc.Depth
	if depth <= 0 {
		depth = 1
	}
	for _, a := range anchors {
		reach := g.Reachable(a, depth, graphindex.ReachableOptions{VerbType: gc.VerbType, Direction: gc.Direction})
		for id := range reach {
			out.Add(id)
		}
	}
	return out
}

func intersectRanked(in []Result, allowed metaindex.IDSet) []Result {
	out := make([]Result, 0, len(in))
	for _, r := range in {
		if allowed.Has(r.Entity.ID) {
			out = append(out, r)
		}
	}
	return out
}

func filterByType(in []Result, want []types.NounType) []Result {
	set := make(map[types.NounType]struct{}, len(want))
	for _, t := range want {
		set[t] = struct{}{}
	}
	out := make([]Result, 0, len(in))
	for _, r := range in {
		if _, ok := set[r.Entity.Type]; ok {
			out = append(out, r)
		}
	}
	return out
}

func materialize(ctx context.Context, store *entitystore.Store, in []Result) []Result {
	ids := make([]uuid.UUID, len(in))
	for i, r := range in {
		ids[i] = r.Entity.ID
	}
	batch, err := store.GetEntityMetadataBatch(ctx, ids)
	if err != nil {
		return in
	}
	out := make([]Result, 0, len(in))
	for _, r := range in {
		e, ok := batch[r.Entity.ID]
		if !ok {
			continue
		}
		r.Entity = e
		out = append(out, r)
	}
	return out
}

func sortByField(in []Result, field string, order SortOrder) {
	sort.SliceStable(in, func(i, j int) bool {
		vi, oki := in[i].Entity.Metadata[field]
		vj, okj := in[j].Entity.Metadata[field]
		if !oki || !okj {
			return oki && !okj
		}
		less := lessValue(vi, vj)
		if order == SortDesc {
			return !less
		}
		return less
	})
}

func lessValue(a, b interface{}) bool {
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			return av < bv
		}
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	}
	return false
}

func paginate(in []Result, offset, limit int) []Result {
	if offset >= len(in) {
		return []Result{}
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
