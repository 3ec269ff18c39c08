package query

import (
	"sort"

	"github.com/google/uuid"

	"github.com/brainydb/brainy/hnsw"
	"github.com/brainydb/brainy/metaindex"
	"github.com/brainydb/brainy/types"
)

// prefilterThresholdFactor bounds when a pre-filter set is small enough to
// restrict k-NN candidates to directly (spec §4.9 step 2 "if its
// cardinality ≤ threshold (e.g., 10x limit)").
const prefilterThresholdFactor = 10

// vectorStage runs HNSW k-NN with ef = max(100, limit*4) (100 being the
// default efSearch; the index's configured EfSearch is not consulted), optionally
// restricting to a pre-filter set when it's small (spec §4.9 step 2). If
// a filter is present but too large to pre-restrict, hits are post-filtered
// and the search re-run with a larger ef if too few survive.
func vectorStage(idx *hnsw.Index, queryVector []float32, limit int, filterSet metaindex.IDSet, hasFilter bool) (order []uuid.UUID, rank map[uuid.UUID]int, score map[uuid.UUID]float64) {
	ef := limit * 4
	if ef < 100 {
		ef = 100
	}

	restrictToFilter := hasFilter && len(filterSet) > 0 && len(filterSet) <= prefilterThresholdFactor*limit

	var results []hnsw.Result
	if restrictToFilter {
		results = searchWithinSet(idx, queryVector, limit, ef, filterSet)
	} else {
		results = idx.Search(queryVector, limit, ef)
		if hasFilter {
			results = postFilter(results, filterSet)
			if len(results) < limit {
				results = postFilter(idx.Search(queryVector, limit, ef*4), filterSet)
			}
		}
	}

	order = make([]uuid.UUID, len(results))
	rank = make(map[uuid.UUID]int, len(results))
	score = make(map[uuid.UUID]float64, len(results))
	for i, r := range results {
		order[i] = r.ID
		rank[r.ID] = i + 1 // 1-indexed rank for RRF
		score[r.ID] = 1 / (1 + float64(r.Distance))
	}
	return order, rank, score
}

// searchWithinSet runs HNSW search then drops anything outside allowed;
// cheap when allowed is small relative to the graph, since the candidate
// pool the search already visits tends to dwarf the filter anyway.
func searchWithinSet(idx *hnsw.Index, queryVector []float32, limit, ef int, allowed metaindex.IDSet) []hnsw.Result {
	results := idx.Search(queryVector, limit+len(allowed), ef)
	return postFilter(results, allowed)
}

func postFilter(results []hnsw.Result, allowed metaindex.IDSet) []hnsw.Result {
	out := make([]hnsw.Result, 0, len(results))
	for _, r := range results {
		if allowed.Has(r.ID) {
			out = append(out, r)
		}
	}
	return out
}

// textStage scores, by term overlap, every id whose indexed words contain
// at least one query token, narrowed to filterSet when a filter is present
// (spec §4.9 step 3).
func textStage(meta *metaindex.Index, queryTokens []string, filterSet metaindex.IDSet, hasFilter bool) (order []uuid.UUID, rank map[uuid.UUID]int, score map[uuid.UUID]float64) {
	if len(queryTokens) == 0 {
		return nil, nil, nil
	}

	candidates := metaindex.NewIDSet()
	for _, t := range queryTokens {
		for id := range meta.Word.Contains(t) {
			candidates.Add(id)
		}
	}
	if hasFilter {
		candidates = metaindex.Intersect(candidates, filterSet)
	}

	type scored struct {
		id uuid.UUID
		s  float64
	}
	all := make([]scored, 0, len(candidates))
	for id := range candidates {
		all = append(all, scored{id: id, s: meta.Word.TokenOverlapScore(id, queryTokens)})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].s != all[j].s {
			return all[i].s > all[j].s
		}
		return all[i].id.String() < all[j].id.String()
	})

	order = make([]uuid.UUID, len(all))
	rank = make(map[uuid.UUID]int, len(all))
	score = make(map[uuid.UUID]float64, len(all))
	for i, sc := range all {
		order[i] = sc.id
		rank[sc.id] = i + 1
		score[sc.id] = sc.s
	}
	return order, rank, score
}

// fuse combines vector and text rankings via Reciprocal Rank Fusion (spec
// §4.9 step 5): score(id) = α·1/(k+rank_vector) + (1-α)·1/(k+rank_text).
// An id missing from one ranking contributes zero for that term, which
// degenerates correctly to the other signal when one side returns nothing
// (spec §8 property 10).
func fuse(vecOrder []uuid.UUID, vecRank map[uuid.UUID]int, vecScore map[uuid.UUID]float64,
	textOrder []uuid.UUID, textRank map[uuid.UUID]int, textScore map[uuid.UUID]float64,
	alpha float64, explain bool) []Result {

	seen := metaindex.NewIDSet()
	var all []uuid.UUID
	for _, id := range vecOrder {
		if !seen.Has(id) {
			seen.Add(id)
			all = append(all, id)
		}
	}
	for _, id := range textOrder {
		if !seen.Has(id) {
			seen.Add(id)
			all = append(all, id)
		}
	}

	out := make([]Result, 0, len(all))
	for _, id := range all {
		vr, hasVec := vecRank[id]
		tr, hasText := textRank[id]

		var fused float64
		if hasVec {
			fused += alpha * (1 / float64(rrfK+vr))
		}
		if hasText {
			fused += (1 - alpha) * (1 / float64(rrfK+tr))
		}

		r := Result{Entity: &types.Entity{ID: id}, Score: fused}
		if explain {
			r.Explain = &ScoreExplain{
				VectorRank:  vr,
				VectorScore: vecScore[id],
				TextRank:    tr,
				TextScore:   textScore[id],
				Fused:       fused,
			}
		}
		out = append(out, r)
	}
	return out
}
