package hnsw

import (
	"container/heap"
	"sort"

	"github.com/google/uuid"
)

// candidate pairs a node id with its distance to the current query, used
// both as a max-heap (trim the working set) and a min-heap (pop closest).
type candidate struct {
	id       uuid.UUID
	distance float32
}

type candidateHeap struct {
	items []candidate
	max   bool // true: largest distance at top (for trimming); false: smallest at top
}

func (h candidateHeap) Len() int { return len(h.items) }
func (h candidateHeap) Less(i, j int) bool {
	if h.max {
		return h.items[i].distance > h.items[j].distance
	}
	return h.items[i].distance < h.items[j].distance
}
func (h candidateHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *candidateHeap) Push(x interface{}) { h.items = append(h.items, x.(candidate)) }
func (h *candidateHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// searchLayer runs a greedy best-first search on a single layer starting
// from entryPoints, returning up to ef nearest live candidates.
func (idx *Index) searchLayer(query []float32, entryPoints []uuid.UUID, ef, layer int) []candidate {
	visited := make(map[uuid.UUID]struct{}, ef*2)
	candidates := &candidateHeap{max: false}
	results := &candidateHeap{max: true}

	for _, ep := range entryPoints {
		n, ok := idx.nodes[ep]
		if !ok {
			continue
		}
		d := idx.metric(query, n.vector)
		visited[ep] = struct{}{}
		heap.Push(candidates, candidate{ep, d})
		if !n.deleted {
			heap.Push(results, candidate{ep, d})
		}
	}

	for candidates.Len() > 0 {
		c := heap.Pop(candidates).(candidate)
		if results.Len() >= ef {
			worst := results.items[0]
			if c.distance > worst.distance {
				break
			}
		}

		n := idx.nodes[c.id]
		if layer >= len(n.neighbors) {
			continue
		}
		for _, nb := range n.neighbors[layer] {
			if _, seen := visited[nb]; seen {
				continue
			}
			visited[nb] = struct{}{}
			nbNode, ok := idx.nodes[nb]
			if !ok {
				continue
			}
			d := idx.metric(query, nbNode.vector)
			if results.Len() < ef {
				heap.Push(candidates, candidate{nb, d})
				if !nbNode.deleted {
					heap.Push(results, candidate{nb, d})
				}
			} else if d < results.items[0].distance {
				heap.Push(candidates, candidate{nb, d})
				if !nbNode.deleted {
					heap.Push(results, candidate{nb, d})
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]candidate, len(results.items))
	copy(out, results.items)
	sort.Slice(out, func(i, j int) bool { return out[i].distance < out[j].distance })
	return out
}

// Search returns up to k nearest live neighbors of query, using ef
// candidates during the layer-0 search (spec §4.4 search()). ef defaults
// to the index's configured EfSearch when <= 0.
func (idx *Index) Search(query []float32, k int, ef int) []Result {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.nodes) == 0 {
		return nil
	}
	if ef <= 0 {
		ef = idx.cfg.EfSearch
	}
	if ef < k {
		ef = k
	}

	entry := []uuid.UUID{idx.entryPoint}
	for layer := idx.maxLevel; layer > 0; layer-- {
		found := idx.searchLayer(query, entry, 1, layer)
		if len(found) > 0 {
			entry = []uuid.UUID{found[0].id}
		}
	}

	found := idx.searchLayer(query, entry, ef, 0)
	if len(found) > k {
		found = found[:k]
	}
	out := make([]Result, len(found))
	for i, c := range found {
		out[i] = Result{ID: c.id, Distance: c.distance}
	}
	return out
}
