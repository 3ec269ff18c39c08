package hnsw

import (
	"github.com/google/uuid"
)

// selectNeighborsHeuristic implements the Malkov/Yashunin diversity
// heuristic: walk candidates nearest-first, keep a candidate only if it is
// closer to the query than to every neighbor already selected. This avoids
// clustering all M slots around a single direction (spec §4.4 "selects M
// neighbors by a heuristic that prefers diversity").
func (idx *Index) selectNeighborsHeuristic(query []float32, candidates []candidate, m int) []candidate {
	selected := make([]candidate, 0, m)
	for _, c := range candidates {
		if len(selected) >= m {
			break
		}
		good := true
		for _, s := range selected {
			if idx.metric(idx.nodes[c.id].vector, idx.nodes[s.id].vector) < c.distance {
				good = false
				break
			}
		}
		if good {
			selected = append(selected, c)
		}
	}
	// Backfill with the remaining closest candidates if the heuristic was
	// too strict to fill all M slots.
	if len(selected) < m {
		have := make(map[uuid.UUID]struct{}, len(selected))
		for _, s := range selected {
			have[s.id] = struct{}{}
		}
		for _, c := range candidates {
			if len(selected) >= m {
				break
			}
			if _, ok := have[c.id]; ok {
				continue
			}
			selected = append(selected, c)
		}
	}
	return selected
}

// Insert adds id with vector to the graph, or re-links it if already
// present (spec §4.4 insert()).
func (idx *Index) Insert(id uuid.UUID, vector []float32) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	level := idx.randomLevel()
	n := &node{id: id, vector: vector, level: level, neighbors: make([][]uuid.UUID, level+1)}
	idx.nodes[id] = n

	if len(idx.nodes) == 1 {
		idx.entryPoint = id
		idx.maxLevel = level
		return
	}

	entry := []uuid.UUID{idx.entryPoint}
	for layer := idx.maxLevel; layer > level; layer-- {
		found := idx.searchLayer(vector, entry, 1, layer)
		if len(found) > 0 {
			entry = []uuid.UUID{found[0].id}
		}
	}

	top := level
	if idx.maxLevel < top {
		top = idx.maxLevel
	}
	for layer := top; layer >= 0; layer-- {
		candidates := idx.searchLayer(vector, entry, idx.cfg.EfConstruction, layer)
		selected := idx.selectNeighborsHeuristic(vector, candidates, idx.cfg.M)

		ids := make([]uuid.UUID, len(selected))
		for i, s := range selected {
			ids[i] = s.id
		}
		n.neighbors[layer] = ids

		for _, s := range selected {
			neighbor := idx.nodes[s.id]
			if layer >= len(neighbor.neighbors) {
				continue
			}
			neighbor.neighbors[layer] = append(neighbor.neighbors[layer], id)
			if len(neighbor.neighbors[layer]) > idx.cfg.M {
				idx.pruneNeighbors(neighbor, layer)
			}
		}

		if len(candidates) > 0 {
			next := make([]uuid.UUID, len(candidates))
			for i, c := range candidates {
				next[i] = c.id
			}
			entry = next
		}
	}

	if level > idx.maxLevel {
		idx.maxLevel = level
		idx.entryPoint = id
	}
}

// pruneNeighbors re-applies the diversity heuristic to an over-connected
// node's neighbor list at layer, trimming it back to M (spec §4.4 "prunes
// over-connected nodes by re-selecting top-M").
func (idx *Index) pruneNeighbors(n *node, layer int) {
	cands := make([]candidate, 0, len(n.neighbors[layer]))
	for _, nb := range n.neighbors[layer] {
		other, ok := idx.nodes[nb]
		if !ok {
			continue
		}
		cands = append(cands, candidate{id: nb, distance: idx.metric(n.vector, other.vector)})
	}
	selected := idx.selectNeighborsHeuristic(n.vector, cands, idx.cfg.M)
	ids := make([]uuid.UUID, len(selected))
	for i, s := range selected {
		ids[i] = s.id
	}
	n.neighbors[layer] = ids
}

// Delete soft-deletes id: it is skipped by future searches but its edges
// remain until the next compaction (spec §4.4 delete()).
func (idx *Index) Delete(id uuid.UUID) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	n, ok := idx.nodes[id]
	if !ok || n.deleted {
		return false
	}
	n.deleted = true
	idx.deletedCount++
	return true
}

// Undelete reverses a soft-delete, restoring id to future search results.
// Exists for transactional rollback of a DeleteEntity op; not part of the
// normal delete/compact lifecycle.
func (idx *Index) Undelete(id uuid.UUID) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	n, ok := idx.nodes[id]
	if !ok || !n.deleted {
		return false
	}
	n.deleted = false
	idx.deletedCount--
	return true
}

// Compact rebuilds the graph from scratch using only live nodes, dropping
// soft-deleted ones entirely. Triggered by the caller when DeletedFraction
// exceeds 20% (spec §4.4, §12 "background compaction").
func (idx *Index) Compact() {
	idx.mu.Lock()
	live := make([]*node, 0, len(idx.nodes)-idx.deletedCount)
	for _, n := range idx.nodes {
		if !n.deleted {
			live = append(live, n)
		}
	}
	idx.nodes = make(map[uuid.UUID]*node)
	idx.entryPoint = uuid.UUID{}
	idx.maxLevel = 0
	idx.deletedCount = 0
	idx.mu.Unlock()

	for _, n := range live {
		idx.Insert(n.id, n.vector)
	}
}
