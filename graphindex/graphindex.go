// Package graphindex maintains the bidirectional adjacency index over
// relationships and answers neighbor/reachability queries (spec §4.6).
package graphindex

import (
	"sync"

	"github.com/google/uuid"

	"github.com/brainydb/brainy/types"
)

// Direction selects which adjacency map neighbors()/reachable() walk.
type Direction string

const (
	DirectionOut  Direction = "out"
	DirectionIn   Direction = "in"
	DirectionBoth Direction = "both"
)

// edgeSet maps verb type -> set of connected ids, the per-node adjacency
// record (spec §4.6 "outgoing: id -> (verbType -> set<targetId>)").
type edgeSet map[types.VerbType]map[uuid.UUID]struct{}

// Index is the bidirectional adjacency index: one writer per branch, many
// concurrent readers (spec §6 locking model).
type Index struct {
	mu       sync.RWMutex
	outgoing map[uuid.UUID]edgeSet
	incoming map[uuid.UUID]edgeSet
}

func New() *Index {
	return &Index{
		outgoing: make(map[uuid.UUID]edgeSet),
		incoming: make(map[uuid.UUID]edgeSet),
	}
}

// AddEdge records src --verb--> dst in both adjacency maps. O(1).
func (ix *Index) AddEdge(src, dst uuid.UUID, verb types.VerbType) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	addTo(ix.outgoing, src, verb, dst)
	addTo(ix.incoming, dst, verb, src)
}

// RemoveEdge reverses AddEdge. O(1). A no-op if the edge is absent.
func (ix *Index) RemoveEdge(src, dst uuid.UUID, verb types.VerbType) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	removeFrom(ix.outgoing, src, verb, dst)
	removeFrom(ix.incoming, dst, verb, src)
}

// EdgeCount returns the number of directed edges recorded (a bidirectional
// relate() call counts as two).
func (ix *Index) EdgeCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n := 0
	for _, es := range ix.outgoing {
		for _, targets := range es {
			n += len(targets)
		}
	}
	return n
}

func addTo(m map[uuid.UUID]edgeSet, id uuid.UUID, verb types.VerbType, other uuid.UUID) {
	if m[id] == nil {
		m[id] = make(edgeSet)
	}
	if m[id][verb] == nil {
		m[id][verb] = make(map[uuid.UUID]struct{})
	}
	m[id][verb][other] = struct{}{}
}

func removeFrom(m map[uuid.UUID]edgeSet, id uuid.UUID, verb types.VerbType, other uuid.UUID) {
	if m[id] == nil || m[id][verb] == nil {
		return
	}
	delete(m[id][verb], other)
}

// NeighborOptions filters a Neighbors call.
type NeighborOptions struct {
	Direction Direction // defaults to DirectionOut
	VerbType  types.VerbType // empty means any verb
	Limit     int            // 0 means unlimited
	Offset    int
}

// Neighbors returns id's adjacent ids per opts. O(1) lookup + O(k)
// materialization (spec §4.6).
func (ix *Index) Neighbors(id uuid.UUID, opts NeighborOptions) []uuid.UUID {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	dir := opts.Direction
	if dir == "" {
		dir = DirectionOut
	}

	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	collect := func(m map[uuid.UUID]edgeSet) {
		es, ok := m[id]
		if !ok {
			return
		}
		for verb, targets := range es {
			if opts.VerbType != "" && verb != opts.VerbType {
				continue
			}
			for t := range targets {
				if _, dup := seen[t]; dup {
					continue
				}
				seen[t] = struct{}{}
				out = append(out, t)
			}
		}
	}

	if dir == DirectionOut || dir == DirectionBoth {
		collect(ix.outgoing)
	}
	if dir == DirectionIn || dir == DirectionBoth {
		collect(ix.incoming)
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out
}

// DefaultReachableBudget bounds reachable()'s work when the caller doesn't
// override it (spec §4.6 "implementation-level node budget (default 10k
// visited)").
const DefaultReachableBudget = 10000

// ReachableOptions filters a Reachable call.
type ReachableOptions struct {
	Direction Direction
	VerbType  types.VerbType
	Budget    int // max nodes visited; 0 means DefaultReachableBudget
}

// Reachable runs a breadth-first search from id out to depth hops,
// returning every visited id (excluding id itself), capped by depth and a
// node-visit budget (spec §4.6 reachable()).
func (ix *Index) Reachable(id uuid.UUID, depth int, opts ReachableOptions) map[uuid.UUID]struct{} {
	budget := opts.Budget
	if budget <= 0 {
		budget = DefaultReachableBudget
	}

	visited := map[uuid.UUID]struct{}{id: {}}
	frontier := []uuid.UUID{id}
	visitedCount := 0

	for d := 0; d < depth && len(frontier) > 0; d++ {
		var next []uuid.UUID
		for _, cur := range frontier {
			if visitedCount >= budget {
				break
			}
			for _, nb := range ix.Neighbors(cur, NeighborOptions{Direction: opts.Direction, VerbType: opts.VerbType}) {
				if _, ok := visited[nb]; ok {
					continue
				}
				visited[nb] = struct{}{}
				next = append(next, nb)
				visitedCount++
				if visitedCount >= budget {
					break
				}
			}
		}
		frontier = next
	}

	delete(visited, id)
	return visited
}
