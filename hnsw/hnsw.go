// Package hnsw implements a Hierarchical Navigable Small World approximate
// nearest-neighbor index (spec §4.4): greedy multi-layer search for
// insert/query, soft-delete with threshold-triggered compaction.
package hnsw

import (
	"math"
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

// Metric computes a distance between two equal-length vectors; smaller is
// closer. Callers provide Cosine or InnerProduct per spec §4.4.
type Metric func(a, b []float32) float32

// Cosine returns 1 - cosine similarity, so 0 means identical direction.
func Cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return float32(1 - sim)
}

// InnerProduct returns the negated dot product, so a higher raw similarity
// sorts as a smaller distance.
func InnerProduct(a, b []float32) float32 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(-dot)
}

// Config holds the tunable HNSW parameters (spec §4.4).
type Config struct {
	M              int // max neighbors per node per layer (default 16)
	EfConstruction int // candidate list size during insert (default 200)
	EfSearch       int // candidate list size during query (default 100)
}

func DefaultConfig() Config {
	return Config{M: 16, EfConstruction: 200, EfSearch: 100}
}

type node struct {
	id      uuid.UUID
	vector  []float32
	level   int
	deleted bool
	// neighbors[layer] is the set of neighbor ids at that layer.
	neighbors [][]uuid.UUID
}

// Result is a single match from Search.
type Result struct {
	ID       uuid.UUID
	Distance float32
}

// Index is a single HNSW graph. Safe for concurrent use: one writer at a
// time (enforced by the caller's branch write lock per spec §6), many
// concurrent readers via an internal RWMutex.
type Index struct {
	mu sync.RWMutex

	cfg    Config
	metric Metric
	rng    *rand.Rand

	nodes        map[uuid.UUID]*node
	entryPoint   uuid.UUID
	maxLevel     int
	deletedCount int
}

// New builds an empty index. rngSeed fixes the level-assignment draw so
// repeated inserts of the same ids in the same order build an identical
// graph (spec §4.4 "deterministic given a fixed efSearch and insertion
// order" extends naturally to level assignment under a fixed seed).
func New(cfg Config, metric Metric, rngSeed int64) *Index {
	return &Index{
		cfg:    cfg,
		metric: metric,
		rng:    rand.New(rand.NewSource(rngSeed)),
		nodes:  make(map[uuid.UUID]*node),
	}
}

// randomLevel draws a node's top layer from a geometric distribution with
// parameter 1/ln(M), the standard HNSW level assignment.
func (idx *Index) randomLevel() int {
	ml := 1.0 / math.Log(float64(maxInt(idx.cfg.M, 2)))
	level := 0
	for idx.rng.Float64() < ml {
		level++
	}
	return level
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Len returns the number of live (non-deleted) nodes.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.nodes) - idx.deletedCount
}

// DeletedFraction reports the soft-deleted ratio driving the compaction
// trigger (spec §4.4: rebuild when > 20%).
func (idx *Index) DeletedFraction() float64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if len(idx.nodes) == 0 {
		return 0
	}
	return float64(idx.deletedCount) / float64(len(idx.nodes))
}
