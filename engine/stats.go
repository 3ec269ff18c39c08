package engine

import (
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// Stats is a point-in-time snapshot of the engine's size and health,
// exposed for operators and for the HNSW compaction trigger (spec §4.4:
// compact once soft-deleted nodes exceed 20% of the graph).
type Stats struct {
	EntityCount       int
	RelationshipEdges int // directed edge count; a bidirectional relate() counts twice
	HNSWLiveNodes     int
	HNSWDeletedFraction float64
	CacheSize         int
	NeedsCompaction   bool
}

// hnswCompactionThreshold is the soft-deleted fraction past which the
// HNSW graph should be rebuilt (spec §4.4).
const hnswCompactionThreshold = 0.20

// Stats reports the engine's current size and health.
func (e *Engine) Stats() Stats {
	s := Stats{
		EntityCount:         len(e.meta.AllIDs()),
		RelationshipEdges:   e.graph.EdgeCount(),
		HNSWLiveNodes:       e.vec.Len(),
		HNSWDeletedFraction: e.vec.DeletedFraction(),
		CacheSize:           e.entities.Len(),
	}
	s.NeedsCompaction = s.HNSWDeletedFraction > hnswCompactionThreshold

	e.log.WithFields(logrus.Fields{
		"entities":         humanize.Comma(int64(s.EntityCount)),
		"edges":            humanize.Comma(int64(s.RelationshipEdges)),
		"hnsw_live_nodes":  humanize.Comma(int64(s.HNSWLiveNodes)),
		"hnsw_deleted_pct": s.HNSWDeletedFraction,
		"needs_compaction": s.NeedsCompaction,
	}).Debug("stats snapshot")
	return s
}
