package hnsw

import (
	"bytes"
	"encoding/gob"
	"math/rand"

	"github.com/google/uuid"

	"github.com/brainydb/brainy/errs"
)

// snapshotNode is the gob-friendly mirror of node (unexported fields can't
// be gob-encoded directly).
type snapshotNode struct {
	ID        uuid.UUID
	Vector    []float32
	Level     int
	Deleted   bool
	Neighbors [][]uuid.UUID
}

type snapshotState struct {
	Config       Config
	EntryPoint   uuid.UUID
	MaxLevel     int
	DeletedCount int
	Nodes        []snapshotNode
}

// Snapshot serializes the full graph state (spec §4.4 persistence: the
// index must survive a process restart without replaying every insert).
func (idx *Index) Snapshot() ([]byte, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	st := snapshotState{
		Config:       idx.cfg,
		EntryPoint:   idx.entryPoint,
		MaxLevel:     idx.maxLevel,
		DeletedCount: idx.deletedCount,
		Nodes:        make([]snapshotNode, 0, len(idx.nodes)),
	}
	for _, n := range idx.nodes {
		st.Nodes = append(st.Nodes, snapshotNode{
			ID:        n.id,
			Vector:    n.vector,
			Level:     n.level,
			Deleted:   n.deleted,
			Neighbors: n.neighbors,
		})
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(st); err != nil {
		return nil, errs.Integrityf(err, "encode HNSW snapshot")
	}
	return buf.Bytes(), nil
}

// LoadSnapshot rebuilds the index's in-memory state from bytes written by
// Snapshot. metric must match the one used when the snapshot was taken;
// the snapshot itself carries no function pointers.
func LoadSnapshot(data []byte, metric Metric) (*Index, error) {
	var st snapshotState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return nil, errs.Integrityf(err, "decode HNSW snapshot")
	}

	idx := &Index{
		cfg:          st.Config,
		metric:       metric,
		rng:          rand.New(rand.NewSource(1)),
		entryPoint:   st.EntryPoint,
		maxLevel:     st.MaxLevel,
		deletedCount: st.DeletedCount,
		nodes:        make(map[uuid.UUID]*node, len(st.Nodes)),
	}
	for _, sn := range st.Nodes {
		idx.nodes[sn.ID] = &node{
			id:        sn.ID,
			vector:    sn.Vector,
			level:     sn.Level,
			deleted:   sn.Deleted,
			neighbors: sn.Neighbors,
		}
	}
	return idx, nil
}
