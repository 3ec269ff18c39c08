package txn

import (
	"context"

	"github.com/google/uuid"

	"github.com/brainydb/brainy/entitystore"
	"github.com/brainydb/brainy/graphindex"
	"github.com/brainydb/brainy/hnsw"
	"github.com/brainydb/brainy/metaindex"
	"github.com/brainydb/brainy/types"
)

// State bundles the handles every Op in the engine's vocabulary operates
// against. One State is shared by every Op in a Txn.
type State struct {
	Store *entitystore.Store
	Meta  *metaindex.Index
	Graph *graphindex.Index
	HNSW  *hnsw.Index
}

func asState(s interface{}) *State { return s.(*State) }

// PutEntityMeta writes only an entity's metadata blob, one adapter.Write
// wrapped as one atomic op. undo restores prior's metadata (nil meaning the
// entity was new, so undo deletes the metadata blob rather than touching
// any vector blob).
func PutEntityMeta(ctx context.Context, e *types.Entity, prior *types.Entity) Op {
	return NewOp(KindPutEntityMeta,
		func(s interface{}) error { return asState(s).Store.PutEntityMetadata(ctx, e) },
		func(s interface{}) error {
			if prior == nil {
				return asState(s).Store.DeleteEntityMetadata(ctx, e.ID)
			}
			return asState(s).Store.PutEntityMetadata(ctx, prior)
		},
	)
}

// PutEntityVector writes only an entity's vector blob, one adapter.Write
// wrapped as one atomic op, independent of its metadata. This is the op
// callers enqueue for a vector-only change (re-embedding) or alongside
// PutEntityMeta when adding a new entity; keeping the two writes as
// separate ops means a failure in one never leaves the other half-applied.
// undo restores priorVector (nil meaning no vector existed yet, so undo
// deletes the blob).
func PutEntityVector(ctx context.Context, id uuid.UUID, vector []float32, priorVector []float32) Op {
	return NewOp(KindPutEntityVector,
		func(s interface{}) error { return asState(s).Store.PutVector(ctx, id, vector) },
		func(s interface{}) error {
			if priorVector == nil {
				return asState(s).Store.DeleteVector(ctx, id)
			}
			return asState(s).Store.PutVector(ctx, id, priorVector)
		},
	)
}

// DeleteEntity removes an entity's blobs. undo restores the full prior
// entity.
func DeleteEntity(ctx context.Context, id uuid.UUID, prior *types.Entity) Op {
	return NewOp(KindDeleteEntity,
		func(s interface{}) error { return asState(s).Store.DeleteEntity(ctx, id) },
		func(s interface{}) error {
			if prior == nil {
				return nil
			}
			return asState(s).Store.PutEntity(ctx, prior)
		},
	)
}

// PutRelationship writes a relationship's metadata blob.
func PutRelationship(ctx context.Context, r *types.Relationship, prior *types.Relationship) Op {
	return NewOp(KindPutRelationship,
		func(s interface{}) error { return asState(s).Store.PutRelationship(ctx, r) },
		func(s interface{}) error {
			if prior == nil {
				return asState(s).Store.DeleteRelationship(ctx, r.ID)
			}
			return asState(s).Store.PutRelationship(ctx, prior)
		},
	)
}

// DeleteRelationship removes a relationship's blob.
func DeleteRelationship(ctx context.Context, id uuid.UUID, prior *types.Relationship) Op {
	return NewOp(KindDeleteRelationship,
		func(s interface{}) error { return asState(s).Store.DeleteRelationship(ctx, id) },
		func(s interface{}) error {
			if prior == nil {
				return nil
			}
			return asState(s).Store.PutRelationship(ctx, prior)
		},
	)
}

// UpdateGraphIndex adds or removes an edge in the adjacency index.
func UpdateGraphIndex(add bool, src, dst uuid.UUID, verb types.VerbType) Op {
	return NewOp(KindUpdateGraphIndex,
		func(s interface{}) error {
			g := asState(s).Graph
			if add {
				g.AddEdge(src, dst, verb)
			} else {
				g.RemoveEdge(src, dst, verb)
			}
			return nil
		},
		func(s interface{}) error {
			g := asState(s).Graph
			if add {
				g.RemoveEdge(src, dst, verb)
			} else {
				g.AddEdge(src, dst, verb)
			}
			return nil
		},
	)
}

// UpdateMetadataIndex indexes or unindexes an entity's metadata fields.
func UpdateMetadataIndex(add bool, id uuid.UUID, noun types.NounType, meta types.Metadata) Op {
	return NewOp(KindUpdateMetadataIndex,
		func(s interface{}) error {
			m := asState(s).Meta
			if add {
				m.IndexEntity(id, noun, meta)
			} else {
				m.UnindexEntity(id, noun, meta)
			}
			return nil
		},
		func(s interface{}) error {
			m := asState(s).Meta
			if add {
				m.UnindexEntity(id, noun, meta)
			} else {
				m.IndexEntity(id, noun, meta)
			}
			return nil
		},
	)
}

// UpdateHNSW inserts or soft-deletes a vector in the HNSW index. undo for
// an insert soft-deletes the node back out; undo for a delete relies on
// the index's soft-delete being reversible by clearing the deleted flag,
// which Index.Undelete exposes for exactly this purpose.
func UpdateHNSW(insert bool, id uuid.UUID, vector []float32) Op {
	return NewOp(KindUpdateHNSW,
		func(s interface{}) error {
			h := asState(s).HNSW
			if insert {
				h.Insert(id, vector)
				return nil
			}
			h.Delete(id)
			return nil
		},
		func(s interface{}) error {
			h := asState(s).HNSW
			if insert {
				h.Delete(id)
				return nil
			}
			h.Undelete(id)
			return nil
		},
	)
}
