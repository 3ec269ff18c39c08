package txn

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainydb/brainy/entitystore"
	"github.com/brainydb/brainy/graphindex"
	"github.com/brainydb/brainy/hnsw"
	"github.com/brainydb/brainy/metaindex"
	"github.com/brainydb/brainy/storage"
	"github.com/brainydb/brainy/types"
)

func newTestState() *State {
	return &State{
		Store: entitystore.New(storage.NewMemoryAdapter()),
		Meta:  metaindex.New(),
		Graph: graphindex.New(),
		HNSW:  hnsw.New(hnsw.DefaultConfig(), hnsw.Cosine, 1),
	}
}

func TestOps_PutEntityMeta_CommitThenRollback(t *testing.T) {
	ctx := context.Background()
	state := newTestState()
	e := &types.Entity{ID: uuid.New(), Type: types.NounPerson, Vector: []float32{1, 0}, Metadata: types.Metadata{"name": "ada"}}

	txn := Begin(state)
	require.NoError(t, txn.Enqueue(PutEntityMeta(ctx, e, nil)))
	require.NoError(t, txn.Enqueue(PutEntityVector(ctx, e.ID, e.Vector, nil)))
	_, err := txn.Commit()
	require.NoError(t, err)

	got, err := state.Store.GetEntity(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, e.Vector, got.Vector)
}

func TestOps_PutEntityMeta_RollsBackOnDownstreamFailure(t *testing.T) {
	ctx := context.Background()
	state := newTestState()
	e := &types.Entity{ID: uuid.New(), Type: types.NounPerson, Vector: []float32{1, 0}, Metadata: types.Metadata{"name": "ada"}}

	txn := Begin(state)
	require.NoError(t, txn.Enqueue(PutEntityMeta(ctx, e, nil)))
	require.NoError(t, txn.Enqueue(NewOp(Kind("fail"),
		func(interface{}) error { return assert.AnError },
		func(interface{}) error { return nil },
	)))

	_, err := txn.Commit()
	require.Error(t, err)

	_, err = state.Store.GetEntityMetadataBatch(ctx, []uuid.UUID{e.ID})
	require.NoError(t, err)
	_, err = state.Store.GetEntity(ctx, e.ID)
	assert.Error(t, err) // vector blob was never written, so the full read 404s
}

// TestOps_PutEntityVector_FailureLeavesMetadataIntact is the regression test
// for the scenario the metadata/vector split exists to prevent: if the
// metadata write is enqueued as its own op ahead of the vector write, a
// failing vector write rolls back only the metadata op, and since that op's
// own apply was a single write, its undo fully restores the prior metadata
// blob rather than leaving a half-applied record.
func TestOps_PutEntityVector_FailureLeavesMetadataIntact(t *testing.T) {
	ctx := context.Background()
	state := newTestState()
	id := uuid.New()
	prior := &types.Entity{ID: id, Type: types.NounPerson, Vector: []float32{1, 0}, Metadata: types.Metadata{"name": "ada"}}
	require.NoError(t, state.Store.PutEntity(ctx, prior))

	updated := prior.Clone()
	updated.Metadata["name"] = "renamed"

	txn := Begin(state)
	require.NoError(t, txn.Enqueue(PutEntityMeta(ctx, updated, prior)))
	require.NoError(t, txn.Enqueue(NewOp(KindPutEntityVector,
		func(interface{}) error { return assert.AnError },
		func(interface{}) error { return nil },
	)))

	_, err := txn.Commit()
	require.Error(t, err)

	got, err := state.Store.GetEntity(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ada", got.Metadata["name"])
	assert.Equal(t, []float32{1, 0}, got.Vector)
}

func TestOps_UpdateGraphIndex_AddThenUndoRemoves(t *testing.T) {
	state := newTestState()
	a, b := uuid.New(), uuid.New()

	txn := Begin(state)
	require.NoError(t, txn.Enqueue(UpdateGraphIndex(true, a, b, types.VerbFollows)))
	require.NoError(t, txn.Enqueue(NewOp(Kind("fail"), func(interface{}) error { return assert.AnError }, func(interface{}) error { return nil })))
	_, err := txn.Commit()
	require.Error(t, err)

	assert.Empty(t, state.Graph.Neighbors(a, graphindex.NeighborOptions{Direction: graphindex.DirectionOut}))
}

func TestOps_UpdateMetadataIndex_AddThenUndoRemoves(t *testing.T) {
	state := newTestState()
	id := uuid.New()
	meta := types.Metadata{"status": "active"}

	txn := Begin(state)
	require.NoError(t, txn.Enqueue(UpdateMetadataIndex(true, id, types.NounPerson, meta)))
	require.NoError(t, txn.Enqueue(NewOp(Kind("fail"), func(interface{}) error { return assert.AnError }, func(interface{}) error { return nil })))
	_, err := txn.Commit()
	require.Error(t, err)

	assert.False(t, state.Meta.Eval(&metaindex.Filter{Field: "status", Op: metaindex.OpEquals, Value: "active"}).Has(id))
}

func TestOps_UpdateHNSW_InsertThenUndoDeletes(t *testing.T) {
	state := newTestState()
	id := uuid.New()

	txn := Begin(state)
	require.NoError(t, txn.Enqueue(UpdateHNSW(true, id, []float32{1, 0})))
	require.NoError(t, txn.Enqueue(NewOp(Kind("fail"), func(interface{}) error { return assert.AnError }, func(interface{}) error { return nil })))
	_, err := txn.Commit()
	require.Error(t, err)

	results := state.HNSW.Search([]float32{1, 0}, 5, 50)
	for _, r := range results {
		assert.NotEqual(t, id, r.ID)
	}
}
