package entitystore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainydb/brainy/errs"
	"github.com/brainydb/brainy/storage"
	"github.com/brainydb/brainy/types"
)

func newTestStore() *Store {
	return New(storage.NewMemoryAdapter())
}

func TestStore_PutGetEntity_RoundTrip(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	e := &types.Entity{
		ID:        uuid.New(),
		Vector:    []float32{0.1, 0.2, 0.3},
		Type:      types.NounPerson,
		Metadata:  types.Metadata{"name": "Ada"},
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.PutEntity(ctx, e))

	got, err := s.GetEntity(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Vector, got.Vector)
	assert.Equal(t, e.Type, got.Type)
	assert.Equal(t, "Ada", got.Metadata["name"])
}

func TestStore_GetEntity_MissingReturnsNotFound(t *testing.T) {
	s := newTestStore()
	_, err := s.GetEntity(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.NotFound))
}

func TestStore_DeleteEntity_RemovesBothBlobs(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	e := &types.Entity{ID: uuid.New(), Vector: []float32{1, 2}, Type: types.NounDocument}
	require.NoError(t, s.PutEntity(ctx, e))
	require.NoError(t, s.DeleteEntity(ctx, e.ID))

	_, err := s.GetEntity(ctx, e.ID)
	assert.True(t, errors.Is(err, errs.NotFound))
}

func TestStore_PutEntityMetadata_LeavesVectorBlobUntouched(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	e := &types.Entity{ID: uuid.New(), Vector: []float32{1, 2, 3}, Type: types.NounDocument, Metadata: types.Metadata{"k": "1"}}
	require.NoError(t, s.PutEntity(ctx, e))

	e.Metadata["k"] = "2"
	require.NoError(t, s.PutEntityMetadata(ctx, e))

	got, err := s.GetEntity(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "2", got.Metadata["k"])
	assert.Equal(t, []float32{1, 2, 3}, got.Vector)
}

func TestStore_PutVector_LeavesMetadataBlobUntouched(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	e := &types.Entity{ID: uuid.New(), Vector: []float32{1, 2, 3}, Type: types.NounDocument, Metadata: types.Metadata{"k": "1"}}
	require.NoError(t, s.PutEntity(ctx, e))

	require.NoError(t, s.PutVector(ctx, e.ID, []float32{9, 9, 9}))

	got, err := s.GetEntity(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{9, 9, 9}, got.Vector)
	assert.Equal(t, "1", got.Metadata["k"])
}

func TestStore_GetEntityMetadataBatch_SkipsVectorIO(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	e1 := &types.Entity{ID: uuid.New(), Vector: []float32{1, 2}, Type: types.NounDocument, Metadata: types.Metadata{"k": "1"}}
	e2 := &types.Entity{ID: uuid.New(), Vector: []float32{3, 4}, Type: types.NounDocument, Metadata: types.Metadata{"k": "2"}}
	require.NoError(t, s.PutEntity(ctx, e1))
	require.NoError(t, s.PutEntity(ctx, e2))

	out, err := s.GetEntityMetadataBatch(ctx, []uuid.UUID{e1.ID, e2.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Nil(t, out[e1.ID].Vector)
	assert.Equal(t, "1", out[e1.ID].Metadata["k"])
}

func TestStore_PutGetRelationship_RoundTrip(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	w := 0.75
	r := &types.Relationship{
		ID:     uuid.New(),
		Source: uuid.New(),
		Target: uuid.New(),
		Type:   types.VerbWorksFor,
		Weight: &w,
	}
	require.NoError(t, s.PutRelationship(ctx, r))

	got, err := s.GetRelationship(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Source, got.Source)
	assert.Equal(t, r.Target, got.Target)
	require.NotNil(t, got.Weight)
	assert.Equal(t, 0.75, *got.Weight)
}

func TestStore_DeleteRelationship_Idempotent(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	r := &types.Relationship{ID: uuid.New(), Source: uuid.New(), Target: uuid.New(), Type: types.VerbOwns}
	require.NoError(t, s.PutRelationship(ctx, r))
	require.NoError(t, s.DeleteRelationship(ctx, r.ID))
	require.NoError(t, s.DeleteRelationship(ctx, r.ID))
}
