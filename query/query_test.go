package query

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

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	return &Index{
		Store: entitystore.New(storage.NewMemoryAdapter()),
		Meta:  metaindex.New(),
		Graph: graphindex.New(),
		HNSW:  hnsw.New(hnsw.DefaultConfig(), hnsw.Cosine, 7),
	}
}

func seedEntity(t *testing.T, ctx context.Context, ix *Index, vector []float32, noun types.NounType, meta types.Metadata) uuid.UUID {
	t.Helper()
	id := uuid.New()
	e := &types.Entity{ID: id, Type: noun, Vector: vector, Metadata: meta}
	require.NoError(t, ix.Store.PutEntity(ctx, e))
	ix.Meta.IndexEntity(id, noun, meta)
	if vector != nil {
		ix.HNSW.Insert(id, vector)
	}
	return id
}

func TestFind_VectorOnly_ReturnsNearestFirst(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	near := seedEntity(t, ctx, ix, []float32{1, 0, 0}, types.NounDocument, types.Metadata{"year": float64(2024)})
	far := seedEntity(t, ctx, ix, []float32{-1, 0, 0}, types.NounDocument, types.Metadata{"year": float64(2020)})

	results, err := Find(ctx, ix, Params{QueryVector: []float32{1, 0, 0}, Limit: 2, Mode: ModeSemantic})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, near, results[0].Entity.ID)
	_ = far
}

func TestFind_MetadataOnly_FiltersByField(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	a := seedEntity(t, ctx, ix, nil, types.NounDocument, types.Metadata{"year": float64(2020)})
	b := seedEntity(t, ctx, ix, nil, types.NounDocument, types.Metadata{"year": float64(2022)})
	c := seedEntity(t, ctx, ix, nil, types.NounDocument, types.Metadata{"year": float64(2024)})

	results, err := Find(ctx, ix, Params{
		Filter: &metaindex.Filter{Field: "year", Op: metaindex.OpGTE, Value: float64(2022)},
		Limit:  10,
	})
	require.NoError(t, err)
	ids := make(map[uuid.UUID]bool)
	for _, r := range results {
		ids[r.Entity.ID] = true
	}
	assert.True(t, ids[b])
	assert.True(t, ids[c])
	assert.False(t, ids[a])
}

func TestFind_GraphConstraint_RestrictsToReachable(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	p1 := seedEntity(t, ctx, ix, nil, types.NounPerson, types.Metadata{})
	org := seedEntity(t, ctx, ix, nil, types.NounOrganization, types.Metadata{})
	proj := seedEntity(t, ctx, ix, nil, types.NounProject, types.Metadata{})
	other := seedEntity(t, ctx, ix, nil, types.NounProject, types.Metadata{})
	_ = other

	ix.Graph.AddEdge(p1, org, types.VerbWorksFor)
	ix.Graph.AddEdge(org, proj, types.VerbOwns)

	results, err := Find(ctx, ix, Params{
		Graph: &GraphConstraint{From: []uuid.UUID{p1}, Depth: 2, Direction: graphindex.DirectionOut},
		Limit: 10,
	})
	require.NoError(t, err)
	ids := make(map[uuid.UUID]bool)
	for _, r := range results {
		ids[r.Entity.ID] = true
	}
	assert.True(t, ids[org])
	assert.True(t, ids[proj])
	assert.False(t, ids[other])
}

func TestFind_Hybrid_TextOnlyDegeneratesCorrectly(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	qf := seedEntity(t, ctx, ix, nil, types.NounDocument, types.Metadata{"title": "quick brown fox"})
	qr := seedEntity(t, ctx, ix, nil, types.NounDocument, types.Metadata{"title": "quick fox runs"})
	slow := seedEntity(t, ctx, ix, nil, types.NounDocument, types.Metadata{"title": "slow turtle"})

	results, err := Find(ctx, ix, Params{QueryText: "quick fox", Mode: ModeText, Limit: 3})
	require.NoError(t, err)
	require.Len(t, results, 2)
	ids := []uuid.UUID{results[0].Entity.ID, results[1].Entity.ID}
	assert.Contains(t, ids, qf)
	assert.Contains(t, ids, qr)
	assert.NotContains(t, ids, slow)
}

func TestFind_OffsetBeyondResultCount_ReturnsEmptyNotError(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)
	seedEntity(t, ctx, ix, nil, types.NounDocument, types.Metadata{"year": float64(2024)})

	results, err := Find(ctx, ix, Params{
		Filter: &metaindex.Filter{Field: "year", Op: metaindex.OpEquals, Value: float64(2024)},
		Offset: 50,
		Limit:  10,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFind_OrderBy_OverridesRelevanceOrder(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	a := seedEntity(t, ctx, ix, nil, types.NounDocument, types.Metadata{"year": float64(2024)})
	b := seedEntity(t, ctx, ix, nil, types.NounDocument, types.Metadata{"year": float64(2020)})

	results, err := Find(ctx, ix, Params{
		Filter:  &metaindex.Filter{Field: "noun", Op: metaindex.OpEquals, Value: string(types.NounDocument)},
		OrderBy: "year",
		Order:   SortAsc,
		Limit:   10,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, b, results[0].Entity.ID)
	assert.Equal(t, a, results[1].Entity.ID)
}

func TestAutoAlpha_SchedulesByTokenCount(t *testing.T) {
	assert.Equal(t, 0.3, autoAlpha(1))
	assert.Equal(t, 0.3, autoAlpha(2))
	assert.Equal(t, 0.5, autoAlpha(3))
	assert.Equal(t, 0.5, autoAlpha(4))
	assert.Equal(t, 0.7, autoAlpha(5))
	assert.Equal(t, 0.7, autoAlpha(10))
}
