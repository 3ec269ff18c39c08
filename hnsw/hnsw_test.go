package hnsw

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomVector(r *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = r.Float32()
	}
	return v
}

func TestIndex_InsertSearch_FindsExactMatch(t *testing.T) {
	idx := New(DefaultConfig(), Cosine, 42)
	r := rand.New(rand.NewSource(1))

	target := randomVector(r, 16)
	targetID := uuid.New()
	idx.Insert(targetID, target)

	for i := 0; i < 200; i++ {
		idx.Insert(uuid.New(), randomVector(r, 16))
	}

	results := idx.Search(target, 5, 0)
	require.NotEmpty(t, results)
	assert.Equal(t, targetID, results[0].ID)
	assert.InDelta(t, 0, results[0].Distance, 1e-4)
}

func TestIndex_Search_ReturnsKResults(t *testing.T) {
	idx := New(Config{M: 8, EfConstruction: 64, EfSearch: 32}, Cosine, 7)
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 100; i++ {
		idx.Insert(uuid.New(), randomVector(r, 8))
	}
	results := idx.Search(randomVector(r, 8), 10, 0)
	assert.Len(t, results, 10)
}

func TestIndex_Delete_ExcludesFromSearch(t *testing.T) {
	idx := New(DefaultConfig(), Cosine, 3)
	r := rand.New(rand.NewSource(3))

	target := randomVector(r, 12)
	targetID := uuid.New()
	idx.Insert(targetID, target)
	for i := 0; i < 50; i++ {
		idx.Insert(uuid.New(), randomVector(r, 12))
	}

	assert.True(t, idx.Delete(targetID))
	results := idx.Search(target, 5, 0)
	for _, res := range results {
		assert.NotEqual(t, targetID, res.ID)
	}
}

func TestIndex_Delete_TwiceReturnsFalseSecondTime(t *testing.T) {
	idx := New(DefaultConfig(), Cosine, 1)
	id := uuid.New()
	idx.Insert(id, []float32{1, 0})
	assert.True(t, idx.Delete(id))
	assert.False(t, idx.Delete(id))
}

func TestIndex_DeletedFraction_TracksRatio(t *testing.T) {
	idx := New(DefaultConfig(), Cosine, 1)
	ids := make([]uuid.UUID, 10)
	for i := range ids {
		ids[i] = uuid.New()
		idx.Insert(ids[i], []float32{float32(i), 0})
	}
	for i := 0; i < 3; i++ {
		idx.Delete(ids[i])
	}
	assert.InDelta(t, 0.3, idx.DeletedFraction(), 1e-9)
}

func TestIndex_Compact_DropsDeletedNodesAndPreservesLive(t *testing.T) {
	idx := New(DefaultConfig(), Cosine, 1)
	r := rand.New(rand.NewSource(5))
	var kept, dropped []uuid.UUID
	for i := 0; i < 20; i++ {
		id := uuid.New()
		idx.Insert(id, randomVector(r, 6))
		if i%2 == 0 {
			dropped = append(dropped, id)
		} else {
			kept = append(kept, id)
		}
	}
	for _, id := range dropped {
		idx.Delete(id)
	}
	idx.Compact()

	assert.Equal(t, 0, idx.deletedCount)
	assert.Equal(t, len(kept), idx.Len())
}

func TestSnapshot_RoundTrip(t *testing.T) {
	idx := New(DefaultConfig(), Cosine, 9)
	r := rand.New(rand.NewSource(9))
	ids := make([]uuid.UUID, 30)
	for i := range ids {
		ids[i] = uuid.New()
		idx.Insert(ids[i], randomVector(r, 10))
	}

	data, err := idx.Snapshot()
	require.NoError(t, err)

	restored, err := LoadSnapshot(data, Cosine)
	require.NoError(t, err)
	assert.Equal(t, idx.Len(), restored.Len())

	results := restored.Search(idx.nodes[ids[0]].vector, 3, 0)
	assert.NotEmpty(t, results)
}

func TestBoltStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenBoltStore(filepath.Join(dir, "hnsw.db"))
	require.NoError(t, err)
	defer store.Close()

	idx := New(DefaultConfig(), Cosine, 11)
	r := rand.New(rand.NewSource(11))
	for i := 0; i < 10; i++ {
		idx.Insert(uuid.New(), randomVector(r, 6))
	}

	require.NoError(t, store.Save("main", idx))

	loaded, err := store.Load("main", Cosine)
	require.NoError(t, err)
	assert.Equal(t, idx.Len(), loaded.Len())
}

func TestBoltStore_Load_MissingBranchReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenBoltStore(filepath.Join(dir, "hnsw.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Load("nope", Cosine)
	require.Error(t, err)
}

func TestCosine_IdenticalVectorsZeroDistance(t *testing.T) {
	v := []float32{1, 2, 3}
	assert.InDelta(t, 0, Cosine(v, v), 1e-6)
}

func TestInnerProduct_HigherSimilarityLowerDistance(t *testing.T) {
	a := []float32{1, 0}
	close := []float32{0.9, 0.1}
	far := []float32{0, 1}
	assert.Less(t, InnerProduct(a, close), InnerProduct(a, far))
}
