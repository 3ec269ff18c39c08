package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainydb/brainy/errs"
)

func TestMemoryAdapter_WriteReadRoundTrip(t *testing.T) {
	m := NewMemoryAdapter()
	ctx := context.Background()
	require.NoError(t, m.Write(ctx, "entities/nouns/ab/x/metadata.json", []byte(`{"a":1}`)))

	data, err := m.Read(ctx, "entities/nouns/ab/x/metadata.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
}

func TestMemoryAdapter_ReadMissingReturnsNotFound(t *testing.T) {
	m := NewMemoryAdapter()
	_, err := m.Read(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.NotFound))
}

func TestMemoryAdapter_DeleteIsIdempotent(t *testing.T) {
	m := NewMemoryAdapter()
	ctx := context.Background()
	require.NoError(t, m.Write(ctx, "p", []byte("x")))
	require.NoError(t, m.Delete(ctx, "p"))
	require.NoError(t, m.Delete(ctx, "p"))
	_, err := m.Read(ctx, "p")
	assert.True(t, errors.Is(err, errs.NotFound))
}

func TestMemoryAdapter_List_FiltersByPrefix(t *testing.T) {
	m := NewMemoryAdapter()
	ctx := context.Background()
	require.NoError(t, m.Write(ctx, "entities/nouns/ab/1", []byte("x")))
	require.NoError(t, m.Write(ctx, "entities/nouns/cd/2", []byte("y")))

	out, err := m.List(ctx, "entities/nouns/ab/")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "entities/nouns/ab/1", out[0].Path)
}

func TestMemoryAdapter_ReadBatch_OmitsMissing(t *testing.T) {
	m := NewMemoryAdapter()
	ctx := context.Background()
	require.NoError(t, m.Write(ctx, "a", []byte("1")))
	require.NoError(t, m.Write(ctx, "b", []byte("2")))

	out, err := m.ReadBatch(ctx, []string{"a", "b", "missing"})
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, []byte("1"), out["a"])
}

func TestMemoryAdapter_WriteIsolatesCallerBuffer(t *testing.T) {
	m := NewMemoryAdapter()
	ctx := context.Background()
	buf := []byte("original")
	require.NoError(t, m.Write(ctx, "p", buf))
	buf[0] = 'X'

	data, err := m.Read(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}
