package cache

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainydb/brainy/types"
)

func TestEntityCache_PutGetInvalidate(t *testing.T) {
	c, err := NewEntityCache(0)
	require.NoError(t, err)

	e := &types.Entity{ID: uuid.New(), Type: types.NounDocument}
	c.Put(e)

	got, ok := c.Get(e.ID)
	require.True(t, ok)
	assert.Equal(t, e.ID, got.ID)

	c.Invalidate(e.ID)
	_, ok = c.Get(e.ID)
	assert.False(t, ok)
}

func TestEntityCache_MissingIDReturnsFalse(t *testing.T) {
	c, err := NewEntityCache(4)
	require.NoError(t, err)
	_, ok := c.Get(uuid.New())
	assert.False(t, ok)
}

func TestEntityCache_EvictsLeastRecentlyUsedBeyondSize(t *testing.T) {
	c, err := NewEntityCache(2)
	require.NoError(t, err)

	a := &types.Entity{ID: uuid.New()}
	b := &types.Entity{ID: uuid.New()}
	d := &types.Entity{ID: uuid.New()}
	c.Put(a)
	c.Put(b)
	c.Put(d)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(a.ID)
	assert.False(t, ok)
}

func TestWriteBuffer_StageGetFlush(t *testing.T) {
	b := NewWriteBuffer()
	e := &types.Entity{ID: uuid.New()}
	b.Stage(e)

	got, ok := b.Get(e.ID)
	require.True(t, ok)
	assert.Equal(t, e.ID, got.ID)

	b.Flush()
	_, ok = b.Get(e.ID)
	assert.False(t, ok)
}

func TestWriteBuffer_RollbackDiscardsStaged(t *testing.T) {
	b := NewWriteBuffer()
	e := &types.Entity{ID: uuid.New()}
	b.Stage(e)
	b.Rollback()

	_, ok := b.Get(e.ID)
	assert.False(t, ok)
}
