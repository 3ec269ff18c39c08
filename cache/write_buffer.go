package cache

import (
	"sync"

	"github.com/google/uuid"

	"github.com/brainydb/brainy/types"
)

// WriteBuffer holds just-written entities so a get(id) immediately after
// an add(id) in the same transaction sees it without a storage round-trip
// (spec §4.11 "Flushed on every commit; invalidated on rollback").
type WriteBuffer struct {
	mu      sync.RWMutex
	pending map[uuid.UUID]*types.Entity
}

func NewWriteBuffer() *WriteBuffer {
	return &WriteBuffer{pending: make(map[uuid.UUID]*types.Entity)}
}

// Stage records e as part of the in-flight transaction's write set.
func (b *WriteBuffer) Stage(e *types.Entity) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[e.ID] = e
}

// Get returns a staged entity not yet durably committed.
func (b *WriteBuffer) Get(id uuid.UUID) (*types.Entity, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.pending[id]
	return e, ok
}

// Flush clears the buffer after a successful commit; callers move staged
// entries into the long-lived EntityCache before calling Flush.
func (b *WriteBuffer) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = make(map[uuid.UUID]*types.Entity)
}

// Rollback discards the buffer's contents without touching the durable
// cache, called when a transaction's undo path runs.
func (b *WriteBuffer) Rollback() {
	b.Flush()
}
