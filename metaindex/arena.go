package metaindex

import (
	"sync"

	"github.com/google/uuid"
)

// Arena hands out stable uint32 handles for uuid.UUIDs, so the word index
// can key a roaring.Bitmap (which only stores uint32/uint64) by entity id
// without smuggling pointers between nodes (spec §12 "ids are arena-style
// handles").
type Arena struct {
	mu      sync.RWMutex
	toID    map[uint32]uuid.UUID
	toHdl   map[uuid.UUID]uint32
	nextHdl uint32
}

func NewArena() *Arena {
	return &Arena{toID: make(map[uint32]uuid.UUID), toHdl: make(map[uuid.UUID]uint32)}
}

// Handle returns id's handle, minting a new one if this is the first time
// id has been seen.
func (a *Arena) Handle(id uuid.UUID) uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if h, ok := a.toHdl[id]; ok {
		return h
	}
	a.nextHdl++
	h := a.nextHdl
	a.toHdl[id] = h
	a.toID[h] = id
	return h
}

// Lookup reverses Handle. ok is false if the handle was never minted or
// was released.
func (a *Arena) Lookup(h uint32) (uuid.UUID, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	id, ok := a.toID[h]
	return id, ok
}

// Release forgets id's handle entirely (used when an id is permanently
// removed from the word index across every word it appeared in).
func (a *Arena) Release(id uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if h, ok := a.toHdl[id]; ok {
		delete(a.toHdl, id)
		delete(a.toID, h)
	}
}
