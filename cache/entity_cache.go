// Package cache implements the engine's in-process entity LRU, hot-path
// write buffer, and the optional Redis-backed distributed branch lock and
// shared cache (spec §4.11).
package cache

import (
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/brainydb/brainy/types"
)

// DefaultEntityCacheSize is the entity LRU's default capacity (spec §4.11
// "Size configurable (default 10 000 entries)").
const DefaultEntityCacheSize = 10000

// EntityCache is the id -> materialized entity LRU. Populated on get,
// invalidated on update/delete for that id.
type EntityCache struct {
	lru *lru.Cache[uuid.UUID, *types.Entity]
}

// NewEntityCache builds an entity cache holding at most size entries.
// size <= 0 falls back to DefaultEntityCacheSize.
func NewEntityCache(size int) (*EntityCache, error) {
	if size <= 0 {
		size = DefaultEntityCacheSize
	}
	c, err := lru.New[uuid.UUID, *types.Entity](size)
	if err != nil {
		return nil, err
	}
	return &EntityCache{lru: c}, nil
}

// Get returns the cached entity for id, if present.
func (c *EntityCache) Get(id uuid.UUID) (*types.Entity, bool) {
	return c.lru.Get(id)
}

// Put populates the cache after a successful get/add.
func (c *EntityCache) Put(e *types.Entity) {
	c.lru.Add(e.ID, e)
}

// Invalidate removes id from the cache, called on update/delete.
func (c *EntityCache) Invalidate(id uuid.UUID) {
	c.lru.Remove(id)
}

// Len reports the number of cached entries.
func (c *EntityCache) Len() int { return c.lru.Len() }
