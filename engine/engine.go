// Package engine is the public façade (spec §4.10): it validates inputs,
// opens transactions, orchestrates the entity store, indexes, and branch
// manager, and keeps the caches in sync. Every exported method corresponds
// to one spec §6 public API operation.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/brainydb/brainy/branch"
	"github.com/brainydb/brainy/cache"
	"github.com/brainydb/brainy/config"
	"github.com/brainydb/brainy/entitystore"
	"github.com/brainydb/brainy/errs"
	"github.com/brainydb/brainy/graphindex"
	"github.com/brainydb/brainy/hnsw"
	"github.com/brainydb/brainy/logging"
	"github.com/brainydb/brainy/metaindex"
	"github.com/brainydb/brainy/storage"
	"github.com/brainydb/brainy/txn"
	"github.com/brainydb/brainy/types"
)

// hnswRNGSeed fixes HNSW's level-assignment draw so two engines built from
// the same config and fed the same insert order produce identical graphs.
const hnswRNGSeed = 1

// pairKey identifies the (source, destination) side of a relationship.
// GetRelations recovers relationship ids from a graph edge via this thin
// mapping; graphindex itself tracks only adjacency, not relationship
// identity (spec §4.6/§4.10 have no shared index for this).
type pairKey struct{ src, dst uuid.UUID }

// relEdge is one entry in a pairKey's bucket: a verb type plus the
// relationship id it belongs to, since two entities may be connected by
// more than one verb.
type relEdge struct {
	verb types.VerbType
	id   uuid.UUID
}

// Engine is the single entry point embedding applications construct once
// per database. It owns no goroutines; every suspension point is a storage
// adapter call made synchronously within the calling goroutine (spec §5).
type Engine struct {
	writeMu sync.Mutex // serializes writes on this process; branch.Manager still keys edges per active branch

	cfg      config.EngineConfig
	taxonomy *types.Taxonomy
	branches *branch.Manager

	store *entitystore.Store
	meta  *metaindex.Index
	graph *graphindex.Index
	vec   *hnsw.Index

	entities *cache.EntityCache
	writeBuf *cache.WriteBuffer
	redis    *cache.RedisCache // nil unless cfg.RedisURL is set

	relMu sync.RWMutex
	rels  map[pairKey][]relEdge

	log *logrus.Entry
}

// Open builds an Engine against root (the canonical content-addressed
// storage adapter) and localBranchPath (the bbolt file backing the branch
// manager's ref/commit log). taxonomy may be nil to use the built-in seed
// taxonomy.
func Open(ctx context.Context, cfg config.EngineConfig, root storage.Adapter, localBranchPath string, taxonomy *types.Taxonomy) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if taxonomy == nil {
		taxonomy = types.NewTaxonomy(nil, nil)
	}

	mgr, err := branch.Open(ctx, root, localBranchPath)
	if err != nil {
		return nil, err
	}

	entityCache, err := cache.NewEntityCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		taxonomy: taxonomy,
		branches: mgr,
		store:    entitystore.New(mgr.Adapter()),
		meta:     metaindex.New(),
		graph:    graphindex.New(),
		vec:      hnsw.New(hnsw.Config(cfg.HNSW), metricFor(cfg.Metric), hnswRNGSeed),
		entities: entityCache,
		writeBuf: cache.NewWriteBuffer(),
		rels:     make(map[pairKey][]relEdge),
		log:      logging.New("engine"),
	}

	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		e.redis = rc
	}

	e.log.WithFields(logrus.Fields{
		"dimension":  cfg.Dimension,
		"metric":     cfg.Metric,
		"branch":     mgr.ActiveName(),
		"cache_size": humanize.Comma(int64(cfg.CacheSize)),
	}).Info("engine opened")
	return e, nil
}

func metricFor(m config.DistanceMetric) hnsw.Metric {
	if m == config.MetricInnerProd {
		return hnsw.InnerProduct
	}
	return hnsw.Cosine
}

// Close releases the branch manager's local store and optional Redis
// connection.
func (e *Engine) Close() error {
	if e.redis != nil {
		_ = e.redis.Close()
	}
	return e.branches.Close()
}

// state bundles the sub-indexes for a txn scoped to the active branch.
func (e *Engine) state() *txn.State {
	return &txn.State{Store: e.store, Meta: e.meta, Graph: e.graph, HNSW: e.vec}
}

// lockWrite takes this process's write lock and, if Redis is configured,
// the distributed branch lock too (spec §5 "exactly one writer at a time
// per branch"). unlockWrite releases both in reverse order.
func (e *Engine) lockWrite(ctx context.Context) (func(), error) {
	e.writeMu.Lock()
	if e.redis == nil {
		return e.writeMu.Unlock, nil
	}
	branchName := e.branches.ActiveName()
	ok, err := e.redis.AcquireLock(ctx, branchName, 30*time.Second)
	if err != nil {
		e.writeMu.Unlock()
		return nil, err
	}
	if !ok {
		e.writeMu.Unlock()
		return nil, errs.Conflictf("branch %q is locked by another writer", branchName)
	}
	return func() {
		_ = e.redis.ReleaseLock(ctx, branchName)
		e.writeMu.Unlock()
	}, nil
}

// Add inserts a new entity and returns its assigned id (spec §6 add()).
func (e *Engine) Add(ctx context.Context, vector []float32, noun types.NounType, meta types.Metadata) (uuid.UUID, error) {
	now := time.Now()
	ent := &types.Entity{ID: uuid.New(), Vector: vector, Type: noun, Metadata: meta, CreatedAt: now, UpdatedAt: now}
	if err := types.ValidateNewEntity(ent, e.cfg.Dimension, e.taxonomy); err != nil {
		return uuid.Nil, err
	}

	unlock, err := e.lockWrite(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer unlock()

	t := txn.Begin(e.state())
	_ = t.Enqueue(txn.PutEntityMeta(ctx, ent, nil))
	_ = t.Enqueue(txn.PutEntityVector(ctx, ent.ID, ent.Vector, nil))
	_ = t.Enqueue(txn.UpdateMetadataIndex(true, ent.ID, ent.Type, ent.Metadata))
	_ = t.Enqueue(txn.UpdateHNSW(true, ent.ID, ent.Vector))
	if _, err := t.Commit(); err != nil {
		return uuid.Nil, err
	}

	e.writeBuf.Stage(ent)
	e.entities.Put(ent)
	e.writeBuf.Flush()
	if _, err := e.branches.Commit(ctx, "add", []uuid.UUID{ent.ID}, nil, nil); err != nil {
		return ent.ID, err
	}
	return ent.ID, nil
}

// fetchFull reads id's full entity (vector included), preferring the write
// buffer then the entity cache before falling through to storage.
func (e *Engine) fetchFull(ctx context.Context, id uuid.UUID) (*types.Entity, error) {
	if ent, ok := e.writeBuf.Get(id); ok {
		return ent, nil
	}
	if ent, ok := e.entities.Get(id); ok && ent.Vector != nil {
		return ent, nil
	}
	ent, err := e.store.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	e.entities.Put(ent)
	return ent, nil
}

// Get reads an entity by id. includeVector controls whether the vector
// blob is fetched; metadata-only reads skip that I/O entirely (spec §6
// get(), §4.3 "metadata-only queries never pay the vector I/O cost").
func (e *Engine) Get(ctx context.Context, id uuid.UUID, includeVector bool) (*types.Entity, error) {
	if ent, ok := e.writeBuf.Get(id); ok {
		return stripVector(ent, includeVector), nil
	}
	if ent, ok := e.entities.Get(id); ok {
		if includeVector && ent.Vector == nil {
			// cached entry came from a metadata-only read; fall through for the vector.
		} else {
			return stripVector(ent, includeVector), nil
		}
	}
	if !includeVector {
		batch, err := e.store.GetEntityMetadataBatch(ctx, []uuid.UUID{id})
		if err != nil {
			return nil, err
		}
		ent, ok := batch[id]
		if !ok {
			return nil, errs.NotFoundf("entity %s not found", id)
		}
		e.entities.Put(ent)
		return ent, nil
	}
	ent, err := e.store.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	e.entities.Put(ent)
	return ent, nil
}

func stripVector(e *types.Entity, includeVector bool) *types.Entity {
	if includeVector {
		return e
	}
	cp := *e
	cp.Vector = nil
	return &cp
}

// UpdateSpec describes an update() call's optional fields (spec §6
// update(id, {data?, metadata?, merge=true})).
type UpdateSpec struct {
	Vector   []float32 // nil means leave the vector unchanged
	Metadata types.Metadata
	Merge    bool // true merges Metadata into existing keys; false replaces it wholesale
}

// Update applies a partial or full update to an existing entity (spec §6
// update()). Both the metadata and (if provided) vector indexes are kept
// consistent within one transaction.
func (e *Engine) Update(ctx context.Context, id uuid.UUID, spec UpdateSpec) error {
	unlock, err := e.lockWrite(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	prior, err := e.fetchFull(ctx, id)
	if err != nil {
		return err
	}

	updated := prior.Clone()
	updated.UpdatedAt = time.Now()
	if spec.Vector != nil {
		if len(spec.Vector) != e.cfg.Dimension {
			return errs.Validationf("vector", "expected dimension %d, got %d", e.cfg.Dimension, len(spec.Vector))
		}
		updated.Vector = spec.Vector
	}
	if spec.Metadata != nil {
		if spec.Merge {
			for k, v := range spec.Metadata {
				updated.Metadata[k] = v
			}
		} else {
			updated.Metadata = spec.Metadata
		}
	}

	t := txn.Begin(e.state())
	_ = t.Enqueue(txn.PutEntityMeta(ctx, updated, prior))
	if spec.Vector != nil {
		_ = t.Enqueue(txn.PutEntityVector(ctx, id, updated.Vector, prior.Vector))
	}
	_ = t.Enqueue(txn.UpdateMetadataIndex(false, id, prior.Type, prior.Metadata))
	_ = t.Enqueue(txn.UpdateMetadataIndex(true, id, updated.Type, updated.Metadata))
	if spec.Vector != nil {
		oldVector, newVector := prior.Vector, updated.Vector
		_ = t.Enqueue(txn.NewOp(txn.KindUpdateHNSW,
			func(s interface{}) error { s.(*txn.State).HNSW.Insert(id, newVector); return nil },
			func(s interface{}) error { s.(*txn.State).HNSW.Insert(id, oldVector); return nil },
		))
	}
	if _, err := t.Commit(); err != nil {
		return err
	}

	e.writeBuf.Stage(updated)
	e.entities.Invalidate(id)
	e.entities.Put(updated)
	e.writeBuf.Flush()
	_, err = e.branches.Commit(ctx, "update", []uuid.UUID{id}, nil, nil)
	return err
}

// Delete removes an entity. Idempotent: deleting an already-absent id is
// not an error (spec §7 "callers generally translate NotFound into a
// no-op"). Relationships referencing a deleted entity are left in place;
// graph traversals skip the now-dangling endpoint at read time.
func (e *Engine) Delete(ctx context.Context, id uuid.UUID) error {
	unlock, err := e.lockWrite(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	prior, err := e.fetchFull(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}

	t := txn.Begin(e.state())
	_ = t.Enqueue(txn.DeleteEntity(ctx, id, prior))
	_ = t.Enqueue(txn.UpdateMetadataIndex(false, id, prior.Type, prior.Metadata))
	_ = t.Enqueue(txn.UpdateHNSW(false, id, prior.Vector))
	if _, err := t.Commit(); err != nil {
		return err
	}

	e.entities.Invalidate(id)
	e.writeBuf.Flush()
	_, err = e.branches.Commit(ctx, "delete", nil, nil, []uuid.UUID{id})
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, errs.NotFound)
}

// RelateSpec describes a relate() call's optional fields (spec §6
// relate(from, to, type, {weight?, metadata?, bidirectional?})).
type RelateSpec struct {
	Weight        *float64
	Metadata      types.Metadata
	Bidirectional bool
	Unchecked     bool // skip referential validation of from/to (spec §4.10 write-only/unchecked mode)
}

// Relate creates a directed relationship and returns its id.
func (e *Engine) Relate(ctx context.Context, from, to uuid.UUID, verb types.VerbType, spec RelateSpec) (uuid.UUID, error) {
	r := &types.Relationship{ID: uuid.New(), Source: from, Target: to, Type: verb, Weight: spec.Weight, Metadata: spec.Metadata, CreatedAt: time.Now()}
	if err := types.ValidateNewRelationship(r, e.taxonomy); err != nil {
		return uuid.Nil, err
	}

	unlock, err := e.lockWrite(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer unlock()

	if !spec.Unchecked {
		if _, err := e.fetchFull(ctx, from); err != nil {
			return uuid.Nil, err
		}
		if _, err := e.fetchFull(ctx, to); err != nil {
			return uuid.Nil, err
		}
	}

	t := txn.Begin(e.state())
	_ = t.Enqueue(txn.PutRelationship(ctx, r, nil))
	_ = t.Enqueue(txn.UpdateGraphIndex(true, from, to, verb))
	if spec.Bidirectional {
		_ = t.Enqueue(txn.UpdateGraphIndex(true, to, from, verb))
	}
	if _, err := t.Commit(); err != nil {
		return uuid.Nil, err
	}

	e.relMu.Lock()
	e.rels[pairKey{from, to}] = append(e.rels[pairKey{from, to}], relEdge{verb, r.ID})
	if spec.Bidirectional {
		e.rels[pairKey{to, from}] = append(e.rels[pairKey{to, from}], relEdge{verb, r.ID})
	}
	e.relMu.Unlock()

	_, err = e.branches.Commit(ctx, "relate", nil, []uuid.UUID{r.ID}, nil)
	return r.ID, err
}

// Unrelate removes a relationship by id. Idempotent. Both adjacency
// directions are cleared unconditionally: RemoveEdge is a no-op on an
// absent edge, so this is safe whether or not the relationship was
// created bidirectional.
func (e *Engine) Unrelate(ctx context.Context, id uuid.UUID) error {
	unlock, err := e.lockWrite(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	r, err := e.store.GetRelationship(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}

	t := txn.Begin(e.state())
	_ = t.Enqueue(txn.DeleteRelationship(ctx, id, r))
	_ = t.Enqueue(txn.UpdateGraphIndex(false, r.Source, r.Target, r.Type))
	_ = t.Enqueue(txn.UpdateGraphIndex(false, r.Target, r.Source, r.Type))
	if _, err := t.Commit(); err != nil {
		return err
	}

	e.relMu.Lock()
	e.removeRelEdge(pairKey{r.Source, r.Target}, id)
	e.removeRelEdge(pairKey{r.Target, r.Source}, id)
	e.relMu.Unlock()

	_, err = e.branches.Commit(ctx, "unrelate", nil, nil, []uuid.UUID{id})
	return err
}

// removeRelEdge drops id from key's bucket. Caller holds relMu.
func (e *Engine) removeRelEdge(key pairKey, id uuid.UUID) {
	edges := e.rels[key]
	for i, re := range edges {
		if re.id == id {
			e.rels[key] = append(edges[:i], edges[i+1:]...)
			return
		}
	}
}

// RelationsQuery filters a getRelations() call (spec §6 getRelations({from?,
// to?, type?, limit?, offset?})). Exactly one of From/To should be set;
// if both are, From wins.
type RelationsQuery struct {
	From, To *uuid.UUID
	Type     types.VerbType
	Limit    int
	Offset   int
}

// GetRelations lists relationships touching From (outgoing) or To
// (incoming), optionally narrowed to Type.
func (e *Engine) GetRelations(ctx context.Context, q RelationsQuery) ([]*types.Relationship, error) {
	var anchor uuid.UUID
	dir := graphindex.DirectionOut
	switch {
	case q.From != nil:
		anchor = *q.From
	case q.To != nil:
		anchor = *q.To
		dir = graphindex.DirectionIn
	default:
		return nil, errs.Validationf("from", "getRelations requires From or To")
	}

	neighbors := e.graph.Neighbors(anchor, graphindex.NeighborOptions{Direction: dir, VerbType: q.Type})

	e.relMu.RLock()
	out := make([]*types.Relationship, 0, len(neighbors))
	for _, n := range neighbors {
		var key pairKey
		if q.From != nil {
			key = pairKey{anchor, n}
		} else {
			key = pairKey{n, anchor}
		}
		for _, re := range e.rels[key] {
			if q.Type != "" && re.verb != q.Type {
				continue
			}
			if r, err := e.store.GetRelationship(ctx, re.id); err == nil {
				if _, err := e.Get(ctx, n, false); isNotFound(err) {
					continue // dangling endpoint: the entity was deleted
				}
				out = append(out, r)
			}
		}
	}
	e.relMu.RUnlock()

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []*types.Relationship{}, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}
