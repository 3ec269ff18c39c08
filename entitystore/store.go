package entitystore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/brainydb/brainy/errs"
	"github.com/brainydb/brainy/shard"
	"github.com/brainydb/brainy/storage"
	"github.com/brainydb/brainy/types"
)

// metadataRecord is the self-describing JSON record stored at
// .../metadata.json, carrying the reserved engine-maintained fields
// alongside the caller's metadata bag (spec §4.3 "self-describing
// structured records").
type metadataRecord struct {
	ID        uuid.UUID       `json:"id"`
	Noun      types.NounType  `json:"noun,omitempty"`
	Verb      types.VerbType  `json:"verb,omitempty"`
	Source    *uuid.UUID      `json:"source,omitempty"`
	Target    *uuid.UUID      `json:"target,omitempty"`
	Weight    *float64        `json:"weight,omitempty"`
	Service   string          `json:"service,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt,omitempty"`
	Metadata  types.Metadata  `json:"metadata,omitempty"`
}

// Store persists entities and relationships through a storage.Adapter at
// the canonical shard paths (spec §4.2/§4.3). It holds no indexes itself;
// those are maintained separately, and nothing rebuilds them from this
// store.
type Store struct {
	adapter storage.Adapter
}

func New(adapter storage.Adapter) *Store {
	return &Store{adapter: adapter}
}

// PutEntity writes an entity's metadata and vector blobs as two separate
// adapter.Write calls. It is not atomic across the two writes; callers that
// need all-or-nothing semantics for a single logical change (the txn
// package) use PutEntityMetadata and PutVector directly as two
// independently undoable ops instead. PutEntity remains a convenience for
// whole-entity writes outside the transaction machinery (e.g. test seeding).
func (s *Store) PutEntity(ctx context.Context, e *types.Entity) error {
	if err := s.PutEntityMetadata(ctx, e); err != nil {
		return err
	}
	return s.PutVector(ctx, e.ID, e.Vector)
}

// PutEntityMetadata writes only an entity's metadata blob, a single
// adapter.Write call.
func (s *Store) PutEntityMetadata(ctx context.Context, e *types.Entity) error {
	rec := metadataRecord{
		ID:        e.ID,
		Noun:      e.Type,
		Service:   e.Service,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
		Metadata:  e.Metadata,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errs.Integrityf(err, "marshal entity metadata %s", e.ID)
	}
	return s.adapter.Write(ctx, shard.MetadataPath(shard.KindNoun, e.ID), data)
}

// PutVector writes only an entity's vector blob, a single adapter.Write
// call, independent of its metadata.
func (s *Store) PutVector(ctx context.Context, id uuid.UUID, vector []float32) error {
	return s.adapter.Write(ctx, shard.VectorPath(id), EncodeVector(vector))
}

// DeleteEntityMetadata removes only an entity's metadata blob. Idempotent.
func (s *Store) DeleteEntityMetadata(ctx context.Context, id uuid.UUID) error {
	return s.adapter.Delete(ctx, shard.MetadataPath(shard.KindNoun, id))
}

// DeleteVector removes only an entity's vector blob. Idempotent.
func (s *Store) DeleteVector(ctx context.Context, id uuid.UUID) error {
	return s.adapter.Delete(ctx, shard.VectorPath(id))
}

// GetEntity reads an entity's metadata and vector blobs back into a
// types.Entity. Returns an errs.NotFound-kind error if either blob is
// absent (a tombstoned or never-written id).
func (s *Store) GetEntity(ctx context.Context, id uuid.UUID) (*types.Entity, error) {
	metaBlob, err := s.adapter.Read(ctx, shard.MetadataPath(shard.KindNoun, id))
	if err != nil {
		return nil, err
	}
	var rec metadataRecord
	if err := json.Unmarshal(metaBlob, &rec); err != nil {
		return nil, errs.Integrityf(err, "unmarshal entity metadata %s", id)
	}
	vecBlob, err := s.adapter.Read(ctx, shard.VectorPath(id))
	if err != nil {
		return nil, err
	}
	vec, err := DecodeVector(vecBlob)
	if err != nil {
		return nil, err
	}
	return &types.Entity{
		ID:        rec.ID,
		Vector:    vec,
		Type:      rec.Noun,
		Metadata:  rec.Metadata,
		Service:   rec.Service,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// GetEntityMetadataBatch reads only the metadata blobs for ids, skipping
// vector I/O entirely (spec §4.2 "metadata-only queries never pay the
// vector I/O cost").
func (s *Store) GetEntityMetadataBatch(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*types.Entity, error) {
	paths := make([]string, len(ids))
	byPath := make(map[string]uuid.UUID, len(ids))
	for i, id := range ids {
		p := shard.MetadataPath(shard.KindNoun, id)
		paths[i] = p
		byPath[p] = id
	}
	blobs, err := s.adapter.ReadBatch(ctx, paths)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*types.Entity, len(blobs))
	for p, blob := range blobs {
		var rec metadataRecord
		if err := json.Unmarshal(blob, &rec); err != nil {
			return nil, errs.Integrityf(err, "unmarshal entity metadata for %s", byPath[p])
		}
		out[byPath[p]] = &types.Entity{
			ID:        rec.ID,
			Type:      rec.Noun,
			Metadata:  rec.Metadata,
			Service:   rec.Service,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		}
	}
	return out, nil
}

// DeleteEntity removes both blobs for id. Idempotent.
func (s *Store) DeleteEntity(ctx context.Context, id uuid.UUID) error {
	if err := s.DeleteEntityMetadata(ctx, id); err != nil {
		return err
	}
	return s.DeleteVector(ctx, id)
}

// PutRelationship writes a relationship's metadata blob (relationships
// carry no vector).
func (s *Store) PutRelationship(ctx context.Context, r *types.Relationship) error {
	src, tgt := r.Source, r.Target
	rec := metadataRecord{
		ID:        r.ID,
		Verb:      r.Type,
		Source:    &src,
		Target:    &tgt,
		Weight:    r.Weight,
		CreatedAt: r.CreatedAt,
		Metadata:  r.Metadata,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errs.Integrityf(err, "marshal relationship metadata %s", r.ID)
	}
	return s.adapter.Write(ctx, shard.MetadataPath(shard.KindVerb, r.ID), data)
}

// GetRelationship reads a single relationship back by id.
func (s *Store) GetRelationship(ctx context.Context, id uuid.UUID) (*types.Relationship, error) {
	blob, err := s.adapter.Read(ctx, shard.MetadataPath(shard.KindVerb, id))
	if err != nil {
		return nil, err
	}
	var rec metadataRecord
	if err := json.Unmarshal(blob, &rec); err != nil {
		return nil, errs.Integrityf(err, "unmarshal relationship metadata %s", id)
	}
	r := &types.Relationship{
		ID:        rec.ID,
		Type:      rec.Verb,
		Weight:    rec.Weight,
		Metadata:  rec.Metadata,
		CreatedAt: rec.CreatedAt,
	}
	if rec.Source != nil {
		r.Source = *rec.Source
	}
	if rec.Target != nil {
		r.Target = *rec.Target
	}
	return r, nil
}

// DeleteRelationship removes a relationship's metadata blob. Idempotent.
func (s *Store) DeleteRelationship(ctx context.Context, id uuid.UUID) error {
	return s.adapter.Delete(ctx, shard.MetadataPath(shard.KindVerb, id))
}
