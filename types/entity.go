// Package types defines the brainy data model: entities (nouns),
// relationships (verbs), branches, and commits, per spec.md §3.
package types

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/brainydb/brainy/errs"
)

// ReservedMetadataKeys are maintained by the engine and must never be
// supplied directly by a caller (spec §3).
var ReservedMetadataKeys = map[string]struct{}{
	"noun":      {},
	"createdAt": {},
	"updatedAt": {},
	"service":   {},
}

// Metadata is a bag of primitive | []primitive values. Accepted Go types:
// string, int64, float64, bool, time.Time, and slices thereof.
type Metadata map[string]interface{}

// Entity is a noun: a vector + metadata + type record (spec §3).
type Entity struct {
	ID        uuid.UUID
	Vector    []float32
	Type      NounType
	Metadata  Metadata
	Service   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep-enough copy safe to hand to a COW update path: the
// vector and metadata map are copied, not aliased (spec §3 "update...
// producing a new COW copy").
func (e *Entity) Clone() *Entity {
	cp := *e
	cp.Vector = append([]float32(nil), e.Vector...)
	cp.Metadata = make(Metadata, len(e.Metadata))
	for k, v := range e.Metadata {
		cp.Metadata[k] = v
	}
	return &cp
}

// ValidateNewEntity checks an entity submitted via add() against the
// database's fixed dimension and taxonomy, before any engine-maintained
// fields are attached. Reserved keys in the caller-supplied metadata are
// rejected.
func ValidateNewEntity(e *Entity, dimension int, tax *Taxonomy) error {
	if len(e.Vector) != dimension {
		return errs.Validationf("vector", "expected dimension %d, got %d", dimension, len(e.Vector))
	}
	for _, f := range e.Vector {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return errs.Validationf("vector", "vector must be finite, found NaN/Inf")
		}
	}
	if !tax.KnowsNoun(e.Type) {
		return errs.Validationf("type", "unknown noun type %q", e.Type)
	}
	for k := range e.Metadata {
		if _, reserved := ReservedMetadataKeys[k]; reserved {
			return errs.Validationf("metadata."+k, "key %q is reserved and maintained by the engine", k)
		}
	}
	return nil
}

// Relationship is a verb: a typed directed edge between two entities (spec §3).
type Relationship struct {
	ID        uuid.UUID
	Source    uuid.UUID
	Target    uuid.UUID
	Type      VerbType
	Weight    *float64
	Metadata  Metadata
	CreatedAt time.Time
}

// ValidateNewRelationship checks a relationship submitted via relate()
// (invariants: no self-loops, weight in [0,1], known verb type).
func ValidateNewRelationship(r *Relationship, tax *Taxonomy) error {
	if r.Source == r.Target {
		return errs.Validationf("target", "self-loop relationships are forbidden (source == target == %s)", r.Source)
	}
	if !tax.KnowsVerb(r.Type) {
		return errs.Validationf("type", "unknown verb type %q", r.Type)
	}
	if r.Weight != nil && (*r.Weight < 0 || *r.Weight > 1) {
		return errs.Validationf("weight", "weight must be within [0,1], got %f", *r.Weight)
	}
	return nil
}
