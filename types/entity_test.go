package types

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateNewEntity_DimensionMismatch(t *testing.T) {
	tax := NewTaxonomy(nil, nil)
	e := &Entity{ID: uuid.New(), Type: NounPerson, Vector: []float32{1, 2, 3}}
	err := ValidateNewEntity(e, 4, tax)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

func TestValidateNewEntity_RejectsNonFiniteVector(t *testing.T) {
	tax := NewTaxonomy(nil, nil)
	e := &Entity{ID: uuid.New(), Type: NounPerson, Vector: []float32{1, float32(math.NaN()), 3}}
	err := ValidateNewEntity(e, 3, tax)
	require.Error(t, err)
}

func TestValidateNewEntity_RejectsUnknownNoun(t *testing.T) {
	tax := NewTaxonomy(nil, nil)
	e := &Entity{ID: uuid.New(), Type: NounType("Spaceship"), Vector: []float32{1, 2, 3}}
	err := ValidateNewEntity(e, 3, tax)
	require.Error(t, err)
}

func TestValidateNewEntity_RejectsReservedMetadataKey(t *testing.T) {
	tax := NewTaxonomy(nil, nil)
	e := &Entity{
		ID:       uuid.New(),
		Type:     NounPerson,
		Vector:   []float32{1, 2, 3},
		Metadata: Metadata{"createdAt": "2020-01-01"},
	}
	err := ValidateNewEntity(e, 3, tax)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved")
}

func TestValidateNewEntity_Valid(t *testing.T) {
	tax := NewTaxonomy(nil, nil)
	e := &Entity{ID: uuid.New(), Type: NounPerson, Vector: []float32{1, 2, 3}, Metadata: Metadata{"name": "Ada"}}
	assert.NoError(t, ValidateNewEntity(e, 3, tax))
}

func TestEntity_Clone_DeepCopiesVectorAndMetadata(t *testing.T) {
	e := &Entity{ID: uuid.New(), Vector: []float32{1, 2}, Metadata: Metadata{"k": "v"}}
	clone := e.Clone()
	clone.Vector[0] = 99
	clone.Metadata["k"] = "changed"
	assert.Equal(t, float32(1), e.Vector[0])
	assert.Equal(t, "v", e.Metadata["k"])
}

func TestValidateNewRelationship_RejectsSelfLoop(t *testing.T) {
	tax := NewTaxonomy(nil, nil)
	id := uuid.New()
	r := &Relationship{ID: uuid.New(), Source: id, Target: id, Type: VerbWorksFor}
	err := ValidateNewRelationship(r, tax)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "self-loop")
}

func TestValidateNewRelationship_RejectsUnknownVerb(t *testing.T) {
	tax := NewTaxonomy(nil, nil)
	r := &Relationship{ID: uuid.New(), Source: uuid.New(), Target: uuid.New(), Type: VerbType("Teleports")}
	require.Error(t, ValidateNewRelationship(r, tax))
}

func TestValidateNewRelationship_RejectsOutOfRangeWeight(t *testing.T) {
	tax := NewTaxonomy(nil, nil)
	bad := 1.5
	r := &Relationship{ID: uuid.New(), Source: uuid.New(), Target: uuid.New(), Type: VerbWorksFor, Weight: &bad}
	require.Error(t, ValidateNewRelationship(r, tax))
}

func TestValidateNewRelationship_Valid(t *testing.T) {
	tax := NewTaxonomy(nil, nil)
	w := 0.5
	r := &Relationship{ID: uuid.New(), Source: uuid.New(), Target: uuid.New(), Type: VerbWorksFor, Weight: &w}
	assert.NoError(t, ValidateNewRelationship(r, tax))
}
