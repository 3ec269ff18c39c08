package metaindex

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/brainydb/brainy/types"
)

func TestExactIndex_EqualsAndNotEquals(t *testing.T) {
	ix := NewExactIndex()
	a, b := uuid.New(), uuid.New()
	ix.Put("status", "active", a)
	ix.Put("status", "inactive", b)

	assert.True(t, ix.Equals("status", "active").Has(a))
	assert.False(t, ix.Equals("status", "active").Has(b))
	assert.True(t, ix.NotEquals("status", "active").Has(b))
}

func TestExactIndex_InAndExists(t *testing.T) {
	ix := NewExactIndex()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	ix.Put("tier", "gold", a)
	ix.Put("tier", "silver", b)
	ix.Put("tier", "bronze", c)

	matches := ix.In("tier", []interface{}{"gold", "bronze"})
	assert.True(t, matches.Has(a))
	assert.True(t, matches.Has(c))
	assert.False(t, matches.Has(b))

	assert.True(t, ix.Exists("tier").Has(a))
}

func TestExactIndex_RemoveClearsMembership(t *testing.T) {
	ix := NewExactIndex()
	id := uuid.New()
	ix.Put("status", "active", id)
	ix.Remove("status", "active", id)
	assert.False(t, ix.Equals("status", "active").Has(id))
	assert.False(t, ix.Exists("status").Has(id))
}

func TestRangeIndex_GTLTBetween(t *testing.T) {
	r := NewRangeIndex()
	ids := make([]uuid.UUID, 5)
	for i := 0; i < 5; i++ {
		ids[i] = uuid.New()
		r.Put(Float64Key(i*10), ids[i])
	}

	assert.Equal(t, 2, len(r.GT(Float64Key(20)))) // 30, 40
	assert.Equal(t, 3, len(r.GTE(Float64Key(20)))) // 20,30,40
	assert.Equal(t, 2, len(r.LT(Float64Key(20))))  // 0,10
	assert.Equal(t, 3, len(r.LTE(Float64Key(20))))
	assert.Equal(t, 3, len(r.Between(Float64Key(10), Float64Key(30))))
}

func TestRangeIndex_RemoveShrinksResult(t *testing.T) {
	r := NewRangeIndex()
	id := uuid.New()
	r.Put(Float64Key(5), id)
	assert.Equal(t, 1, len(r.GTE(Float64Key(0))))
	r.Remove(Float64Key(5), id)
	assert.Equal(t, 0, len(r.GTE(Float64Key(0))))
}

func TestWordIndex_ContainsStartsEndsWith(t *testing.T) {
	w := NewWordIndex(NewArena())
	a, b := uuid.New(), uuid.New()
	w.Index(a, "The Quick Brown Fox")
	w.Index(b, "Quickening pace")

	assert.True(t, w.Contains("quick").Has(a))
	assert.False(t, w.Contains("quick").Has(b))

	starts := w.StartsWith("quick")
	assert.True(t, starts.Has(a))
	assert.True(t, starts.Has(b))

	ends := w.EndsWith("ing")
	assert.True(t, ends.Has(b))
	assert.False(t, ends.Has(a))
}

func TestWordIndex_UnindexRemovesFromAllWords(t *testing.T) {
	w := NewWordIndex(NewArena())
	id := uuid.New()
	w.Index(id, "alpha beta")
	w.Unindex(id)
	assert.False(t, w.Contains("alpha").Has(id))
	assert.False(t, w.Contains("beta").Has(id))
}

func TestWordIndex_TokenOverlapScore(t *testing.T) {
	w := NewWordIndex(NewArena())
	id := uuid.New()
	w.Index(id, "graph database engine")

	score := w.TokenOverlapScore(id, []string{"graph", "engine", "missing"})
	assert.InDelta(t, 2.0/3.0, score, 1e-9)
}

func TestIndex_EvalAllOfAnyOfNot(t *testing.T) {
	ix := New()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	ix.IndexEntity(a, types.NounPerson, types.Metadata{"status": "active", "age": float64(30)})
	ix.IndexEntity(b, types.NounPerson, types.Metadata{"status": "active", "age": float64(50)})
	ix.IndexEntity(c, types.NounPerson, types.Metadata{"status": "inactive", "age": float64(20)})

	allOf := &Filter{AllOf: []*Filter{
		{Field: "status", Op: OpEquals, Value: "active"},
		{Field: "age", Op: OpGT, Value: float64(25)},
	}}
	result := ix.Eval(allOf)
	assert.True(t, result.Has(a))
	assert.True(t, result.Has(b))
	assert.False(t, result.Has(c))

	anyOf := &Filter{AnyOf: []*Filter{
		{Field: "status", Op: OpEquals, Value: "inactive"},
		{Field: "age", Op: OpGTE, Value: float64(50)},
	}}
	result2 := ix.Eval(anyOf)
	assert.True(t, result2.Has(b))
	assert.True(t, result2.Has(c))
	assert.False(t, result2.Has(a))

	notFilter := &Filter{Not: &Filter{Field: "status", Op: OpEquals, Value: "active"}}
	result3 := ix.Eval(notFilter)
	assert.True(t, result3.Has(c))
	assert.False(t, result3.Has(a))
}

func TestIndex_UnindexEntity_RemovesFromEval(t *testing.T) {
	ix := New()
	id := uuid.New()
	ix.IndexEntity(id, types.NounDocument, types.Metadata{"status": "active"})
	ix.UnindexEntity(id, types.NounDocument, types.Metadata{"status": "active"})

	result := ix.Eval(&Filter{Field: "status", Op: OpEquals, Value: "active"})
	assert.False(t, result.Has(id))
	assert.False(t, ix.AllIDs().Has(id))
}

func TestIndex_EstimatedCardinality_OrdersCheapestFirst(t *testing.T) {
	ix := New()
	for i := 0; i < 10; i++ {
		ix.IndexEntity(uuid.New(), types.NounPerson, types.Metadata{"status": "active"})
	}
	rare := uuid.New()
	ix.IndexEntity(rare, types.NounPerson, types.Metadata{"status": "active", "vip": true})

	cheap := ix.EstimatedCardinality(&Filter{Field: "vip", Op: OpEquals, Value: true})
	expensive := ix.EstimatedCardinality(&Filter{Field: "status", Op: OpEquals, Value: "active"})
	assert.Less(t, cheap, expensive)
}

func TestIDSet_UnionIntersectSubtract(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	s1 := NewIDSet(a, b)
	s2 := NewIDSet(b, c)

	assert.Len(t, Union(s1, s2), 3)
	assert.Len(t, Intersect(s1, s2), 1)
	assert.True(t, Intersect(s1, s2).Has(b))
	assert.Len(t, Subtract(s1, s2), 1)
	assert.True(t, Subtract(s1, s2).Has(a))
}
