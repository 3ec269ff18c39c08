package metaindex

// Op names a leaf filter operator (spec §4.5/§6).
type Op string

const (
	OpEquals     Op = "equals"
	OpNotEquals  Op = "notEquals"
	OpIn         Op = "in"
	OpExists     Op = "exists"
	OpGT         Op = "gt"
	OpGTE        Op = "gte"
	OpLT         Op = "lt"
	OpLTE        Op = "lte"
	OpBetween    Op = "between"
	OpContains   Op = "contains"
	OpStartsWith Op = "startsWith"
	OpEndsWith   Op = "endsWith"
)

// Filter is a node in the query filter tree: either a boolean combinator
// (AllOf/AnyOf/Not) or a leaf operator against a single field.
type Filter struct {
	AllOf []*Filter
	AnyOf []*Filter
	Not   *Filter

	Field string
	Op    Op
	Value interface{}   // for Equals/NotEquals/GT/GTE/LT/LTE/Contains/StartsWith/EndsWith
	Lo    Ordered        // for Between
	Hi    Ordered        // for Between
	Values []interface{} // for In
}

// IsLeaf reports whether this node carries an Op rather than a combinator.
func (f *Filter) IsLeaf() bool { return f.Op != "" }

// EstimatedCardinality returns the index's best estimate of how many ids
// match this leaf, used by the planner to order AllOf children
// cheapest-first (spec §4.5 "Planner orders AND children by estimated
// cardinality (lowest first)").
func (ix *Index) EstimatedCardinality(f *Filter) int {
	switch f.Op {
	case OpEquals:
		return ix.Exact.Cardinality(f.Field, f.Value)
	case OpExists:
		return len(ix.Exact.Exists(f.Field))
	default:
		// Sub-indexes other than exact-equality don't maintain a direct
		// count; fall back to the field's total population, which still
		// orders "this field barely populated" ahead of "this field on
		// every entity".
		return len(ix.Exact.Exists(f.Field))
	}
}

// Eval evaluates the filter tree against this index's sub-indexes,
// returning the matching id set (spec §4.5 query()).
func (ix *Index) Eval(f *Filter) IDSet {
	if f == nil {
		return NewIDSet()
	}
	switch {
	case len(f.AllOf) > 0:
		return ix.evalAllOf(f.AllOf)
	case len(f.AnyOf) > 0:
		sets := make([]IDSet, len(f.AnyOf))
		for i, child := range f.AnyOf {
			sets[i] = ix.Eval(child)
		}
		return Union(sets...)
	case f.Not != nil:
		return Subtract(ix.AllIDs(), ix.Eval(f.Not))
	default:
		return ix.evalLeaf(f)
	}
}

// evalAllOf orders children by estimated cardinality (cheapest first) and
// intersects short-circuiting: once the running set is empty, the
// remaining children are not evaluated.
func (ix *Index) evalAllOf(children []*Filter) IDSet {
	ordered := make([]*Filter, len(children))
	copy(ordered, children)
	cost := make(map[*Filter]int, len(ordered))
	for _, c := range ordered {
		if c.IsLeaf() {
			cost[c] = ix.EstimatedCardinality(c)
		} else {
			cost[c] = len(ix.AllIDs())
		}
	}
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && cost[ordered[j]] < cost[ordered[j-1]]; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	var result IDSet
	for _, c := range ordered {
		if result != nil && len(result) == 0 {
			break
		}
		next := ix.Eval(c)
		if result == nil {
			result = next
		} else {
			result = Intersect(result, next)
		}
	}
	if result == nil {
		return NewIDSet()
	}
	return result
}

func (ix *Index) evalLeaf(f *Filter) IDSet {
	switch f.Op {
	case OpEquals:
		return ix.Exact.Equals(f.Field, f.Value)
	case OpNotEquals:
		return ix.Exact.NotEquals(f.Field, f.Value)
	case OpIn:
		return ix.Exact.In(f.Field, f.Values)
	case OpExists:
		return ix.Exact.Exists(f.Field)
	case OpGT:
		return ix.rangeFor(f.Field).GT(toOrdered(f.Value))
	case OpGTE:
		return ix.rangeFor(f.Field).GTE(toOrdered(f.Value))
	case OpLT:
		return ix.rangeFor(f.Field).LT(toOrdered(f.Value))
	case OpLTE:
		return ix.rangeFor(f.Field).LTE(toOrdered(f.Value))
	case OpBetween:
		return ix.rangeFor(f.Field).Between(f.Lo, f.Hi)
	case OpContains:
		return ix.Word.Contains(f.Value.(string))
	case OpStartsWith:
		return ix.Word.StartsWith(f.Value.(string))
	case OpEndsWith:
		return ix.Word.EndsWith(f.Value.(string))
	default:
		return NewIDSet()
	}
}

func toOrdered(v interface{}) Ordered {
	switch t := v.(type) {
	case Ordered:
		return t
	case float64:
		return Float64Key(t)
	case int64:
		return Float64Key(float64(t))
	case int:
		return Float64Key(float64(t))
	case string:
		return StringKey(t)
	default:
		return StringKey("")
	}
}
