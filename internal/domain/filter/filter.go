// Package filter defines structured payload filters evaluated by the store.
// Conditions are conjunctive: a record matches when every condition holds.
package filter

import "fmt"

// Condition is a single payload predicate: exact match on a tag field
// or a numeric range.
type Condition struct {
	key   string
	match string
	isTag bool
	rng   *Range
}

// Range bounds a numeric payload field. Nil bounds are open.
type Range struct {
	GTE *float64
	LTE *float64
}

// Match creates an equality condition on a tag field.
func Match(key, value string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{key: key, match: value, isTag: true}, nil
}

// NumRange creates a numeric range condition.
func NumRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if r.GTE == nil && r.LTE == nil {
		return Condition{}, fmt.Errorf("range for %q needs at least one bound", key)
	}
	return Condition{key: key, rng: &r}, nil
}

// Key returns the payload field name.
func (c Condition) Key() string { return c.key }

// IsMatch reports whether this is an equality condition.
func (c Condition) IsMatch() bool { return c.isTag }

// MatchValue returns the equality value.
func (c Condition) MatchValue() string { return c.match }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rng != nil }

// RangeValue returns the range bounds.
func (c Condition) RangeValue() *Range { return c.rng }

// Expression is a conjunction of conditions.
type Expression struct {
	must []Condition
}

// New creates an Expression from conditions.
func New(conds ...Condition) Expression {
	return Expression{must: conds}
}

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.must) == 0 }

// Conditions returns all conditions.
func (e Expression) Conditions() []Condition { return e.must }

// And returns a copy with an extra condition appended.
func (e Expression) And(c Condition) Expression {
	out := make([]Condition, 0, len(e.must)+1)
	out = append(out, e.must...)
	out = append(out, c)
	return Expression{must: out}
}
