// Package filter defines structured metadata pre-filters for search.
package filter

import (
	"fmt"
	"sort"
)

// MaxConditions is the maximum number of conditions per group.
const MaxConditions = 32

// Expression is a structured filter with must / must-not semantics.
// Empty expression matches everything.
type Expression struct {
	must    []Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, mustNot []Condition) (Expression, error) {
	if len(must) > MaxConditions {
		return Expression{}, fmt.Errorf("too many must conditions (max %d)", MaxConditions)
	}
	if len(mustNot) > MaxConditions {
		return Expression{}, fmt.Errorf("too many must_not conditions (max %d)", MaxConditions)
	}
	return Expression{must: must, mustNot: mustNot}, nil
}

// FromTags builds a must-only expression of exact tag matches.
// Keys are sorted so the resulting query string is deterministic.
func FromTags(tags map[string]string) Expression {
	if len(tags) == 0 {
		return Expression{}
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	must := make([]Condition, 0, len(keys))
	for _, k := range keys {
		if tags[k] == "" {
			continue
		}
		must = append(must, Condition{key: k, match: tags[k]})
	}
	return Expression{must: must}
}

// WithMatch returns a copy of the expression with an extra must tag match.
func (e Expression) WithMatch(key, value string) Expression {
	if key == "" || value == "" {
		return e
	}
	must := make([]Condition, len(e.must), len(e.must)+1)
	copy(must, e.must)
	return Expression{must: append(must, Condition{key: key, match: value}), mustNot: e.mustNot}
}

// WithRange returns a copy of the expression with an extra must numeric range.
func (e Expression) WithRange(key string, r Range) Expression {
	must := make([]Condition, len(e.must), len(e.must)+1)
	copy(must, e.must)
	return Expression{must: append(must, Condition{key: key, rangeExpr: &r}), mustNot: e.mustNot}
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.mustNot) == 0
}

// Condition is a single filter clause: either a tag match or a numeric range.
type Condition struct {
	key       string
	match     string
	rangeExpr *Range
}

// NewMatch creates an exact tag match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{key: key, rangeExpr: &r}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// IsMatch reports whether this is a match condition.
func (c Condition) IsMatch() bool { return c.match != "" }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rangeExpr != nil }

// Range is a numeric range with optional inclusive bounds.
type Range struct {
	gte *float64
	lte *float64
	lt  *float64
}

// Before returns a range matching values strictly below v.
func Before(v float64) Range { return Range{lt: &v} }

// AtLeast returns a range matching values >= v.
func AtLeast(v float64) Range { return Range{gte: &v} }

// Between returns an inclusive range [lo, hi].
func Between(lo, hi float64) Range { return Range{gte: &lo, lte: &hi} }

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }

// LT returns the upper exclusive bound.
func (r Range) LT() *float64 { return r.lt }
