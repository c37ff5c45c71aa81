// Package filter is the closed set of predicates applications build against a schema.
//
// Filters are values: constructors validate their arguments, and every
// transformation (WithScope, Clone, normalization) returns a new filter.
package filter

import (
	"github.com/DjordjeVuckovic/facetq/internal/scope"
)

type Kind int

const (
	KindAnd Kind = iota + 1
	KindOr
	KindNot
	KindTerm
	KindPrefix
	KindTerms
	KindEquals
	KindBefore
	KindAfter
	KindBetweenDates
	KindGreaterThan
	KindLowerThan
	KindBetweenNumeric
	KindWithinBBox
	KindWithinCircle
	KindNotEmpty
	KindChildrenDocument
)

var kindNames = map[Kind]string{
	KindAnd:              "and",
	KindOr:               "or",
	KindNot:              "not",
	KindTerm:             "term",
	KindPrefix:           "prefix",
	KindTerms:            "terms",
	KindEquals:           "equals",
	KindBefore:           "before",
	KindAfter:            "after",
	KindBetweenDates:     "between_dates",
	KindGreaterThan:      "greater_than",
	KindLowerThan:        "lower_than",
	KindBetweenNumeric:   "between_numeric",
	KindWithinBBox:       "within_bbox",
	KindWithinCircle:     "within_circle",
	KindNotEmpty:         "not_empty",
	KindChildrenDocument: "children_document",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsStructural reports whether filters of this kind combine other filters.
func (k Kind) IsStructural() bool {
	return k == KindAnd || k == KindOr || k == KindNot
}

// Filter is implemented only by the types in this package.
type Filter interface {
	Kind() Kind
	// Scope is the explicit scope, scope.None when it is derived from the field.
	Scope() scope.Scope
	// WithScope returns a copy carrying s. On And/Or/Not the scope is pushed
	// down onto children that have no explicit scope of their own.
	WithScope(s scope.Scope) Filter
	// Clone returns a deep copy, equal by value and independent by identity.
	Clone() Filter
	// Key is a canonical encoding: two filters are equal iff their keys are.
	Key() string
	String() string

	isFilter()
}

// Leaf is a predicate on a single field.
type Leaf interface {
	Filter
	FieldName() string
}

type scoped struct {
	scope scope.Scope
}

func (s scoped) Scope() scope.Scope { return s.scope }

func (scoped) isFilter() {}

func (s scoped) scopeKey() string {
	if s.scope == scope.None {
		return ""
	}
	return "@" + s.scope.String()
}

// Equal compares filters structurally. And/Or children compare as sets.
func Equal(a, b Filter) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key() == b.Key()
}

// Must panics if err is non-nil; meant for statically known filter trees.
func Must(f Filter, err error) Filter {
	if err != nil {
		panic(err)
	}
	return f
}

// Walk visits f and its descendants depth-first until fn returns false.
func Walk(f Filter, fn func(Filter) bool) {
	if f == nil || !fn(f) {
		return
	}
	switch n := f.(type) {
	case And:
		for _, c := range n.children {
			Walk(c, fn)
		}
	case Or:
		for _, c := range n.children {
			Walk(c, fn)
		}
	case Not:
		Walk(n.inner, fn)
	}
}

// Fields returns the distinct field names referenced by f in first-seen order.
func Fields(f Filter) []string {
	var out []string
	seen := map[string]bool{}
	Walk(f, func(n Filter) bool {
		if l, ok := n.(Leaf); ok && !seen[l.FieldName()] {
			seen[l.FieldName()] = true
			out = append(out, l.FieldName())
		}
		return true
	})
	return out
}
