// Package normalize rewrites filter trees into disjunctive normal form so that
// parent-side and child-side predicates can be separated before rendering a
// block-join query.
package normalize

import (
	"github.com/DjordjeVuckovic/facetq/internal/filter"
)

type normalizer struct {
	memo map[string]filter.Filter
}

// Normalize returns an equivalent filter in which negation only wraps leaves,
// no Or is nested in an And, and nested And/Or are flattened.
// The input is not modified.
func Normalize(f filter.Filter) filter.Filter {
	if f == nil {
		return nil
	}
	n := &normalizer{memo: make(map[string]filter.Filter)}
	return n.normalize(f)
}

func (n *normalizer) normalize(f filter.Filter) filter.Filter {
	key := f.Key()
	if out, ok := n.memo[key]; ok {
		return out
	}

	var out filter.Filter
	switch x := f.(type) {
	case filter.And:
		out = n.and(x.Children())
	case filter.Or:
		out = n.or(x.Children())
	case filter.Not:
		out = n.not(x)
	default:
		out = f
	}

	n.memo[key] = out
	return out
}

// and distributes the conjunction over its first Or child. Each product is
// normalized before the results are joined, which bounds the recursion.
func (n *normalizer) and(children []filter.Filter) filter.Filter {
	kids := make([]filter.Filter, len(children))
	for i, c := range children {
		kids[i] = n.normalize(c)
	}

	joined := mustAnd(kids...)
	flat, ok := joined.(filter.And)
	if !ok {
		// collapsed to a single, already normalized child
		return joined
	}

	conj := flat.Children()
	for i, c := range conj {
		or, ok := c.(filter.Or)
		if !ok {
			continue
		}

		others := make([]filter.Filter, 0, len(conj)-1)
		others = append(others, conj[:i]...)
		others = append(others, conj[i+1:]...)

		branches := or.Children()
		products := make([]filter.Filter, len(branches))
		for j, b := range branches {
			products[j] = n.normalize(mustAnd(append(append([]filter.Filter(nil), others...), b)...))
		}
		return mustOr(products...)
	}
	return flat
}

func (n *normalizer) or(children []filter.Filter) filter.Filter {
	kids := make([]filter.Filter, len(children))
	for i, c := range children {
		kids[i] = n.normalize(c)
	}
	return mustOr(kids...)
}

func (n *normalizer) not(x filter.Not) filter.Filter {
	if inner, ok := x.Inner().(filter.Not); ok {
		return n.normalize(inner.Inner())
	}

	switch inner := n.normalize(x.Inner()).(type) {
	case filter.Not:
		return inner.Inner()
	case filter.And:
		return n.normalize(mustOr(negateAll(inner.Children())...))
	case filter.Or:
		return n.normalize(mustAnd(negateAll(inner.Children())...))
	default:
		return mustNot(inner)
	}
}

func negateAll(fs []filter.Filter) []filter.Filter {
	out := make([]filter.Filter, len(fs))
	for i, f := range fs {
		out[i] = mustNot(f)
	}
	return out
}

// The constructors only fail on empty or nil input, which the normalizer never produces.
func mustAnd(fs ...filter.Filter) filter.Filter { return filter.Must(filter.NewAnd(fs...)) }
func mustOr(fs ...filter.Filter) filter.Filter  { return filter.Must(filter.NewOr(fs...)) }
func mustNot(f filter.Filter) filter.Filter     { return filter.Must(filter.NewNot(f)) }

// IsDNF reports whether f has the shape Normalize produces.
func IsDNF(f filter.Filter) bool {
	switch x := f.(type) {
	case filter.Or:
		for _, c := range x.Children() {
			if _, nested := c.(filter.Or); nested || !isConjunction(c) {
				return false
			}
		}
		return true
	default:
		return isConjunction(f)
	}
}

func isConjunction(f filter.Filter) bool {
	if a, ok := f.(filter.And); ok {
		for _, c := range a.Children() {
			if !isLiteral(c) {
				return false
			}
		}
		return true
	}
	return isLiteral(f)
}

func isLiteral(f filter.Filter) bool {
	if n, ok := f.(filter.Not); ok {
		f = n.Inner()
	}
	return !f.Kind().IsStructural()
}
