package filter

import (
	"sort"
	"strings"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/scope"
)

// And matches documents matching every child.
type And struct {
	scoped
	children []Filter
	key      string
}

// Or matches documents matching at least one child.
type Or struct {
	scoped
	children []Filter
	key      string
}

// Not matches documents the inner filter does not match.
type Not struct {
	scoped
	inner Filter
}

// NewAnd builds a conjunction. Nested conjunctions are absorbed and duplicates
// collapse, so NewAnd(NewAnd(x, y), z) equals NewAnd(x, y, z). A conjunction with a
// single distinct child is that child.
func NewAnd(children ...Filter) (Filter, error) {
	flat, err := flatten(KindAnd, children)
	if err != nil {
		return nil, err
	}
	if len(flat) == 1 {
		return flat[0], nil
	}
	return And{children: flat, key: setKey("and", flat, scope.None)}, nil
}

// NewOr is the disjunctive counterpart of NewAnd.
func NewOr(children ...Filter) (Filter, error) {
	flat, err := flatten(KindOr, children)
	if err != nil {
		return nil, err
	}
	if len(flat) == 1 {
		return flat[0], nil
	}
	return Or{children: flat, key: setKey("or", flat, scope.None)}, nil
}

// NewNot negates f. Double negation is kept as built; the normalizer removes it.
func NewNot(f Filter) (Filter, error) {
	if f == nil {
		return nil, apperr.InvalidFilter("not: filter is required")
	}
	return Not{inner: f}, nil
}

func flatten(kind Kind, children []Filter) ([]Filter, error) {
	if len(children) == 0 {
		return nil, apperr.InvalidFilter("%s: at least one filter is required", kind)
	}

	out := make([]Filter, 0, len(children))
	seen := make(map[string]bool, len(children))
	add := func(f Filter) {
		k := f.Key()
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, f)
	}

	for i, c := range children {
		if c == nil {
			return nil, apperr.InvalidFilter("%s: filter at position %d is nil", kind, i)
		}
		switch n := c.(type) {
		case And:
			if kind == KindAnd {
				for _, gc := range n.children {
					add(pushScope(gc, n.scope))
				}
				continue
			}
		case Or:
			if kind == KindOr {
				for _, gc := range n.children {
					add(pushScope(gc, n.scope))
				}
				continue
			}
		}
		add(c)
	}
	return out, nil
}

func pushScope(f Filter, s scope.Scope) Filter {
	if s == scope.None || f.Scope() != scope.None {
		return f
	}
	return f.WithScope(s)
}

func pushAll(children []Filter, s scope.Scope) []Filter {
	out := make([]Filter, len(children))
	for i, c := range children {
		out[i] = pushScope(c, s)
	}
	return out
}

func setKey(op string, children []Filter, s scope.Scope) string {
	keys := make([]string, len(children))
	for i, c := range children {
		keys[i] = c.Key()
	}
	sort.Strings(keys)
	k := op + "(" + strings.Join(keys, ",") + ")"
	if s != scope.None {
		k += "@" + s.String()
	}
	return k
}

func joinChildren(children []Filter, op string) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, " "+op+" ") + ")"
}

func cloneAll(children []Filter) []Filter {
	out := make([]Filter, len(children))
	for i, c := range children {
		out[i] = c.Clone()
	}
	return out
}

// Children returns the children in first-seen order.
func (a And) Children() []Filter { return append([]Filter(nil), a.children...) }
func (a And) Kind() Kind          { return KindAnd }
func (a And) Key() string         { return a.key }
func (a And) String() string      { return joinChildren(a.children, "AND") }

func (a And) WithScope(s scope.Scope) Filter {
	children := pushAll(a.children, s)
	return And{scoped: scoped{scope: s}, children: children, key: setKey("and", children, s)}
}

func (a And) Clone() Filter {
	return And{scoped: a.scoped, children: cloneAll(a.children), key: a.key}
}

// Children returns the children in first-seen order.
func (o Or) Children() []Filter { return append([]Filter(nil), o.children...) }
func (o Or) Kind() Kind          { return KindOr }
func (o Or) Key() string         { return o.key }
func (o Or) String() string      { return joinChildren(o.children, "OR") }

func (o Or) WithScope(s scope.Scope) Filter {
	children := pushAll(o.children, s)
	return Or{scoped: scoped{scope: s}, children: children, key: setKey("or", children, s)}
}

func (o Or) Clone() Filter {
	return Or{scoped: o.scoped, children: cloneAll(o.children), key: o.key}
}

func (n Not) Inner() Filter { return n.inner }
func (n Not) Kind() Kind    { return KindNot }

func (n Not) Key() string {
	return "not(" + n.inner.Key() + ")" + n.scopeKey()
}

func (n Not) String() string { return "NOT " + n.inner.String() }

func (n Not) WithScope(s scope.Scope) Filter {
	return Not{scoped: scoped{scope: s}, inner: pushScope(n.inner, s)}
}

func (n Not) Clone() Filter {
	return Not{scoped: n.scoped, inner: n.inner.Clone()}
}
