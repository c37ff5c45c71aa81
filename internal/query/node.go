// Package query is the backend-neutral query produced by the serializer.
// Field names in this package are physical names.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/filter"
)

// Node is implemented only by the types in this package.
type Node interface {
	String() string
	isNode()
}

type BoolOp int

const (
	OpAnd BoolOp = iota + 1
	OpOr
)

func (o BoolOp) String() string {
	if o == OpOr {
		return "OR"
	}
	return "AND"
}

type Bool struct {
	Op    BoolOp
	Nodes []Node
}

type Not struct {
	Node Node
}

type Term struct {
	Field string
	Value any
}

type Terms struct {
	Field  string
	Values []any
}

type Prefix struct {
	Field string
	Value string
}

// Range bounds are float64, time.Time, filter.DateBound or nil for an open end.
type Range struct {
	Field        string
	Lower        any
	Upper        any
	IncludeLower bool
	IncludeUpper bool
}

type GeoBox struct {
	Field       string
	TopLeft     filter.GeoPoint
	BottomRight filter.GeoPoint
}

type GeoDistance struct {
	Field    string
	Center   filter.GeoPoint
	RadiusKm float64
}

type Exists struct {
	Field string
}

// Type matches documents of a document type.
type Type struct {
	Name string
}

// HasChild matches parents with at least one child matching Node.
type HasChild struct {
	ParentType string
	ChildType  string
	Node       Node
}

type MatchAll struct{}

func (Bool) isNode()        {}
func (Not) isNode()         {}
func (Term) isNode()        {}
func (Terms) isNode()       {}
func (Prefix) isNode()      {}
func (Range) isNode()       {}
func (GeoBox) isNode()      {}
func (GeoDistance) isNode() {}
func (Exists) isNode()      {}
func (Type) isNode()        {}
func (HasChild) isNode()    {}
func (MatchAll) isNode()    {}

// And joins nodes, dropping nils. It returns nil for no nodes and the node itself for one.
func And(nodes ...Node) Node { return join(OpAnd, nodes) }

// Or is the disjunctive counterpart of And.
func Or(nodes ...Node) Node { return join(OpOr, nodes) }

func join(op BoolOp, nodes []Node) Node {
	var kept []Node
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if b, ok := n.(Bool); ok && b.Op == op {
			kept = append(kept, b.Nodes...)
			continue
		}
		kept = append(kept, n)
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return Bool{Op: op, Nodes: kept}
	}
}

func (b Bool) String() string {
	parts := make([]string, len(b.Nodes))
	for i, n := range b.Nodes {
		parts[i] = n.String()
	}
	return "(" + strings.Join(parts, " "+b.Op.String()+" ") + ")"
}

func (n Not) String() string    { return "NOT " + n.Node.String() }
func (t Term) String() string   { return t.Field + ":" + filter.FormatValue(t.Value) }
func (p Prefix) String() string { return p.Field + ":" + p.Value + "*" }
func (e Exists) String() string { return "_exists_:" + e.Field }
func (t Type) String() string   { return "_type_:" + t.Name }
func (MatchAll) String() string { return "*:*" }

func (t Terms) String() string {
	parts := make([]string, len(t.Values))
	for i, v := range t.Values {
		parts[i] = filter.FormatValue(v)
	}
	return t.Field + ":(" + strings.Join(parts, " OR ") + ")"
}

func (r Range) String() string {
	open, closing := "{", "}"
	if r.IncludeLower {
		open = "["
	}
	if r.IncludeUpper {
		closing = "]"
	}
	return fmt.Sprintf("%s:%s%s TO %s%s", r.Field, open, FormatBound(r.Lower), FormatBound(r.Upper), closing)
}

func (g GeoBox) String() string {
	return fmt.Sprintf("%s:bbox(%s %s)", g.Field, g.TopLeft, g.BottomRight)
}

func (g GeoDistance) String() string {
	return fmt.Sprintf("%s:circle(%s %skm)", g.Field, g.Center, filter.FormatValue(g.RadiusKm))
}

func (h HasChild) String() string {
	return fmt.Sprintf("has_child(%s>%s, %s)", h.ParentType, h.ChildType, h.Node)
}

// ResolveBound turns date-math bounds into instants relative to now; other
// bounds are returned unchanged.
func ResolveBound(v any, now time.Time) any {
	if b, ok := v.(filter.DateBound); ok {
		return b.Time(now)
	}
	return v
}

// FormatBound renders a range bound; open bounds are "*".
func FormatBound(v any) string {
	switch x := v.(type) {
	case nil:
		return "*"
	case filter.DateBound:
		return x.String()
	default:
		return filter.FormatValue(x)
	}
}

// Walk visits n and its descendants depth-first. Returning false from fn skips
// the children of the visited node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch x := n.(type) {
	case Bool:
		for _, c := range x.Nodes {
			Walk(c, fn)
		}
	case Not:
		Walk(x.Node, fn)
	case HasChild:
		Walk(x.Node, fn)
	}
}
