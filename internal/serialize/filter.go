package serialize

import (
	"fmt"
	"log/slog"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/fieldname"
	"github.com/DjordjeVuckovic/facetq/internal/filter"
	"github.com/DjordjeVuckovic/facetq/internal/normalize"
	"github.com/DjordjeVuckovic/facetq/internal/query"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/DjordjeVuckovic/facetq/internal/scope"
)

// Filter serializes f. A nil node means nothing constrains the result, which is
// also what a filter whose predicates were all dropped serializes to.
func (s *Serializer) Filter(f filter.Filter) (query.Node, error) {
	if f == nil {
		return nil, nil
	}
	if s.child == nil {
		return s.structural(f, s.parent)
	}
	return s.children(f)
}

// structural keeps the boolean structure of f. Dropped leaves vanish from
// And/Or, an Or left with no branch is omitted, and so is the negation of a
// dropped filter.
func (s *Serializer) structural(f filter.Filter, sch *schema.Schema) (query.Node, error) {
	switch x := f.(type) {
	case filter.And:
		nodes, err := s.all(x.Children(), sch)
		if err != nil {
			return nil, err
		}
		return query.And(nodes...), nil
	case filter.Or:
		nodes, err := s.all(x.Children(), sch)
		if err != nil {
			return nil, err
		}
		return query.Or(nodes...), nil
	case filter.Not:
		inner, err := s.structural(x.Inner(), sch)
		if err != nil || inner == nil {
			return nil, err
		}
		return query.Not{Node: inner}, nil
	case filter.ChildrenDocument:
		return s.childrenDocument(x)
	default:
		return s.leaf(f, sch)
	}
}

func (s *Serializer) all(fs []filter.Filter, sch *schema.Schema) ([]query.Node, error) {
	nodes := make([]query.Node, 0, len(fs))
	for _, c := range fs {
		n, err := s.structural(c, sch)
		if err != nil {
			return nil, err
		}
		if n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

// children normalizes f and renders each disjunct as its parent literals plus
// one block-join fragment holding the child literals.
func (s *Serializer) children(f filter.Filter) (query.Node, error) {
	branches := normalize.Partition(normalize.Normalize(f), s.classify)

	var disjuncts []query.Node
	for _, b := range branches {
		parent, err := s.all(b.Parent, s.parent)
		if err != nil {
			return nil, err
		}
		child, err := s.all(b.Child, s.child)
		if err != nil {
			return nil, err
		}

		if c := query.And(child...); c != nil {
			parent = append(parent, query.HasChild{
				ParentType: s.parent.Type(),
				ChildType:  s.child.Type(),
				Node:       c,
			})
		}
		if n := query.And(parent...); n != nil {
			disjuncts = append(disjuncts, n)
		}
	}
	return query.Or(disjuncts...), nil
}

// classify puts a leaf on the child side when its field exists in the child schema.
func (s *Serializer) classify(f filter.Filter) normalize.Side {
	if l, ok := f.(filter.Leaf); ok && s.child != nil && s.child.Has(l.FieldName()) {
		return normalize.Child
	}
	return normalize.Parent
}

func (s *Serializer) childrenDocument(c filter.ChildrenDocument) (query.Node, error) {
	if c.ParentType != s.parent.Type() {
		if s.cfg.Strict {
			return nil, apperr.InvalidFilter("children document: parent type %q does not match schema %q", c.ParentType, s.parent.Type())
		}
		slog.Debug("Dropping predicate", "filter", c.String(), "reason", "parent type mismatch")
		return nil, nil
	}

	childType := c.ChildType
	if childType == "" && s.child != nil {
		childType = s.child.Type()
	}
	if childType == "" {
		if s.cfg.Strict {
			return nil, apperr.Unsupported("schema %q has no child documents", s.parent.Type())
		}
		slog.Debug("Dropping predicate", "filter", c.String(), "reason", "no child schema")
		return nil, nil
	}
	return query.HasChild{ParentType: c.ParentType, ChildType: childType, Node: query.MatchAll{}}, nil
}

// useCase picks the use-case governing a leaf's physical name.
func useCase(f filter.Filter, fld *schema.Field) schema.UseCase {
	if uc, ok := f.Scope().UseCase(); ok {
		return uc
	}
	switch x := f.(type) {
	case filter.NotEmpty:
		switch x.Presence {
		case filter.PresenceText:
			return schema.Fulltext
		case filter.PresenceLocation:
			return locationUseCase(fld)
		}
	case filter.WithinBBox, filter.WithinCircle:
		return locationUseCase(fld)
	}
	return scope.Resolve(scope.None, fld)
}

// Locations are rarely faceted; without a facet variant they are matched on the stored one.
func locationUseCase(fld *schema.Field) schema.UseCase {
	if fld.IsFacet() {
		return schema.Facet
	}
	return schema.Stored
}

func (s *Serializer) leaf(f filter.Filter, sch *schema.Schema) (query.Node, error) {
	l, ok := f.(filter.Leaf)
	if !ok {
		return nil, fmt.Errorf("serialize: unexpected filter %s", f.Kind())
	}

	fld, ok := sch.Field(l.FieldName())
	if !ok {
		return nil, s.unknown(l.FieldName())
	}
	uc := useCase(f, fld)
	name, ok := fieldname.Encode(fld, uc, s.cfg.Context)
	if !ok {
		return nil, s.unsupported(l.FieldName(), uc)
	}

	switch x := f.(type) {
	case filter.Term:
		return query.Term{Field: name, Value: x.Value}, nil
	case filter.Prefix:
		return query.Prefix{Field: name, Value: x.Value}, nil
	case filter.Terms:
		return query.Terms{Field: name, Values: append([]any(nil), x.Values...)}, nil
	case filter.Equals:
		return query.Term{Field: name, Value: x.Value}, nil
	case filter.Before:
		return query.Range{Field: name, Upper: x.Bound, IncludeUpper: true}, nil
	case filter.After:
		return query.Range{Field: name, Lower: x.Bound, IncludeLower: true}, nil
	case filter.BetweenDates:
		return query.Range{Field: name, Lower: x.Start, Upper: x.End, IncludeLower: true, IncludeUpper: true}, nil
	case filter.GreaterThan:
		return query.Range{Field: name, Lower: x.Value}, nil
	case filter.LowerThan:
		return query.Range{Field: name, Upper: x.Value}, nil
	case filter.BetweenNumeric:
		return query.Range{Field: name, Lower: x.Start, Upper: x.End, IncludeLower: true, IncludeUpper: true}, nil
	case filter.WithinBBox:
		return query.GeoBox{Field: name, TopLeft: x.TopLeft, BottomRight: x.BottomRight}, nil
	case filter.WithinCircle:
		return query.GeoDistance{Field: name, Center: x.Center, RadiusKm: x.RadiusKm}, nil
	case filter.NotEmpty:
		return query.Exists{Field: name}, nil
	}
	return nil, fmt.Errorf("serialize: unexpected filter %s", f.Kind())
}
