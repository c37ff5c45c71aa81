package serialize

import (
	"log/slog"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/facet"
	"github.com/DjordjeVuckovic/facetq/internal/fieldname"
	"github.com/DjordjeVuckovic/facetq/internal/filter"
	"github.com/DjordjeVuckovic/facetq/internal/query"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/DjordjeVuckovic/facetq/internal/scope"
)

// Facets serializes facet requests in order, dropping those that cannot be
// resolved in non-strict mode.
func (s *Serializer) Facets(fs ...facet.Facet) ([]query.Facet, error) {
	out := make([]query.Facet, 0, len(fs))
	seen := map[string]bool{}
	for _, f := range fs {
		if f == nil {
			continue
		}
		if seen[f.Name()] {
			return nil, apperr.InvalidFacet("duplicate facet name %q", f.Name())
		}
		seen[f.Name()] = true

		qf, ok, err := s.Facet(f)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, qf)
		}
	}
	return out, nil
}

// Facet serializes a single facet request. ok is false when it was dropped.
func (s *Serializer) Facet(f facet.Facet) (query.Facet, bool, error) {
	qf := query.Facet{
		Name:     f.Name(),
		Kind:     f.Kind(),
		Tags:     f.Tags(),
		Limit:    f.Limit(),
		MinCount: f.MinCount(),
		Source:   f,
	}
	now := s.cfg.Now()

	var err error
	ok := true
	switch x := f.(type) {
	case facet.Term:
		ok, err = s.facetField(&qf, x.Field, f.Scope())
	case facet.Type:
	case facet.Subdocument:
		ok, err = s.subdocument(&qf, x)
	case facet.NumericRange:
		if ok, err = s.facetField(&qf, x.Field, f.Scope()); ok {
			for _, b := range x.Buckets() {
				qf.Buckets = append(qf.Buckets, query.Bucket{
					Key: filter.FormatValue(b[0]), Lower: b[0], Upper: b[1], IncludeLower: true,
				})
			}
		}
	case facet.DateRange:
		if ok, err = s.facetField(&qf, x.Field, f.Scope()); ok {
			var buckets [][2]time.Time
			if buckets, err = x.Buckets(now); err != nil {
				return query.Facet{}, false, err
			}
			for _, b := range buckets {
				qf.Buckets = append(qf.Buckets, query.Bucket{
					Key: b[0].Format(time.RFC3339), Lower: b[0], Upper: b[1], IncludeLower: true,
				})
			}
		}
	case facet.IntervalFacet:
		if ok, err = s.facetField(&qf, x.Field, f.Scope()); ok {
			for _, iv := range x.Intervals {
				qf.Buckets = append(qf.Buckets, query.Bucket{
					Key:          iv.Name,
					Lower:        intervalBound(x.Domain, iv.Start, now),
					Upper:        intervalBound(x.Domain, iv.End, now),
					IncludeLower: iv.IncludeStart,
					IncludeUpper: iv.IncludeEnd,
				})
			}
		}
	case facet.Pivot:
		ok, err = s.pivot(&qf, x)
	case facet.Query:
		var node query.Node
		node, err = s.Filter(x.Filter)
		if node == nil {
			node = query.MatchAll{}
		}
		qf.Filter = node
	case facet.Stats:
		ok, err = s.facetField(&qf, x.Field.Name(), f.Scope())
	}
	if err != nil {
		return query.Facet{}, false, err
	}
	return qf, ok, nil
}

// facetField resolves a facet's field. Parent fields win; a field found only in
// the child schema makes the facet aggregate child documents.
func (s *Serializer) facetField(qf *query.Facet, name string, sc scope.Scope) (bool, error) {
	fld, child, ok := s.facetLookup(name)
	if !ok {
		return false, s.unknown(name)
	}
	uc := scope.Resolve(sc, fld)
	physical, ok := fieldname.Encode(fld, uc, s.cfg.Context)
	if !ok {
		return false, s.unsupported(name, uc)
	}
	qf.Field = physical
	if child {
		qf.Child = true
		qf.ChildType = s.child.Type()
	}
	return true, nil
}

func (s *Serializer) facetLookup(name string) (*schema.Field, bool, bool) {
	if f, ok := s.parent.Field(name); ok {
		return f, false, true
	}
	if s.child != nil {
		if f, ok := s.child.Field(name); ok {
			return f, true, true
		}
	}
	return nil, false, false
}

func (s *Serializer) subdocument(qf *query.Facet, x facet.Subdocument) (bool, error) {
	if s.child == nil || s.child.Type() != x.ChildType {
		if s.cfg.Strict {
			return false, apperr.Unsupported("schema %q has no child documents of type %q", s.parent.Type(), x.ChildType)
		}
		slog.Debug("Dropping facet", "facet", x.Name(), "reason", "unknown child type", "child_type", x.ChildType)
		return false, nil
	}
	qf.Child = true
	qf.ChildType = x.ChildType
	return true, nil
}

// pivot fields must all live on the same side of the block.
func (s *Serializer) pivot(qf *query.Facet, p facet.Pivot) (bool, error) {
	var sides []bool
	for _, f := range p.Fields {
		var probe query.Facet
		ok, err := s.facetField(&probe, f.Name(), p.Scope())
		if err != nil || !ok {
			return false, err
		}
		qf.Pivot = append(qf.Pivot, probe.Field)
		sides = append(sides, probe.Child)
	}
	for _, child := range sides[1:] {
		if child != sides[0] {
			if s.cfg.Strict {
				return false, apperr.Unsupported("pivot %q mixes parent and child fields", p.Name())
			}
			slog.Debug("Dropping facet", "facet", p.Name(), "reason", "pivot mixes parent and child fields")
			return false, nil
		}
	}
	if sides[0] {
		qf.Child = true
		qf.ChildType = s.child.Type()
	}
	return true, nil
}

func intervalBound(d facet.Domain, v any, now time.Time) any {
	if v == nil {
		return nil
	}
	epoch, _ := d.Epoch(v, now)
	switch d {
	case facet.DomainNumeric:
		return epoch
	case facet.DomainZonedDateTime:
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return time.UnixMilli(int64(epoch)).UTC()
}
