package in_mem

import (
	"strings"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/document"
	"github.com/DjordjeVuckovic/facetq/internal/filter"
	"github.com/DjordjeVuckovic/facetq/internal/normalize"
	"github.com/DjordjeVuckovic/facetq/internal/query"
	"github.com/DjordjeVuckovic/facetq/internal/storage"
)

// matcher evaluates query nodes against physical fields.
type matcher struct {
	now time.Time
}

func (m matcher) match(n query.Node, doc document.Encoded) bool {
	switch x := n.(type) {
	case nil, query.MatchAll:
		return true
	case query.Bool:
		if x.Op == query.OpOr {
			for _, c := range x.Nodes {
				if m.match(c, doc) {
					return true
				}
			}
			return false
		}
		for _, c := range x.Nodes {
			if !m.match(c, doc) {
				return false
			}
		}
		return true
	case query.Not:
		return !m.match(x.Node, doc)
	case query.Term:
		return anyValue(doc.Fields[x.Field], func(v any) bool { return storage.SameValue(v, x.Value) })
	case query.Terms:
		return anyValue(doc.Fields[x.Field], func(v any) bool {
			for _, want := range x.Values {
				if storage.SameValue(v, want) {
					return true
				}
			}
			return false
		})
	case query.Prefix:
		return anyValue(doc.Fields[x.Field], func(v any) bool {
			s, ok := v.(string)
			return ok && strings.HasPrefix(s, x.Value)
		})
	case query.Range:
		lower := query.ResolveBound(x.Lower, m.now)
		upper := query.ResolveBound(x.Upper, m.now)
		return anyValue(doc.Fields[x.Field], func(v any) bool {
			return storage.InRange(v, lower, upper, x.IncludeLower, x.IncludeUpper)
		})
	case query.GeoBox:
		return anyValue(doc.Fields[x.Field], func(v any) bool {
			p, ok := v.(filter.GeoPoint)
			return ok && normalize.InBBox(p, x.TopLeft, x.BottomRight)
		})
	case query.GeoDistance:
		return anyValue(doc.Fields[x.Field], func(v any) bool {
			p, ok := v.(filter.GeoPoint)
			return ok && normalize.DistanceKm(p, x.Center) <= x.RadiusKm
		})
	case query.Exists:
		return len(doc.Fields[x.Field]) > 0
	case query.Type:
		return doc.Type == x.Name
	case query.HasChild:
		if doc.Type != x.ParentType {
			return false
		}
		for _, c := range doc.Children {
			if c.Type == x.ChildType && m.match(x.Node, c) {
				return true
			}
		}
		return false
	}
	return false
}

func anyValue(values []any, fn func(any) bool) bool {
	for _, v := range values {
		if fn(v) {
			return true
		}
	}
	return false
}

// score counts query words in the text fields, weighted by field boost.
// Zero means no match.
func score(t *query.Text, doc document.Encoded) float64 {
	words := strings.Fields(strings.ToLower(t.Query))
	var total float64
	for _, f := range t.Fields {
		boost := f.Boost
		if boost <= 0 {
			boost = 1
		}
		for _, v := range doc.Fields[f.Name] {
			s, ok := v.(string)
			if !ok {
				continue
			}
			for _, token := range strings.Fields(strings.ToLower(s)) {
				for _, w := range words {
					if token == w {
						total += boost
					}
				}
			}
		}
	}
	return total
}
