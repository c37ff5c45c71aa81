package sqlstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/fieldname"
	"github.com/DjordjeVuckovic/facetq/internal/query"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/DjordjeVuckovic/facetq/internal/storage"
)

const table = "documents"

// predicates renders query nodes as boolean SQL over a document row alias.
type predicates struct {
	d   Dialect
	b   *Builder
	now time.Time
}

func (p *predicates) node(n query.Node, doc string) (string, error) {
	switch x := n.(type) {
	case nil, query.MatchAll:
		return "1 = 1", nil
	case query.Bool:
		parts := make([]string, 0, len(x.Nodes))
		for _, c := range x.Nodes {
			s, err := p.node(c, doc)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "(" + strings.Join(parts, " "+x.Op.String()+" ") + ")", nil
	case query.Not:
		s, err := p.node(x.Node, doc)
		if err != nil {
			return "", err
		}
		return "NOT " + s, nil
	case query.Term:
		return p.exists(doc, x.Field, func(v string) (string, error) {
			return p.equals(x.Field, v, x.Value), nil
		})
	case query.Terms:
		return p.exists(doc, x.Field, func(v string) (string, error) {
			parts := make([]string, len(x.Values))
			for i, want := range x.Values {
				parts[i] = p.equals(x.Field, v, want)
			}
			return "(" + strings.Join(parts, " OR ") + ")", nil
		})
	case query.Prefix:
		return p.exists(doc, x.Field, func(v string) (string, error) {
			return p.d.HasPrefix(p.b, p.d.Text(v), x.Value), nil
		})
	case query.Range:
		return p.exists(doc, x.Field, func(v string) (string, error) {
			return p.rangeOf(x, v)
		})
	case query.GeoBox:
		return p.exists(doc, x.Field, func(v string) (string, error) {
			return p.box(x, v), nil
		})
	case query.GeoDistance:
		return p.exists(doc, x.Field, func(v string) (string, error) {
			dist, ok := p.d.Distance(p.b, v, x.Center.Lat, x.Center.Lon)
			if !ok {
				return "", apperr.Unsupported("%s: distance filters are not supported", p.d.Backend())
			}
			return fmt.Sprintf("%s <= %s", dist, p.b.Arg(x.RadiusKm)), nil
		})
	case query.Exists:
		return p.d.Has(p.b, doc, x.Field), nil
	case query.Type:
		return fmt.Sprintf("%s.doc_type = %s", doc, p.b.Arg(x.Name)), nil
	case query.HasChild:
		child := doc + "c"
		head := fmt.Sprintf("EXISTS (SELECT 1 FROM %s %s WHERE %s.parent_id = %s.id AND %s.doc_type = %s AND ",
			table, child, child, doc, child, p.b.Arg(x.ChildType))
		inner, err := p.node(x.Node, child)
		if err != nil {
			return "", err
		}
		return head + inner + ")", nil
	}
	return "", fmt.Errorf("sqlstore: unexpected node %T", n)
}

// exists wraps a condition on one value of field in an EXISTS over its elements.
func (p *predicates) exists(doc, field string, cond func(v string) (string, error)) (string, error) {
	v := doc + "v"
	from := p.d.Elements(p.b, doc, field, v)
	c, err := cond(v)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("EXISTS (SELECT 1 FROM %s WHERE %s)", from, c), nil
}

// equals compares numerically on numeric fields and by instant on date
// fields when the wanted value parses as such, and as text otherwise.
func (p *predicates) equals(field, v string, want any) string {
	switch bucketOf(field) {
	case schema.BucketInt, schema.BucketLong, schema.BucketNumber:
		if f, ok := storage.ToFloat(want); ok {
			return fmt.Sprintf("%s = %s", p.d.Number(v), p.b.Arg(f))
		}
	case schema.BucketDate:
		if t, ok := storage.ToTime(want); ok {
			return fmt.Sprintf("%s = %s", p.d.Time(v), p.d.TimeArg(p.b, t))
		}
	}
	return fmt.Sprintf("%s = %s", p.d.Text(v), p.b.Arg(storage.ValueKey(want)))
}

func (p *predicates) rangeOf(r query.Range, v string) (string, error) {
	lower := query.ResolveBound(r.Lower, p.now)
	upper := query.ResolveBound(r.Upper, p.now)
	return p.bounds(r.Field, v, lower, upper, r.IncludeLower, r.IncludeUpper)
}

// bounds renders lower/upper comparisons; bounds are float64, time.Time or nil.
func (p *predicates) bounds(field, v string, lower, upper any, incLower, incUpper bool) (string, error) {
	var parts []string
	for _, side := range []struct {
		bound any
		op    string
	}{
		{lower, cmp(">", incLower)},
		{upper, cmp("<", incUpper)},
	} {
		switch b := side.bound.(type) {
		case nil:
		case time.Time:
			if bucketOf(field) != schema.BucketDate {
				return "", apperr.InvalidFilter("date range on non-date field %q", field)
			}
			parts = append(parts, fmt.Sprintf("%s %s %s", p.d.Time(v), side.op, p.d.TimeArg(p.b, b)))
		default:
			f, ok := storage.ToFloat(b)
			if !ok || !numeric(field) {
				return "", apperr.InvalidFilter("numeric range on non-numeric field %q", field)
			}
			parts = append(parts, fmt.Sprintf("%s %s %s", p.d.Number(v), side.op, p.b.Arg(f)))
		}
	}
	if len(parts) == 0 {
		return "1 = 1", nil
	}
	return strings.Join(parts, " AND "), nil
}

func cmp(op string, inclusive bool) string {
	if inclusive {
		return op + "="
	}
	return op
}

func (p *predicates) box(g query.GeoBox, v string) string {
	lat, lon := p.d.Lat(v), p.d.Lon(v)
	latCond := fmt.Sprintf("%s BETWEEN %s AND %s", lat, p.b.Arg(g.BottomRight.Lat), p.b.Arg(g.TopLeft.Lat))
	if g.TopLeft.Lon <= g.BottomRight.Lon {
		return fmt.Sprintf("%s AND %s BETWEEN %s AND %s", latCond, lon, p.b.Arg(g.TopLeft.Lon), p.b.Arg(g.BottomRight.Lon))
	}
	// crosses the antimeridian
	return fmt.Sprintf("%s AND (%s >= %s OR %s <= %s)", latCond, lon, p.b.Arg(g.TopLeft.Lon), lon, p.b.Arg(g.BottomRight.Lon))
}

func bucketOf(field string) schema.Bucket {
	d, ok := fieldname.Decode(field, "")
	if !ok {
		return ""
	}
	return d.Bucket
}

func numeric(field string) bool {
	switch bucketOf(field) {
	case schema.BucketInt, schema.BucketLong, schema.BucketNumber:
		return true
	}
	return false
}
