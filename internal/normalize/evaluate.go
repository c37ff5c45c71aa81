package normalize

import (
	"math"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/filter"
)

// Reserved keys of a Document.
const (
	TypeKey     = "_type_"
	ChildrenKey = "_children_"
)

// Document is a flat field assignment: logical field name to values.
// TypeKey holds the document type, ChildrenKey the types of its children.
type Document map[string][]any

// Evaluate reports whether doc matches f, resolving date math against the
// current time. It is the reference semantics normalization must preserve.
func Evaluate(f filter.Filter, doc Document) bool {
	return EvaluateAt(f, doc, time.Now())
}

func EvaluateAt(f filter.Filter, doc Document, now time.Time) bool {
	switch x := f.(type) {
	case filter.And:
		for _, c := range x.Children() {
			if !EvaluateAt(c, doc, now) {
				return false
			}
		}
		return true
	case filter.Or:
		for _, c := range x.Children() {
			if EvaluateAt(c, doc, now) {
				return true
			}
		}
		return false
	case filter.Not:
		return !EvaluateAt(x.Inner(), doc, now)
	case filter.Term:
		return anyValue(doc[x.Field], func(v any) bool { s, ok := v.(string); return ok && s == x.Value })
	case filter.Prefix:
		return anyValue(doc[x.Field], func(v any) bool { s, ok := v.(string); return ok && strings.HasPrefix(s, x.Value) })
	case filter.Terms:
		return anyValue(doc[x.Field.Name()], func(v any) bool {
			for _, want := range x.Values {
				if sameValue(v, want) {
					return true
				}
			}
			return false
		})
	case filter.Equals:
		return anyValue(doc[x.Field.Name()], func(v any) bool { return sameValue(v, x.Value) })
	case filter.Before:
		bound := x.Bound.Time(now)
		return anyTime(doc[x.Field], func(t time.Time) bool { return !t.After(bound) })
	case filter.After:
		bound := x.Bound.Time(now)
		return anyTime(doc[x.Field], func(t time.Time) bool { return !t.Before(bound) })
	case filter.BetweenDates:
		start, end := x.Start.Time(now), x.End.Time(now)
		return anyTime(doc[x.Field], func(t time.Time) bool { return !t.Before(start) && !t.After(end) })
	case filter.GreaterThan:
		return anyNumber(doc[x.Field], func(n float64) bool { return n > x.Value })
	case filter.LowerThan:
		return anyNumber(doc[x.Field], func(n float64) bool { return n < x.Value })
	case filter.BetweenNumeric:
		return anyNumber(doc[x.Field], func(n float64) bool { return n >= x.Start && n <= x.End })
	case filter.WithinBBox:
		return anyValue(doc[x.Field], func(v any) bool {
			p, ok := v.(filter.GeoPoint)
			return ok && InBBox(p, x.TopLeft, x.BottomRight)
		})
	case filter.WithinCircle:
		return anyValue(doc[x.Field], func(v any) bool {
			p, ok := v.(filter.GeoPoint)
			return ok && DistanceKm(p, x.Center) <= x.RadiusKm
		})
	case filter.NotEmpty:
		return len(doc[x.Field]) > 0
	case filter.ChildrenDocument:
		if types := doc[TypeKey]; len(types) > 0 && !anyValue(types, func(v any) bool { return v == x.ParentType }) {
			return false
		}
		return anyValue(doc[ChildrenKey], func(v any) bool { return x.ChildType == "" || v == x.ChildType })
	}
	return false
}

func anyValue(vs []any, fn func(any) bool) bool {
	for _, v := range vs {
		if fn(v) {
			return true
		}
	}
	return false
}

func anyTime(vs []any, fn func(time.Time) bool) bool {
	return anyValue(vs, func(v any) bool { t, ok := v.(time.Time); return ok && fn(t) })
}

func anyNumber(vs []any, fn func(float64) bool) bool {
	return anyValue(vs, func(v any) bool { n, ok := toFloat(v); return ok && fn(n) })
}

func sameValue(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// InBBox handles boxes crossing the antimeridian (left longitude east of right).
func InBBox(p, topLeft, bottomRight filter.GeoPoint) bool {
	if p.Lat > topLeft.Lat || p.Lat < bottomRight.Lat {
		return false
	}
	if topLeft.Lon <= bottomRight.Lon {
		return p.Lon >= topLeft.Lon && p.Lon <= bottomRight.Lon
	}
	return p.Lon >= topLeft.Lon || p.Lon <= bottomRight.Lon
}

const earthRadiusKm = 6371.0088

// DistanceKm is the haversine distance between two points.
func DistanceKm(a, b filter.GeoPoint) float64 {
	rad := math.Pi / 180
	dLat := (b.Lat - a.Lat) * rad
	dLon := (b.Lon - a.Lon) * rad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*rad)*math.Cos(b.Lat*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}
