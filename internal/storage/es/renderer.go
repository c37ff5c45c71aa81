package es

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/facet"
	"github.com/DjordjeVuckovic/facetq/internal/fieldname"
	"github.com/DjordjeVuckovic/facetq/internal/filter"
	"github.com/DjordjeVuckovic/facetq/internal/query"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/DjordjeVuckovic/facetq/internal/storage"
	"github.com/DjordjeVuckovic/facetq/pkg/pagination"
	"github.com/olivere/elastic/v7"
)

var capabilities = storage.Capabilities{
	Backend:     storage.ES,
	BlockJoin:   true,
	GeoDistance: true,
	Text:        true,
	Facets: []facet.Kind{
		facet.KindTerm, facet.KindType, facet.KindSubdocument, facet.KindNumericRange,
		facet.KindDateRange, facet.KindInterval, facet.KindPivot, facet.KindQuery, facet.KindStats,
	},
	Percentiles: true,
}

// Renderer builds Elasticsearch search bodies. Children are joined through
// the join field, so has_child and children aggregations take child types.
type Renderer struct{}

func NewRenderer() *Renderer { return &Renderer{} }

func (r *Renderer) Capabilities() storage.Capabilities { return capabilities }

func (r *Renderer) Render(q *query.Query, page pagination.OffsetRequest) (any, error) {
	return r.Source(q, page)
}

// Source renders the search body of q as a JSON-ready value.
func (r *Renderer) Source(q *query.Query, page pagination.OffsetRequest) (map[string]any, error) {
	if q == nil {
		return nil, apperr.NewValidation("es: query is required")
	}
	if err := capabilities.Check(q); err != nil {
		return nil, err
	}
	page = page.Normalize()

	ss, err := r.searchSource(q, page)
	if err != nil {
		return nil, err
	}
	src, err := ss.Source()
	if err != nil {
		return nil, fmt.Errorf("es: render search source: %w", err)
	}
	body, ok := src.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("es: unexpected search source %T", src)
	}
	slog.Debug("Rendered es search body", "parent_type", q.ParentType, "facets", len(q.Facets))
	return body, nil
}

func (r *Renderer) searchSource(q *query.Query, page pagination.OffsetRequest) (*elastic.SearchSource, error) {
	root := elastic.NewBoolQuery().Filter(elastic.NewTermQuery(TypeField, q.ParentType))
	if q.Filter != nil {
		fq, err := r.node(q.Filter)
		if err != nil {
			return nil, err
		}
		root = root.Filter(fq)
	}
	if q.Text != nil && q.Text.Query != "" {
		fields := make([]string, len(q.Text.Fields))
		for i, f := range q.Text.Fields {
			fields[i] = f.Name
			if f.Boost > 0 && f.Boost != 1 {
				fields[i] += "^" + strconv.FormatFloat(f.Boost, 'f', -1, 64)
			}
		}
		root = root.Must(elastic.NewMultiMatchQuery(q.Text.Query, fields...))
	}

	ss := elastic.NewSearchSource().
		Query(root).
		From(page.Offset()).
		Size(page.Size).
		TrackTotalHits(true).
		TrackScores(q.IncludeScore)

	for _, s := range q.Sort {
		fs := elastic.NewFieldSort(s.Field).Missing("_last")
		if s.Desc {
			fs = fs.Desc()
		} else {
			fs = fs.Asc()
		}
		ss = ss.SortBy(fs)
	}
	if q.Text != nil {
		ss = ss.SortBy(elastic.NewScoreSort())
	}
	ss = ss.SortBy(elastic.NewFieldSort(IDField).Asc())

	for _, f := range q.Facets {
		agg, err := r.aggregation(q, f)
		if err != nil {
			return nil, err
		}
		ss = ss.Aggregation(f.Name, agg)
	}
	return ss, nil
}

func (r *Renderer) node(n query.Node) (elastic.Query, error) {
	switch x := n.(type) {
	case nil, query.MatchAll:
		return elastic.NewMatchAllQuery(), nil
	case query.Bool:
		qs := make([]elastic.Query, 0, len(x.Nodes))
		for _, c := range x.Nodes {
			cq, err := r.node(c)
			if err != nil {
				return nil, err
			}
			qs = append(qs, cq)
		}
		if x.Op == query.OpOr {
			return elastic.NewBoolQuery().Should(qs...).MinimumNumberShouldMatch(1), nil
		}
		return elastic.NewBoolQuery().Filter(qs...), nil
	case query.Not:
		inner, err := r.node(x.Node)
		if err != nil {
			return nil, err
		}
		return elastic.NewBoolQuery().MustNot(inner), nil
	case query.Term:
		return elastic.NewTermQuery(x.Field, termValue(x.Value)), nil
	case query.Terms:
		values := make([]interface{}, len(x.Values))
		for i, v := range x.Values {
			values[i] = termValue(v)
		}
		return elastic.NewTermsQuery(x.Field, values...), nil
	case query.Prefix:
		return elastic.NewPrefixQuery(x.Field, x.Value), nil
	case query.Range:
		return rangeQuery(x.Field, x.Lower, x.Upper, x.IncludeLower, x.IncludeUpper)
	case query.GeoBox:
		return elastic.NewGeoBoundingBoxQuery(x.Field).
			TopLeft(x.TopLeft.Lat, x.TopLeft.Lon).
			BottomRight(x.BottomRight.Lat, x.BottomRight.Lon), nil
	case query.GeoDistance:
		return elastic.NewGeoDistanceQuery(x.Field).
			Lat(x.Center.Lat).
			Lon(x.Center.Lon).
			Distance(strconv.FormatFloat(x.RadiusKm, 'f', -1, 64) + "km"), nil
	case query.Exists:
		return elastic.NewExistsQuery(x.Field), nil
	case query.Type:
		return elastic.NewTermQuery(TypeField, x.Name), nil
	case query.HasChild:
		inner, err := r.node(x.Node)
		if err != nil {
			return nil, err
		}
		return elastic.NewHasChildQuery(x.ChildType, inner), nil
	}
	return nil, fmt.Errorf("es: unexpected node %T", n)
}

func termValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case filter.GeoPoint:
		return x.String()
	default:
		return v
	}
}

// rangeQuery accepts float64, time.Time, date-math bounds or nil.
func rangeQuery(field string, lower, upper any, incLower, incUpper bool) (elastic.Query, error) {
	rq := elastic.NewRangeQuery(field)
	if lower != nil {
		v, err := boundValue(lower)
		if err != nil {
			return nil, err
		}
		if incLower {
			rq = rq.Gte(v)
		} else {
			rq = rq.Gt(v)
		}
	}
	if upper != nil {
		v, err := boundValue(upper)
		if err != nil {
			return nil, err
		}
		if incUpper {
			rq = rq.Lte(v)
		} else {
			rq = rq.Lt(v)
		}
	}
	return rq, nil
}

func boundValue(v any) (any, error) {
	switch x := v.(type) {
	case filter.DateBound:
		if e, ok := x.Expr(); ok {
			s, err := e.ES()
			if err != nil {
				return nil, apperr.InvalidFilter("es: %v", err)
			}
			return s, nil
		}
		return x.Time(time.Time{}).Format(time.RFC3339Nano), nil
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), nil
	default:
		return v, nil
	}
}

func bucketOf(field string) schema.Bucket {
	d, ok := fieldname.Decode(field, "")
	if !ok {
		return ""
	}
	return d.Bucket
}
