package es

import (
	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/facet"
	"github.com/DjordjeVuckovic/facetq/internal/query"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/DjordjeVuckovic/facetq/internal/storage"
	"github.com/olivere/elastic/v7"
)

// Sub-aggregation names.
const (
	childAgg       = "facet"
	statsAgg       = "stats"
	cardinalityAgg = "cardinality"
	missingAgg     = "missing"
	countAgg       = "count"
	percentilesAgg = "percentiles"
	valuesAgg      = "values"
	pivotAgg       = "pivot"
)

// aggregation renders a facet. Child facets wrap the facet in a children
// aggregation under childAgg; subdocument facets are the children aggregation itself.
func (r *Renderer) aggregation(q *query.Query, f query.Facet) (elastic.Aggregation, error) {
	if f.Kind == facet.KindSubdocument {
		return elastic.NewChildrenAggregation().Type(f.ChildType), nil
	}
	agg, err := r.facetAggregation(q, f)
	if err != nil {
		return nil, err
	}
	if f.Child {
		return elastic.NewChildrenAggregation().Type(f.ChildType).SubAggregation(childAgg, agg), nil
	}
	return agg, nil
}

func facetSize(f query.Facet) int {
	if f.Limit > 0 {
		return f.Limit
	}
	return storage.DefaultFacetLimit
}

func (r *Renderer) facetAggregation(q *query.Query, f query.Facet) (elastic.Aggregation, error) {
	minCount := max(f.MinCount, 1)
	switch f.Kind {
	case facet.KindTerm:
		return elastic.NewTermsAggregation().Field(f.Field).Size(facetSize(f)).MinDocCount(minCount), nil
	case facet.KindType:
		return elastic.NewTermsAggregation().Field(TypeField).Size(facetSize(f)).MinDocCount(minCount), nil
	case facet.KindNumericRange, facet.KindDateRange, facet.KindInterval:
		return r.buckets(f)
	case facet.KindQuery:
		fq, err := r.node(f.Filter)
		if err != nil {
			return nil, err
		}
		return elastic.NewFilterAggregation().Filter(fq), nil
	case facet.KindStats:
		s, ok := f.Source.(facet.Stats)
		if !ok {
			return nil, apperr.InvalidFacet("es: stats facet %q has no stats request", f.Name)
		}
		return statsAggregation(s, f.Field)
	case facet.KindPivot:
		return r.pivot(q, f, f.Pivot)
	}
	return nil, apperr.Unsupported("es: %s facets are not supported", f.Kind)
}

// buckets renders range-like facets as named filters so that every bucket
// keeps its own bound inclusivity.
func (r *Renderer) buckets(f query.Facet) (elastic.Aggregation, error) {
	agg := elastic.NewFiltersAggregation()
	for _, b := range f.Buckets {
		rq, err := rangeQuery(f.Field, b.Lower, b.Upper, b.IncludeLower, b.IncludeUpper)
		if err != nil {
			return nil, err
		}
		agg = agg.FilterWithName(b.Key, rq)
	}
	return agg, nil
}

// pivot nests one terms aggregation per field. Facets tagged with one of the
// pivot's tags are computed inside every bucket.
func (r *Renderer) pivot(q *query.Query, f query.Facet, fields []string) (elastic.Aggregation, error) {
	agg := elastic.NewTermsAggregation().Field(fields[0]).Size(facetSize(f)).MinDocCount(max(f.MinCount, 1))
	if len(fields) > 1 {
		sub, err := r.pivot(q, f, fields[1:])
		if err != nil {
			return nil, err
		}
		agg = agg.SubAggregation(pivotAgg, sub)
	}
	for _, tag := range f.Tags {
		for _, tf := range q.TaggedFacets(tag) {
			sub, err := r.facetAggregation(q, tf)
			if err != nil {
				return nil, err
			}
			agg = agg.SubAggregation(tf.Name, sub)
		}
	}
	return agg, nil
}

// statsAggregation groups the metric aggregations a stats facet needs under
// one match_all filter.
func statsAggregation(s facet.Stats, field string) (elastic.Aggregation, error) {
	fl := s.Flags
	agg := elastic.NewFilterAggregation().Filter(elastic.NewMatchAllQuery())

	switch b := bucketOf(field); {
	case b == schema.BucketString || b == schema.BucketBool || b == schema.BucketBinary || b == schema.BucketLocation:
		if fl.Min || fl.Max || fl.Mean || fl.Sum || fl.SumOfSquares || fl.Stddev || len(s.Percentiles) > 0 {
			return nil, apperr.Unsupported("es: min, max and arithmetic statistics need a numeric or date field, got %q", field)
		}
		if fl.Count {
			agg = agg.SubAggregation(countAgg, elastic.NewValueCountAggregation().Field(field))
		}
	case b == schema.BucketDate:
		if fl.Min || fl.Max || fl.Mean || fl.Count {
			agg = agg.SubAggregation(statsAgg, elastic.NewStatsAggregation().Field(field))
		}
	default:
		if fl.Min || fl.Max || fl.Mean || fl.Count || fl.Sum || fl.SumOfSquares || fl.Stddev {
			agg = agg.SubAggregation(statsAgg, elastic.NewExtendedStatsAggregation().Field(field))
		}
		if len(s.Percentiles) > 0 {
			agg = agg.SubAggregation(percentilesAgg, elastic.NewPercentilesAggregation().Field(field).Percentiles(s.Percentiles...))
		}
	}
	if fl.Missing {
		agg = agg.SubAggregation(missingAgg, elastic.NewMissingAggregation().Field(field))
	}
	if fl.CountDistinct || fl.Cardinality {
		agg = agg.SubAggregation(cardinalityAgg, elastic.NewCardinalityAggregation().Field(field))
	}
	if fl.DistinctValues {
		agg = agg.SubAggregation(valuesAgg, elastic.NewTermsAggregation().Field(field).Size(storage.DefaultFacetLimit))
	}
	return agg, nil
}
