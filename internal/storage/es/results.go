package es

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/facet"
	"github.com/DjordjeVuckovic/facetq/internal/query"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/DjordjeVuckovic/facetq/internal/storage"
	"github.com/olivere/elastic/v7"
)

// facetResults reads the aggregations rendered by aggregation back into
// facet results, in request order.
func facetResults(q *query.Query, aggs elastic.Aggregations) ([]storage.FacetResult, error) {
	out := make([]storage.FacetResult, 0, len(q.Facets))
	for _, f := range q.Facets {
		fr, err := facetResult(q, f, aggs)
		if err != nil {
			return nil, err
		}
		out = append(out, fr)
	}
	return out, nil
}

func facetResult(q *query.Query, f query.Facet, aggs elastic.Aggregations) (storage.FacetResult, error) {
	fr := storage.FacetResult{Name: f.Name, Kind: f.Kind.String()}
	if f.Kind == facet.KindSubdocument {
		if c, ok := aggs.Children(f.Name); ok && c.DocCount >= int64(max(f.MinCount, 1)) {
			fr.Buckets = []storage.BucketCount{{Key: f.ChildType, Count: c.DocCount}}
		}
		return fr, nil
	}
	name := f.Name
	if f.Child {
		c, ok := aggs.Children(f.Name)
		if !ok {
			return fr, fmt.Errorf("es: missing children aggregation %q", f.Name)
		}
		aggs, name = c.Aggregations, childAgg
	}
	return readFacet(q, f, fr, name, aggs)
}

func readFacet(q *query.Query, f query.Facet, fr storage.FacetResult, name string, aggs elastic.Aggregations) (storage.FacetResult, error) {
	switch f.Kind {
	case facet.KindTerm, facet.KindType:
		t, ok := aggs.Terms(name)
		if !ok {
			return fr, fmt.Errorf("es: missing terms aggregation %q", name)
		}
		fr.Buckets = termBuckets(t)
	case facet.KindNumericRange, facet.KindDateRange, facet.KindInterval:
		fs, ok := aggs.Filters(name)
		if !ok {
			return fr, fmt.Errorf("es: missing filters aggregation %q", name)
		}
		for _, b := range f.Buckets {
			item, ok := fs.NamedBuckets[b.Key]
			if !ok || item.DocCount < int64(f.MinCount) {
				continue
			}
			fr.Buckets = append(fr.Buckets, storage.BucketCount{Key: b.Key, Count: item.DocCount})
		}
	case facet.KindQuery:
		fa, ok := aggs.Filter(name)
		if !ok {
			return fr, fmt.Errorf("es: missing filter aggregation %q", name)
		}
		fr.Count = fa.DocCount
	case facet.KindStats:
		fa, ok := aggs.Filter(name)
		if !ok {
			return fr, fmt.Errorf("es: missing stats aggregation %q", name)
		}
		s, _ := f.Source.(facet.Stats)
		fr.Stats = readStats(s, f.Field, fa.DocCount, fa.Aggregations)
	case facet.KindPivot:
		t, ok := aggs.Terms(name)
		if !ok {
			return fr, fmt.Errorf("es: missing pivot aggregation %q", name)
		}
		buckets, err := pivotBuckets(q, f, f.Pivot, t)
		if err != nil {
			return fr, err
		}
		fr.Buckets = buckets
	}
	return fr, nil
}

func bucketKey(b *elastic.AggregationBucketKeyItem) string {
	if b.KeyAsString != nil {
		return *b.KeyAsString
	}
	return storage.ValueKey(b.Key)
}

func termBuckets(t *elastic.AggregationBucketKeyItems) []storage.BucketCount {
	out := make([]storage.BucketCount, 0, len(t.Buckets))
	for _, b := range t.Buckets {
		out = append(out, storage.BucketCount{Key: bucketKey(b), Count: b.DocCount})
	}
	return out
}

func pivotBuckets(q *query.Query, f query.Facet, fields []string, t *elastic.AggregationBucketKeyItems) ([]storage.BucketCount, error) {
	out := make([]storage.BucketCount, 0, len(t.Buckets))
	for _, b := range t.Buckets {
		bc := storage.BucketCount{Key: bucketKey(b), Count: b.DocCount}
		if len(fields) > 1 {
			if sub, ok := b.Aggregations.Terms(pivotAgg); ok {
				nested, err := pivotBuckets(q, f, fields[1:], sub)
				if err != nil {
					return nil, err
				}
				bc.Pivot = nested
			}
		}
		for _, tag := range f.Tags {
			for _, tf := range q.TaggedFacets(tag) {
				fr, err := readFacet(q, tf, storage.FacetResult{Name: tf.Name, Kind: tf.Kind.String()}, tf.Name, b.Aggregations)
				if err != nil {
					return nil, err
				}
				bc.Facets = append(bc.Facets, fr)
			}
		}
		out = append(out, bc)
	}
	return out, nil
}

// readStats maps metric aggregations to the statistic names used by every
// backend. docCount is the number of documents the stats ran over.
func readStats(s facet.Stats, field string, docCount int64, aggs elastic.Aggregations) map[string]any {
	fl := s.Flags
	out := map[string]any{}
	dates := bucketOf(field) == schema.BucketDate
	format := func(v *float64) any {
		if v == nil {
			return nil
		}
		if dates {
			return time.UnixMilli(int64(*v)).UTC().Format(time.RFC3339Nano)
		}
		return *v
	}

	if ext, ok := aggs.ExtendedStats(statsAgg); ok {
		if fl.Count {
			out["count"] = ext.Count
		}
		if fl.Min {
			out["min"] = format(ext.Min)
		}
		if fl.Max {
			out["max"] = format(ext.Max)
		}
		if fl.Mean {
			out["mean"] = format(ext.Avg)
		}
		if fl.Sum && ext.Sum != nil {
			out["sum"] = *ext.Sum
		}
		if fl.SumOfSquares && ext.SumOfSquares != nil {
			out["sumOfSquares"] = *ext.SumOfSquares
		}
		if fl.Stddev && ext.StdDeviation != nil && !math.IsNaN(*ext.StdDeviation) {
			out["stddev"] = *ext.StdDeviation
		}
	} else if st, ok := aggs.Stats(statsAgg); ok {
		if fl.Count {
			out["count"] = st.Count
		}
		if fl.Min {
			out["min"] = format(st.Min)
		}
		if fl.Max {
			out["max"] = format(st.Max)
		}
		if fl.Mean {
			out["mean"] = format(st.Avg)
		}
	}
	if vc, ok := aggs.ValueCount(countAgg); ok && fl.Count && vc.Value != nil {
		out["count"] = int64(*vc.Value)
	}
	if m, ok := aggs.Missing(missingAgg); ok && fl.Missing {
		out["missing"] = m.DocCount
	}
	if c, ok := aggs.Cardinality(cardinalityAgg); ok && c.Value != nil {
		key := "countDistinct"
		if !fl.CountDistinct {
			key = "cardinality"
		}
		out[key] = int64(*c.Value)
	}
	if t, ok := aggs.Terms(valuesAgg); ok && fl.DistinctValues {
		keys := make([]string, 0, len(t.Buckets))
		for _, b := range t.Buckets {
			keys = append(keys, bucketKey(b))
		}
		sort.Strings(keys)
		out["distinctValues"] = keys
	}
	if p, ok := aggs.Percentiles(percentilesAgg); ok && docCount > 0 {
		pcts := make(map[string]float64, len(p.Values))
		for k, v := range p.Values {
			if f, err := strconv.ParseFloat(k, 64); err == nil {
				k = strconv.FormatFloat(f, 'f', -1, 64)
			}
			pcts[k] = v
		}
		out["percentiles"] = pcts
	}
	return out
}
