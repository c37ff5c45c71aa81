package lucene

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/facet"
	"github.com/DjordjeVuckovic/facetq/internal/query"
)

func (w *writer) facets() error {
	var classic, stats bool
	for _, f := range w.q.Facets {
		switch {
		case f.Child:
		case f.Kind == facet.KindStats:
			stats = true
		default:
			classic = true
		}
	}
	if classic {
		w.params.Add("facet", "true")
	}
	if stats {
		w.params.Add("stats", "true")
	}

	children := map[string]any{}
	for _, f := range w.q.Facets {
		if f.Child {
			spec, err := w.childFacet(f)
			if err != nil {
				return err
			}
			children[f.Name] = spec
			continue
		}
		if err := w.facet(f); err != nil {
			return err
		}
	}
	if len(children) > 0 {
		raw, err := json.Marshal(children)
		if err != nil {
			return fmt.Errorf("lucene: encode json.facet: %w", err)
		}
		w.params.Add("json.facet", string(raw))
	}
	return nil
}

func positive(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func (w *writer) facet(f query.Facet) error {
	tags := strings.Join(f.Tags, ",")
	switch x := f.Source.(type) {
	case facet.Term:
		w.params.Add("facet.field", localParams("key", f.Name,
			"facet.limit", positive(f.Limit), "facet.mincount", positive(f.MinCount))+f.Field)
	case facet.Type:
		w.params.Add("facet.field", localParams("key", f.Name,
			"facet.limit", positive(f.Limit), "facet.mincount", positive(f.MinCount))+TypeField)
	case facet.NumericRange:
		w.params.Add("facet.range", localParams("key", f.Name, "tag", tags,
			"facet.range.start", number(x.Start), "facet.range.end", number(x.End),
			"facet.range.gap", number(x.Gap), "facet.mincount", positive(f.MinCount))+f.Field)
	case facet.DateRange:
		w.params.Add("facet.range", localParams("key", f.Name, "tag", tags,
			"facet.range.start", x.Start.String(), "facet.range.end", x.End.String(),
			"facet.range.gap", x.Gap().String(), "facet.mincount", positive(f.MinCount))+f.Field)
	case facet.IntervalFacet:
		w.params.Add("facet.interval", localParams("key", f.Name)+f.Field)
		for _, iv := range x.Intervals {
			w.params.Add("f."+f.Field+".facet.interval.set", localParams("key", iv.Name)+iv.String())
		}
	case facet.Query:
		s, err := w.node(f.Filter)
		if err != nil {
			return err
		}
		w.params.Add("facet.query", localParams("key", f.Name, "tag", tags)+s)
	case facet.Pivot:
		refs := w.pivotRefs(f)
		w.params.Add("facet.pivot", localParams("key", f.Name,
			"stats", refs[facet.KindStats], "query", refs[facet.KindQuery], "range", refs[facet.KindNumericRange],
			"facet.limit", positive(f.Limit), "facet.pivot.mincount", positive(f.MinCount))+strings.Join(f.Pivot, ","))
	case facet.Stats:
		kv := []string{"key", f.Name, "tag", tags}
		for _, name := range x.Flags.Names() {
			kv = append(kv, name, "true")
		}
		if len(x.Percentiles) > 0 {
			kv = append(kv, "percentiles", percentiles(x.Percentiles))
		}
		w.params.Add("stats.field", localParams(kv...)+f.Field)
	default:
		return apperr.Unsupported("lucene: %s facets are not supported", f.Kind)
	}
	return nil
}

// pivotRefs groups the pivot's tags by the kind of facet they name. Date
// ranges share Solr's range tag list.
func (w *writer) pivotRefs(f query.Facet) map[facet.Kind]string {
	lists := map[facet.Kind][]string{}
	for _, tag := range f.Tags {
		seen := map[facet.Kind]bool{}
		for _, tf := range w.q.TaggedFacets(tag) {
			k := tf.Kind
			if k == facet.KindDateRange {
				k = facet.KindNumericRange
			}
			if seen[k] {
				continue
			}
			seen[k] = true
			lists[k] = append(lists[k], tag)
		}
	}
	out := map[facet.Kind]string{}
	for k, l := range lists {
		out[k] = strings.Join(l, ",")
	}
	return out
}

func percentiles(ps []float64) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = number(p)
	}
	return strings.Join(parts, ",")
}

func (w *writer) domain(f query.Facet) map[string]any {
	return map[string]any{
		"blockChildren": TypeField + ":" + escape(w.q.ParentType),
		"filter":        TypeField + ":" + escape(f.ChildType),
	}
}

// childFacet renders a JSON facet over the children of the matched parents.
func (w *writer) childFacet(f query.Facet) (map[string]any, error) {
	spec := map[string]any{"domain": w.domain(f)}
	limits := func(m map[string]any) map[string]any {
		if f.Limit > 0 {
			m["limit"] = f.Limit
		}
		if f.MinCount > 0 {
			m["mincount"] = f.MinCount
		}
		return m
	}

	switch x := f.Source.(type) {
	case facet.Term:
		spec["type"] = "terms"
		spec["field"] = f.Field
		limits(spec)
	case facet.Type:
		spec["type"] = "terms"
		spec["field"] = TypeField
		limits(spec)
	case facet.Subdocument:
		spec["type"] = "query"
		spec["q"] = "*:*"
	case facet.NumericRange:
		spec["type"] = "range"
		spec["field"] = f.Field
		spec["start"] = x.Start
		spec["end"] = x.End
		spec["gap"] = x.Gap
	case facet.DateRange:
		spec["type"] = "range"
		spec["field"] = f.Field
		spec["start"] = x.Start.String()
		spec["end"] = x.End.String()
		spec["gap"] = x.Gap().String()
	case facet.IntervalFacet:
		ranges := make([]map[string]any, len(x.Intervals))
		for i, iv := range x.Intervals {
			ranges[i] = map[string]any{"range": iv.String()}
		}
		spec["type"] = "range"
		spec["field"] = f.Field
		spec["ranges"] = ranges
	case facet.Pivot:
		var nested map[string]any
		for i := len(f.Pivot) - 1; i >= 0; i-- {
			level := limits(map[string]any{"type": "terms", "field": f.Pivot[i]})
			if nested != nil {
				level["facet"] = map[string]any{f.Pivot[i+1]: nested}
			}
			nested = level
		}
		nested["domain"] = spec["domain"]
		return nested, nil
	case facet.Stats:
		fns, err := statFunctions(x, f.Field)
		if err != nil {
			return nil, err
		}
		spec["type"] = "query"
		spec["q"] = "*:*"
		spec["facet"] = fns
	default:
		return nil, apperr.Unsupported("lucene: %s facets over child documents are not supported", f.Kind)
	}
	return spec, nil
}

var statFuncs = map[string]string{
	"min":           "min",
	"max":           "max",
	"sum":           "sum",
	"count":         "countvals",
	"missing":       "missing",
	"sumOfSquares":  "sumsq",
	"mean":          "avg",
	"stddev":        "stddev",
	"countDistinct": "unique",
	"cardinality":   "hll",
}

func statFunctions(s facet.Stats, field string) (map[string]any, error) {
	out := map[string]any{}
	for _, name := range s.Flags.Names() {
		fn, ok := statFuncs[name]
		if !ok {
			return nil, apperr.Unsupported("lucene: %s over child documents is not supported", name)
		}
		out[name] = fmt.Sprintf("%s(%s)", fn, field)
	}
	if len(s.Percentiles) > 0 {
		out["percentiles"] = fmt.Sprintf("percentile(%s,%s)", field, percentiles(s.Percentiles))
	}
	return out, nil
}
