package dto

import (
	"strings"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/datemath"
	"github.com/DjordjeVuckovic/facetq/internal/facet"
	"github.com/DjordjeVuckovic/facetq/internal/filter"
	"github.com/DjordjeVuckovic/facetq/internal/parser"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/DjordjeVuckovic/facetq/internal/scope"
)

// IntervalRequest is one interval of an interval facet. Open intervals omit
// a bound; Closed includes the end bound, otherwise the interval is [start, end).
type IntervalRequest struct {
	Name   string `json:"name"`
	Start  any    `json:"start,omitempty"`
	End    any    `json:"end,omitempty"`
	Closed bool   `json:"closed,omitempty"`
}

// FacetRequest describes any facet kind; only the fields of Kind are read.
type FacetRequest struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Field    string   `json:"field,omitempty"`
	Scope    string   `json:"scope,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	MinCount int      `json:"min_count,omitempty"`

	// subdocument
	ChildType string `json:"child_type,omitempty"`
	// numeric_range
	Start *float64 `json:"start,omitempty"`
	End   *float64 `json:"end,omitempty"`
	Gap   *float64 `json:"gap,omitempty"`
	// date_range, bounds as RFC3339 or date math
	DateStart string `json:"date_start,omitempty"`
	DateEnd   string `json:"date_end,omitempty"`
	DateGap   string `json:"date_gap,omitempty"`
	// interval
	Domain    string            `json:"domain,omitempty"`
	Intervals []IntervalRequest `json:"intervals,omitempty"`
	// pivot
	Fields []string `json:"fields,omitempty"`
	// query, as a filter expression
	Query string `json:"query,omitempty"`
	// stats
	Stats       []string  `json:"stats,omitempty"`
	Percentiles []float64 `json:"percentiles,omitempty"`
}

func (r FacetRequest) options() ([]facet.Option, error) {
	sc, err := scope.Parse(r.Scope)
	if err != nil {
		return nil, apperr.InvalidFacet("facet %q: %v", r.Name, err)
	}
	opts := []facet.Option{facet.WithLimit(r.Limit), facet.WithMinCount(r.MinCount)}
	if sc != scope.None {
		opts = append(opts, facet.WithScope(sc))
	}
	if len(r.Tags) > 0 {
		opts = append(opts, facet.WithTags(r.Tags...))
	}
	return opts, nil
}

// ToFacet builds the facet. Field descriptors for pivot and stats facets come
// from sc or its child schema.
func (r FacetRequest) ToFacet(sc *schema.Schema) (facet.Facet, error) {
	opts, err := r.options()
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(r.Kind) {
	case "term", "terms":
		return facet.NewTerm(r.Name, r.Field, opts...)
	case "type":
		return facet.NewType(r.Name, opts...)
	case "subdocument":
		return facet.NewSubdocument(r.Name, r.ChildType, opts...)
	case "numeric_range":
		if r.Start == nil || r.End == nil || r.Gap == nil {
			return nil, apperr.InvalidFacet("facet %q: numeric_range needs start, end and gap", r.Name)
		}
		return facet.NewNumericRange(r.Name, r.Field, *r.Start, *r.End, *r.Gap, opts...)
	case "date_range":
		start, err := filter.ParseDateBound(r.DateStart)
		if err != nil {
			return nil, apperr.InvalidFacet("facet %q: start: %v", r.Name, err)
		}
		end, err := filter.ParseDateBound(r.DateEnd)
		if err != nil {
			return nil, apperr.InvalidFacet("facet %q: end: %v", r.Name, err)
		}
		gap, err := datemath.ParseGap(r.DateGap)
		if err != nil {
			return nil, apperr.InvalidFacet("facet %q: gap: %v", r.Name, err)
		}
		return facet.NewDateRange(r.Name, r.Field, start, end, gap, opts...)
	case "interval":
		return r.interval(opts)
	case "pivot":
		fields := make([]*schema.Field, 0, len(r.Fields))
		for _, name := range r.Fields {
			f, err := lookup(sc, name)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}
		return facet.NewPivot(r.Name, fields, opts...)
	case "query":
		f, err := parser.Parse(r.Query)
		if err != nil {
			return nil, err
		}
		return facet.NewQuery(r.Name, f, opts...)
	case "stats":
		f, err := lookup(sc, r.Field)
		if err != nil {
			return nil, err
		}
		flags, err := statsFlags(r.Name, r.Stats)
		if err != nil {
			return nil, err
		}
		return facet.NewStats(r.Name, f, flags, r.Percentiles, opts...)
	}
	return nil, apperr.InvalidFacet("facet %q: unknown kind %q", r.Name, r.Kind)
}

func (r FacetRequest) interval(opts []facet.Option) (facet.Facet, error) {
	var d facet.Domain
	switch strings.ToLower(r.Domain) {
	case "", "numeric":
		d = facet.DomainNumeric
	case "date":
		d = facet.DomainDate
	case "zoned_datetime":
		d = facet.DomainZonedDateTime
	case "datemath":
		d = facet.DomainDateMath
	default:
		return nil, apperr.InvalidFacet("facet %q: unknown interval domain %q", r.Name, r.Domain)
	}

	intervals := make([]facet.Interval, 0, len(r.Intervals))
	for _, iv := range r.Intervals {
		start, err := intervalBound(d, iv.Start)
		if err != nil {
			return nil, apperr.InvalidFacet("facet %q: interval %q: %v", r.Name, iv.Name, err)
		}
		end, err := intervalBound(d, iv.End)
		if err != nil {
			return nil, apperr.InvalidFacet("facet %q: interval %q: %v", r.Name, iv.Name, err)
		}
		if iv.Closed {
			intervals = append(intervals, facet.Closed(iv.Name, start, end))
		} else {
			intervals = append(intervals, facet.HalfOpen(iv.Name, start, end))
		}
	}
	return facet.NewInterval(r.Name, r.Field, d, intervals, opts...)
}

// intervalBound converts a JSON bound to the domain's Go type. Type
// mismatches are left for the facet constructor to reject.
func intervalBound(d facet.Domain, v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	switch d {
	case facet.DomainDate, facet.DomainZonedDateTime:
		return time.Parse(time.RFC3339, s)
	case facet.DomainDateMath:
		return datemath.Parse(s)
	}
	return v, nil
}

func statsFlags(name string, stats []string) (facet.StatsFlags, error) {
	var fl facet.StatsFlags
	for _, s := range stats {
		switch s {
		case "min":
			fl.Min = true
		case "max":
			fl.Max = true
		case "sum":
			fl.Sum = true
		case "count":
			fl.Count = true
		case "missing":
			fl.Missing = true
		case "sumOfSquares":
			fl.SumOfSquares = true
		case "mean":
			fl.Mean = true
		case "stddev":
			fl.Stddev = true
		case "distinctValues":
			fl.DistinctValues = true
		case "countDistinct":
			fl.CountDistinct = true
		case "cardinality":
			fl.Cardinality = true
		case "all":
			fl = facet.AllNumeric()
		default:
			return fl, apperr.InvalidFacet("facet %q: unknown statistic %q", name, s)
		}
	}
	return fl, nil
}

func lookup(sc *schema.Schema, name string) (*schema.Field, error) {
	if f, ok := sc.Field(name); ok {
		return f, nil
	}
	if child := sc.Child(); child != nil {
		if f, ok := child.Field(name); ok {
			return f, nil
		}
	}
	return nil, apperr.UnknownField(name, sc.Type())
}
