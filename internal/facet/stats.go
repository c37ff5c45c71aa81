package facet

import (
	"github.com/DjordjeVuckovic/facetq/internal/schema"
)

// StatsFlags selects the statistics a Stats facet computes.
type StatsFlags struct {
	Min            bool
	Max            bool
	Sum            bool
	Count          bool
	Missing        bool
	SumOfSquares   bool
	Mean           bool
	Stddev         bool
	DistinctValues bool
	CountDistinct  bool
	Cardinality    bool
}

// AllNumeric enables every statistic valid on numeric fields.
func AllNumeric() StatsFlags {
	return StatsFlags{
		Min: true, Max: true, Sum: true, Count: true, Missing: true,
		SumOfSquares: true, Mean: true, Stddev: true, Cardinality: true,
	}
}

func (f StatsFlags) IsZero() bool { return f == StatsFlags{} }

// Names lists the enabled statistics using Solr's local-param names.
func (f StatsFlags) Names() []string {
	var out []string
	for _, s := range []struct {
		on   bool
		name string
	}{
		{f.Min, "min"},
		{f.Max, "max"},
		{f.Sum, "sum"},
		{f.Count, "count"},
		{f.Missing, "missing"},
		{f.SumOfSquares, "sumOfSquares"},
		{f.Mean, "mean"},
		{f.Stddev, "stddev"},
		{f.DistinctValues, "distinctValues"},
		{f.CountDistinct, "countDistinct"},
		{f.Cardinality, "cardinality"},
	} {
		if s.on {
			out = append(out, s.name)
		}
	}
	return out
}

// Stats computes summary statistics over a field.
type Stats struct {
	common
	Field       *schema.Field
	Flags       StatsFlags
	Percentiles []float64
}

// NewStats validates the flags against the field's value domain: arithmetic
// statistics are rejected on strings, and sums and deviations on dates.
func NewStats(name string, field *schema.Field, flags StatsFlags, percentiles []float64, opts ...Option) (Stats, error) {
	c, err := newCommon(KindStats, name, opts)
	if err != nil {
		return Stats{}, err
	}
	if field == nil {
		return Stats{}, invalid(name, "stats facet: field descriptor is required")
	}
	if flags.IsZero() && len(percentiles) == 0 {
		return Stats{}, invalid(name, "stats facet: no statistic selected")
	}

	t, ok := field.EffectiveType(schema.Stored)
	if !ok {
		t, _ = field.EffectiveType(schema.Facet)
	}
	switch {
	case t.IsNumeric():
	case t.IsTemporal():
		if flags.Sum || flags.SumOfSquares || flags.Stddev {
			return Stats{}, invalid(name, "stats facet: sum, sumOfSquares and stddev are not valid on date field %q", field.Name())
		}
	case t == schema.String:
		if flags.Sum || flags.SumOfSquares || flags.Mean || flags.Stddev || len(percentiles) > 0 {
			return Stats{}, invalid(name, "stats facet: only min, max, count, missing and distinct statistics are valid on string field %q", field.Name())
		}
	default:
		if flags.Sum || flags.SumOfSquares || flags.Mean || flags.Stddev || flags.Min || flags.Max || len(percentiles) > 0 {
			return Stats{}, invalid(name, "stats facet: only count, missing and distinct statistics are valid on %s field %q", t, field.Name())
		}
	}

	for _, p := range percentiles {
		if p <= 0 || p > 100 {
			return Stats{}, invalid(name, "stats facet: percentile %v out of (0, 100]", p)
		}
	}
	if t.IsTemporal() && len(percentiles) > 0 {
		return Stats{}, invalid(name, "stats facet: percentiles are not valid on date field %q", field.Name())
	}

	return Stats{common: c, Field: field, Flags: flags, Percentiles: append([]float64(nil), percentiles...)}, nil
}

func (Stats) Kind() Kind { return KindStats }
