package facet

import (
	"math"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/datemath"
	"github.com/DjordjeVuckovic/facetq/internal/filter"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
)

// Term counts documents per distinct value of a field.
type Term struct {
	common
	Field string
}

func NewTerm(name, field string, opts ...Option) (Term, error) {
	c, err := newCommon(KindTerm, name, opts)
	if err != nil {
		return Term{}, err
	}
	if strings.TrimSpace(field) == "" {
		return Term{}, invalid(name, "term facet: field is required")
	}
	return Term{common: c, Field: field}, nil
}

// NewTermFor builds a term facet named after the descriptor.
func NewTermFor(f *schema.Field, opts ...Option) (Term, error) {
	if f == nil {
		return Term{}, invalid("", "term facet: field descriptor is required")
	}
	return NewTerm(f.Name(), f.Name(), opts...)
}

func (Term) Kind() Kind { return KindTerm }

// Type counts documents per document type.
type Type struct {
	common
}

func NewType(name string, opts ...Option) (Type, error) {
	c, err := newCommon(KindType, name, opts)
	if err != nil {
		return Type{}, err
	}
	return Type{common: c}, nil
}

func (Type) Kind() Kind { return KindType }

// Subdocument counts the child documents of ChildType within matching parents.
type Subdocument struct {
	common
	ChildType string
}

func NewSubdocument(name, childType string, opts ...Option) (Subdocument, error) {
	c, err := newCommon(KindSubdocument, name, opts)
	if err != nil {
		return Subdocument{}, err
	}
	if strings.TrimSpace(childType) == "" {
		return Subdocument{}, invalid(name, "subdocument facet: child type is required")
	}
	return Subdocument{common: c, ChildType: childType}, nil
}

func (Subdocument) Kind() Kind { return KindSubdocument }

// NumericRange buckets a numeric field into [Start, End) slices of Gap.
type NumericRange struct {
	common
	Field string
	Start float64
	End   float64
	Gap   float64
}

// maxBuckets bounds the number of generated range buckets.
const maxBuckets = 1000

func NewNumericRange(name, field string, start, end, gap float64, opts ...Option) (NumericRange, error) {
	c, err := newCommon(KindNumericRange, name, opts)
	if err != nil {
		return NumericRange{}, err
	}
	switch {
	case strings.TrimSpace(field) == "":
		return NumericRange{}, invalid(name, "numeric range facet: field is required")
	case math.IsNaN(start) || math.IsNaN(end) || math.IsNaN(gap):
		return NumericRange{}, invalid(name, "numeric range facet: NaN bound")
	case start >= end:
		return NumericRange{}, invalid(name, "numeric range facet: start must be lower than end")
	case gap <= 0:
		return NumericRange{}, invalid(name, "numeric range facet: gap must be positive")
	case (end-start)/gap > maxBuckets:
		return NumericRange{}, invalid(name, "numeric range facet: more than %d buckets", maxBuckets)
	}
	return NumericRange{common: c, Field: field, Start: start, End: end, Gap: gap}, nil
}

func (NumericRange) Kind() Kind { return KindNumericRange }

// Buckets lists the [from, to) bounds; the last bucket is clipped at End.
func (r NumericRange) Buckets() [][2]float64 {
	var out [][2]float64
	for from := r.Start; from < r.End; from += r.Gap {
		out = append(out, [2]float64{from, math.Min(from+r.Gap, r.End)})
	}
	return out
}

// DateVariant is the date representation a DateRange facet works on.
type DateVariant int

const (
	VariantDate DateVariant = iota + 1
	VariantZonedDateTime
	VariantDateMath
)

func (v DateVariant) String() string {
	switch v {
	case VariantDate:
		return "date"
	case VariantZonedDateTime:
		return "zoned_datetime"
	case VariantDateMath:
		return "datemath"
	default:
		return "unknown"
	}
}

// DateRange buckets a date field into slices of a fixed gap.
// The gap is kept in milliseconds regardless of how it was given.
type DateRange struct {
	common
	Field     string
	Variant   DateVariant
	Start     filter.DateBound
	End       filter.DateBound
	GapMillis int64
	// Location is the zone of a zoned-datetime range, UTC otherwise.
	Location *time.Location
}

func NewDateRange(name, field string, start, end filter.DateBound, gap datemath.Gap, opts ...Option) (DateRange, error) {
	variant := VariantDate
	if start.IsMath() || end.IsMath() {
		variant = VariantDateMath
	}
	return newDateRange(name, field, variant, start, end, gap, time.UTC, opts)
}

// NewZonedDateRange keeps the zone of start for bucket rendering.
func NewZonedDateRange(name, field string, start, end time.Time, gap datemath.Gap, opts ...Option) (DateRange, error) {
	return newDateRange(name, field, VariantZonedDateTime, filter.At(start), filter.At(end), gap, start.Location(), opts)
}

func newDateRange(name, field string, v DateVariant, start, end filter.DateBound, gap datemath.Gap, loc *time.Location, opts []Option) (DateRange, error) {
	c, err := newCommon(KindDateRange, name, opts)
	if err != nil {
		return DateRange{}, err
	}
	if strings.TrimSpace(field) == "" {
		return DateRange{}, invalid(name, "date range facet: field is required")
	}
	if start.IsZero() || end.IsZero() {
		return DateRange{}, invalid(name, "date range facet: start and end are required")
	}
	if err := gap.Validate(); err != nil {
		return DateRange{}, invalid(name, "date range facet: %v", err)
	}
	if v != VariantDateMath {
		s, e := start.Time(time.Time{}), end.Time(time.Time{})
		if !s.Before(e) {
			return DateRange{}, invalid(name, "date range facet: start must be before end")
		}
		if e.Sub(s).Milliseconds()/gap.Millis() > maxBuckets {
			return DateRange{}, invalid(name, "date range facet: more than %d buckets", maxBuckets)
		}
	}
	if loc == nil {
		loc = time.UTC
	}
	return DateRange{
		common:    c,
		Field:     field,
		Variant:   v,
		Start:     start,
		End:       end,
		GapMillis: gap.Millis(),
		Location:  loc,
	}, nil
}

func (DateRange) Kind() Kind { return KindDateRange }

// Gap returns the canonical gap expressed in the largest exact unit.
func (r DateRange) Gap() datemath.Gap { return datemath.GapFromMillis(r.GapMillis) }

// Buckets resolves the range against now and lists the [from, to) bounds.
// Date-math bounds are only known at this point, so a range resolving to
// more than the bucket limit fails here rather than at construction.
func (r DateRange) Buckets(now time.Time) ([][2]time.Time, error) {
	start, end := r.Start.Time(now), r.End.Time(now)
	if r.GapMillis <= 0 {
		return nil, invalid(r.Name(), "date range facet: gap must be positive")
	}
	if end.Sub(start).Milliseconds()/r.GapMillis > maxBuckets {
		return nil, invalid(r.Name(), "date range facet: more than %d buckets", maxBuckets)
	}
	step := time.Duration(r.GapMillis) * time.Millisecond
	var out [][2]time.Time
	for from := start; from.Before(end); from = from.Add(step) {
		to := from.Add(step)
		if to.After(end) {
			to = end
		}
		out = append(out, [2]time.Time{from.In(r.Location), to.In(r.Location)})
	}
	return out, nil
}

// Pivot counts documents per combination of values of Fields, in order.
type Pivot struct {
	common
	Fields []*schema.Field
}

func NewPivot(name string, fields []*schema.Field, opts ...Option) (Pivot, error) {
	c, err := newCommon(KindPivot, name, opts)
	if err != nil {
		return Pivot{}, err
	}
	if len(fields) < 2 {
		return Pivot{}, invalid(name, "pivot facet: at least two fields are required")
	}
	seen := map[string]bool{}
	for _, f := range fields {
		if f == nil {
			return Pivot{}, invalid(name, "pivot facet: nil field descriptor")
		}
		if seen[f.Name()] {
			return Pivot{}, invalid(name, "pivot facet: field %q repeated", f.Name())
		}
		seen[f.Name()] = true
	}
	return Pivot{common: c, Fields: append([]*schema.Field(nil), fields...)}, nil
}

func (Pivot) Kind() Kind { return KindPivot }

// FieldNames returns the pivot fields' names in order.
func (p Pivot) FieldNames() []string {
	out := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		out[i] = f.Name()
	}
	return out
}

// Query counts the documents matching an embedded filter.
type Query struct {
	common
	Filter filter.Filter
}

func NewQuery(name string, f filter.Filter, opts ...Option) (Query, error) {
	c, err := newCommon(KindQuery, name, opts)
	if err != nil {
		return Query{}, err
	}
	if f == nil {
		return Query{}, invalid(name, "query facet: filter is required")
	}
	return Query{common: c, Filter: f.Clone()}, nil
}

func (Query) Kind() Kind { return KindQuery }
