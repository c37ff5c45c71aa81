package facet

import (
	"fmt"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/datemath"
	"github.com/DjordjeVuckovic/facetq/internal/filter"
)

// Domain is the value domain of an interval facet. It decides how bounds
// are converted to epoch values.
type Domain int

const (
	DomainNumeric Domain = iota + 1
	DomainDate
	DomainZonedDateTime
	DomainDateMath
)

func (d Domain) String() string {
	switch d {
	case DomainNumeric:
		return "numeric"
	case DomainDate:
		return "date"
	case DomainZonedDateTime:
		return "zoned_datetime"
	case DomainDateMath:
		return "datemath"
	default:
		return "unknown"
	}
}

// accepts reports whether v is a valid bound for the domain. nil is an open bound.
func (d Domain) accepts(v any) bool {
	if v == nil {
		return true
	}
	switch d {
	case DomainNumeric:
		switch v.(type) {
		case int, int64, float64:
			return true
		}
	case DomainDate, DomainZonedDateTime:
		_, ok := v.(time.Time)
		return ok
	case DomainDateMath:
		_, ok := v.(datemath.Expr)
		return ok
	}
	return false
}

// Epoch converts a bound to its epoch value: the number itself for numeric
// intervals, Unix milliseconds for the date domains.
func (d Domain) Epoch(v any, now time.Time) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), d == DomainNumeric
	case int64:
		return float64(x), d == DomainNumeric
	case float64:
		return x, d == DomainNumeric
	case time.Time:
		return float64(x.UnixMilli()), d == DomainDate || d == DomainZonedDateTime
	case datemath.Expr:
		return float64(x.Resolve(now).UnixMilli()), d == DomainDateMath
	}
	return 0, false
}

// Interval is a named slice of a value domain. A nil Start or End is open.
type Interval struct {
	Name         string
	Start        any
	End          any
	IncludeStart bool
	IncludeEnd   bool
}

// Closed builds [start, end].
func Closed(name string, start, end any) Interval {
	return Interval{Name: name, Start: start, End: end, IncludeStart: true, IncludeEnd: true}
}

// HalfOpen builds [start, end).
func HalfOpen(name string, start, end any) Interval {
	return Interval{Name: name, Start: start, End: end, IncludeStart: true}
}

// Contains reports whether the epoch value x falls inside the interval.
func (i Interval) Contains(d Domain, x float64, now time.Time) bool {
	if i.Start != nil {
		lo, _ := d.Epoch(i.Start, now)
		if x < lo || (x == lo && !i.IncludeStart) {
			return false
		}
	}
	if i.End != nil {
		hi, _ := d.Epoch(i.End, now)
		if x > hi || (x == hi && !i.IncludeEnd) {
			return false
		}
	}
	return true
}

// FormatBound renders a bound in Solr syntax; open bounds are "*".
func FormatBound(v any) string {
	switch x := v.(type) {
	case nil:
		return "*"
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case datemath.Expr:
		return x.String()
	default:
		return strings.Trim(filter.FormatValue(x), `"`)
	}
}

func (i Interval) String() string {
	open, closing := "(", ")"
	if i.IncludeStart {
		open = "["
	}
	if i.IncludeEnd {
		closing = "]"
	}
	return fmt.Sprintf("%s%s,%s%s", open, FormatBound(i.Start), FormatBound(i.End), closing)
}

// IntervalFacet counts documents per named interval of a field.
type IntervalFacet struct {
	common
	Field     string
	Domain    Domain
	Intervals []Interval
}

func NewInterval(name, field string, d Domain, intervals []Interval, opts ...Option) (IntervalFacet, error) {
	c, err := newCommon(KindInterval, name, opts)
	if err != nil {
		return IntervalFacet{}, err
	}
	if strings.TrimSpace(field) == "" {
		return IntervalFacet{}, invalid(name, "interval facet: field is required")
	}
	if len(intervals) == 0 {
		return IntervalFacet{}, invalid(name, "interval facet: at least one interval is required")
	}

	seen := map[string]bool{}
	for _, iv := range intervals {
		if iv.Name == "" {
			return IntervalFacet{}, invalid(name, "interval facet: interval name is required")
		}
		if seen[iv.Name] {
			return IntervalFacet{}, invalid(name, "interval facet: interval %q repeated", iv.Name)
		}
		seen[iv.Name] = true
		if !d.accepts(iv.Start) || !d.accepts(iv.End) {
			return IntervalFacet{}, invalid(name, "interval facet: interval %q has bounds outside the %s domain", iv.Name, d)
		}
		if iv.Start != nil && iv.End != nil && d != DomainDateMath {
			lo, _ := d.Epoch(iv.Start, time.Time{})
			hi, _ := d.Epoch(iv.End, time.Time{})
			if lo > hi {
				return IntervalFacet{}, invalid(name, "interval facet: interval %q starts after it ends", iv.Name)
			}
		}
	}
	return IntervalFacet{common: c, Field: field, Domain: d, Intervals: append([]Interval(nil), intervals...)}, nil
}

func (IntervalFacet) Kind() Kind { return KindInterval }
