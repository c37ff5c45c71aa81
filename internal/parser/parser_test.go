package parser_test

import (
	"testing"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/datemath"
	"github.com/DjordjeVuckovic/facetq/internal/filter"
	"github.com/DjordjeVuckovic/facetq/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func term(f, v string) filter.Filter         { return filter.Must(filter.NewTerm(f, v)) }
func and(fs ...filter.Filter) filter.Filter { return filter.Must(filter.NewAnd(fs...)) }
func or(fs ...filter.Filter) filter.Filter  { return filter.Must(filter.NewOr(fs...)) }
func not(f filter.Filter) filter.Filter     { return filter.Must(filter.NewNot(f)) }

func TestParse(t *testing.T) {
	since := filter.Math(datemath.MustParse("NOW-7DAYS/DAY"))
	jan := filter.At(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		input string
		want  filter.Filter
	}{
		{`color:red`, term("color", "red")},
		{`color:"dark red"`, term("color", "dark red")},
		{`color:red AND (size:M OR size:"L")`,
			and(term("color", "red"), or(term("size", "M"), term("size", "L")))},
		{`color:red size:M`, and(term("color", "red"), term("size", "M"))},
		{`a:1 b:2 OR c:3`, or(and(term("a", "1"), term("b", "2")), term("c", "3"))},
		{`NOT brand:acme*`, not(filter.Must(filter.NewPrefix("brand", "acme")))},
		{`size:(M OR L)`, or(term("size", "M"), term("size", "L"))},
		{`price:>10`, filter.Must(filter.NewGreaterThan("price", 10))},
		{`price:<9.5`, filter.Must(filter.NewLowerThan("price", 9.5))},
		{`price:{10 TO *}`, filter.Must(filter.NewGreaterThan("price", 10))},
		{`price:[10 TO 20]`, filter.Must(filter.NewBetweenNumeric("price", 10, 20))},
		{`price:{10 TO 20}`, and(
			filter.Must(filter.NewGreaterThan("price", 10)),
			filter.Must(filter.NewLowerThan("price", 20)),
		)},
		{`released:[NOW-7DAYS/DAY TO *]`, filter.Must(filter.NewAfter("released", since))},
		{`released:[* TO 2024-01-01]`, filter.Must(filter.NewBefore("released", jan))},
		{`released:[2024-01-01T00:00:00Z TO NOW-7DAYS/DAY]`, filter.Must(filter.NewBetweenDates("released", jan, since))},
		{`color:*`, filter.Must(filter.NewNotEmpty("color", filter.PresenceGeneric))},
		{`color:[* TO *]`, filter.Must(filter.NewNotEmpty("color", filter.PresenceGeneric))},
		{`_exists_:color`, filter.Must(filter.NewNotEmpty("color", filter.PresenceGeneric))},
		{`_children_:Product/Review`, filter.Must(filter.NewChildrenDocument("Product", "Review"))},
		{`_children_:Product`, filter.Must(filter.NewChildrenDocument("Product", ""))},
		{`loc:bbox(46,19 45,20)`, filter.Must(filter.NewWithinBBox("loc",
			filter.GeoPoint{Lat: 46, Lon: 19}, filter.GeoPoint{Lat: 45, Lon: 20}))},
		{`loc:circle(45.25,19.84 5km)`, filter.Must(filter.NewWithinCircle("loc",
			filter.GeoPoint{Lat: 45.25, Lon: 19.84}, 5))},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parser.Parse(tt.input)
			require.NoError(t, err)
			assert.True(t, filter.Equal(tt.want, got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestParseStringRoundTrip(t *testing.T) {
	filters := []filter.Filter{
		and(term("color", "say \"hi\""), or(term("size", "M"), not(term("size", "L")))),
		filter.Must(filter.NewBetweenDates("released",
			filter.At(time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)),
			filter.Math(datemath.MustParse("NOW+1MONTHS/MONTH")))),
		filter.Must(filter.NewLowerThan("price", -3)),
		filter.Must(filter.NewWithinCircle("loc", filter.GeoPoint{Lat: 1.5, Lon: 2}, 0.5)),
		not(filter.Must(filter.NewChildrenDocument("Product", "Review"))),
	}
	for _, f := range filters {
		t.Run(f.String(), func(t *testing.T) {
			got, err := parser.Parse(f.String())
			require.NoError(t, err)
			assert.True(t, filter.Equal(f, got), "want %s, got %s", f, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		kind  apperr.Kind
	}{
		{`color:red AND`, apperr.KindParse},
		{`red`, apperr.KindParse},
		{`color:red blue`, apperr.KindParse},
		{`size:(M OR color:red)`, apperr.KindParse},
		{`price:>cheap`, apperr.KindParse},
		{`price:[10 TO *]`, apperr.KindParse},
		{`price:[10 TO 20}`, apperr.KindParse},
		{`released:{NOW TO *}`, apperr.KindParse},
		{`released:[yesterday TO *]`, apperr.KindParse},
		{`price:[20 TO 10]`, apperr.KindInvalidFilter},
		{`loc:bbox(91,0 0,0)`, apperr.KindParse},
		{`loc:circle(1,1 -5km)`, apperr.KindInvalidFilter},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := parser.Parse(tt.input)
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, tt.kind), "got %v", err)
		})
	}
}
