package filter_test

import (
	"math"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/datemath"
	"github.com/DjordjeVuckovic/facetq/internal/filter"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/DjordjeVuckovic/facetq/internal/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func term(field, value string) filter.Filter {
	return filter.Must(filter.NewTerm(field, value))
}

func TestAndFlattening(t *testing.T) {
	a, b, c, d := term("a", "1"), term("b", "2"), term("c", "3"), term("d", "4")

	nested := filter.Must(filter.NewAnd(
		filter.Must(filter.NewAnd(a, b)),
		filter.Must(filter.NewAnd(c, d)),
	))
	flat := filter.Must(filter.NewAnd(a, b, c, d))

	assert.True(t, filter.Equal(nested, flat))
	assert.Len(t, nested.(filter.And).Children(), 4)
	assert.Equal(t, "(a:\"1\" AND b:\"2\" AND c:\"3\" AND d:\"4\")", nested.String())
}

func TestOrIsASet(t *testing.T) {
	a, b := term("size", "M"), term("size", "L")

	ab := filter.Must(filter.NewOr(a, b))
	ba := filter.Must(filter.NewOr(b, a, b))

	assert.True(t, filter.Equal(ab, ba))
	assert.Len(t, ba.(filter.Or).Children(), 2)
	assert.Equal(t, "(size:\"L\" OR size:\"M\")", ba.String())
}

func TestSingleChildCollapses(t *testing.T) {
	a := term("a", "1")
	got := filter.Must(filter.NewAnd(a, a))
	assert.Equal(t, filter.KindTerm, got.Kind())
}

func TestAndDoesNotAbsorbOr(t *testing.T) {
	or := filter.Must(filter.NewOr(term("a", "1"), term("b", "2")))
	and := filter.Must(filter.NewAnd(or, term("c", "3")))

	children := and.(filter.And).Children()
	require.Len(t, children, 2)
	assert.Equal(t, filter.KindOr, children[0].Kind())
}

func TestConstructorErrors(t *testing.T) {
	color := schema.MustField("color", schema.String, schema.Facetable())

	tests := []struct {
		name  string
		build func() (filter.Filter, error)
	}{
		{"empty and", func() (filter.Filter, error) { return filter.NewAnd() }},
		{"nil or child", func() (filter.Filter, error) { return filter.NewOr(term("a", "1"), nil) }},
		{"nil not", func() (filter.Filter, error) { return filter.NewNot(nil) }},
		{"term without field", func() (filter.Filter, error) { return filter.NewTerm(" ", "x") }},
		{"empty prefix", func() (filter.Filter, error) { return filter.NewPrefix("brand", "") }},
		{"terms without descriptor", func() (filter.Filter, error) { return filter.NewTerms(nil, "red") }},
		{"terms without values", func() (filter.Filter, error) { return filter.NewTerms(color) }},
		{"terms with nil value", func() (filter.Filter, error) { return filter.NewTerms(color, "red", nil) }},
		{"equals nil value", func() (filter.Filter, error) { return filter.NewEquals(color, nil) }},
		{"before zero bound", func() (filter.Filter, error) { return filter.NewBefore("date", filter.DateBound{}) }},
		{"dates reversed", func() (filter.Filter, error) {
			return filter.NewBetweenDates("date",
				filter.At(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)),
				filter.At(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
		}},
		{"gt NaN", func() (filter.Filter, error) { return filter.NewGreaterThan("price", math.NaN()) }},
		{"numeric reversed", func() (filter.Filter, error) { return filter.NewBetweenNumeric("price", 10, 1) }},
		{"bbox bad latitude", func() (filter.Filter, error) {
			return filter.NewWithinBBox("loc", filter.GeoPoint{Lat: 91}, filter.GeoPoint{})
		}},
		{"bbox flipped", func() (filter.Filter, error) {
			return filter.NewWithinBBox("loc", filter.GeoPoint{Lat: 10}, filter.GeoPoint{Lat: 20})
		}},
		{"circle zero radius", func() (filter.Filter, error) {
			return filter.NewWithinCircle("loc", filter.GeoPoint{}, 0)
		}},
		{"children without parent", func() (filter.Filter, error) { return filter.NewChildrenDocument("", "Review") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := tt.build()
			require.Error(t, err)
			assert.Nil(t, f)
			assert.True(t, apperr.IsKind(err, apperr.KindInvalidFilter), err.Error())
		})
	}
}

func TestWithScopePushesDown(t *testing.T) {
	explicit := term("a", "1").WithScope(scope.Suggest)
	plain := term("b", "2")

	and := filter.Must(filter.NewAnd(explicit, plain)).WithScope(scope.Filter)
	children := and.(filter.And).Children()

	assert.Equal(t, scope.Filter, and.Scope())
	assert.Equal(t, scope.Suggest, children[0].Scope())
	assert.Equal(t, scope.Filter, children[1].Scope())

	// the original is untouched
	assert.Equal(t, scope.None, plain.Scope())
}

func TestAbsorbingScopedAndKeepsScope(t *testing.T) {
	inner := filter.Must(filter.NewAnd(term("a", "1"), term("b", "2"))).WithScope(scope.Facet)
	outer := filter.Must(filter.NewAnd(inner, term("c", "3")))

	for _, c := range outer.(filter.And).Children() {
		if c.(filter.Term).Field == "c" {
			assert.Equal(t, scope.None, c.Scope())
			continue
		}
		assert.Equal(t, scope.Facet, c.Scope())
	}
}

func TestScopeIsPartOfKey(t *testing.T) {
	a := term("a", "1")
	assert.False(t, filter.Equal(a, a.WithScope(scope.Facet)))
	assert.True(t, filter.Equal(a.WithScope(scope.Facet), a.WithScope(scope.Facet)))
}

func TestCloneIsDeep(t *testing.T) {
	color := schema.MustField("color", schema.String, schema.Facetable())
	terms := filter.Must(filter.NewTerms(color, "red", "blue"))
	tree := filter.Must(filter.NewAnd(terms, filter.Must(filter.NewNot(term("size", "M")))))

	clone := tree.Clone()
	require.True(t, filter.Equal(tree, clone))

	cloned := clone.(filter.And).Children()[0].(filter.Terms)
	cloned.Values[0] = "green"
	assert.Equal(t, "red", terms.(filter.Terms).Values[0])
}

func TestDoubleNegationIsKept(t *testing.T) {
	a := term("a", "1")
	nn := filter.Must(filter.NewNot(filter.Must(filter.NewNot(a))))
	assert.Equal(t, filter.KindNot, nn.Kind())
	assert.Equal(t, "NOT NOT a:\"1\"", nn.String())
}

func TestLeafStrings(t *testing.T) {
	color := schema.MustField("color", schema.String, schema.Facetable())
	rating := schema.MustField("rating", schema.Int, schema.Facetable())

	tests := []struct {
		f    filter.Filter
		want string
	}{
		{filter.Must(filter.NewPrefix("brand", "acm")), "brand:acm*"},
		{filter.Must(filter.NewTerms(color, "red", "blue")), `color:("red" OR "blue")`},
		{filter.Must(filter.NewEquals(rating, 4)), "rating:4"},
		{filter.Must(filter.NewAfter("date", filter.Math(datemath.MustParse("NOW-7DAYS/DAY")))), "date:[NOW-7DAYS/DAY TO *]"},
		{filter.Must(filter.NewBefore("date", filter.At(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))), "date:[* TO 2024-01-02T00:00:00Z]"},
		{filter.Must(filter.NewGreaterThan("rating", 4)), "rating:{4 TO *}"},
		{filter.Must(filter.NewLowerThan("price", 9.5)), "price:{* TO 9.5}"},
		{filter.Must(filter.NewBetweenNumeric("price", 1, 2.25)), "price:[1 TO 2.25]"},
		{filter.Must(filter.NewNotEmpty("title", filter.PresenceText)), "_exists_:title"},
		{filter.Must(filter.NewChildrenDocument("Product", "Review")), "_children_:Product/Review"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.String())
		})
	}
}

func TestFields(t *testing.T) {
	f := filter.Must(filter.NewAnd(
		term("brand", "acme"),
		filter.Must(filter.NewOr(term("size", "M"), filter.Must(filter.NewNot(term("brand", "x"))))),
		filter.Must(filter.NewChildrenDocument("Product", "")),
	))
	assert.Equal(t, []string{"brand", "size"}, filter.Fields(f))
}

func TestParseDateBound(t *testing.T) {
	abs, err := filter.ParseDateBound("2024-01-02")
	require.NoError(t, err)
	assert.False(t, abs.IsMath())
	assert.Equal(t, "2024-01-02T00:00:00Z", abs.String())

	rel, err := filter.ParseDateBound("NOW-1DAY")
	require.NoError(t, err)
	assert.True(t, rel.IsMath())

	_, err = filter.ParseDateBound("tomorrow-ish")
	assert.Error(t, err)
}
