package lucene_test

import (
	"testing"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/datemath"
	"github.com/DjordjeVuckovic/facetq/internal/facet"
	"github.com/DjordjeVuckovic/facetq/internal/filter"
	"github.com/DjordjeVuckovic/facetq/internal/query"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/DjordjeVuckovic/facetq/internal/storage/lucene"
	"github.com/DjordjeVuckovic/facetq/pkg/pagination"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	brand    = "dynamic_single_facet_string_brand"
	color    = "dynamic_multi_facet_string_color"
	price    = "dynamic_single_facet_number_price"
	released = "dynamic_single_facet_date_released"
	loc      = "dynamic_single_location_loc"
	title    = "dynamic_single_string_title"
	rating   = "dynamic_single_facet_int_rating"
	author   = "dynamic_single_facet_string_author"
)

var (
	brandField  = schema.MustField("brand", schema.String, schema.Facetable())
	colorField  = schema.MustField("color", schema.String, schema.Facetable(), schema.MultiValued())
	priceField  = schema.MustField("price", schema.Double, schema.Facetable())
	ratingField = schema.MustField("rating", schema.Int, schema.Facetable())
)

func assertGolden(t *testing.T, name string, p lucene.Params) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(p.String()))
}

func TestRenderFlatFilters(t *testing.T) {
	q := &query.Query{
		ParentType: "Product",
		Filter: query.And(
			query.Term{Field: brand, Value: "acme"},
			query.Or(
				query.Prefix{Field: brand, Value: "ze"},
				query.Not{Node: query.Exists{Field: released}},
			),
			query.Range{Field: price, Lower: 10.0, Upper: 20.0, IncludeLower: true, IncludeUpper: true},
			query.Range{Field: released, Lower: filter.Math(datemath.MustParse("NOW-7DAYS/DAY")), IncludeLower: true},
			query.GeoBox{Field: loc, TopLeft: filter.GeoPoint{Lat: 46, Lon: 19}, BottomRight: filter.GeoPoint{Lat: 45, Lon: 20}},
		),
		Sort: []query.Sort{{Field: price, Desc: true}},
	}

	p, err := lucene.NewRenderer().Params(q, pagination.OffsetRequest{Page: 2, Size: 10})
	require.NoError(t, err)
	assertGolden(t, "flat_filters", p)
}

func TestRenderBlockJoinAndFacets(t *testing.T) {
	colors := facet.Must(facet.NewTerm("colors", "color", facet.WithLimit(5)))
	prices := facet.Must(facet.NewNumericRange("prices", "price", 0, 100, 50, facet.WithTags("t")))
	sizes := facet.Must(facet.NewInterval("sizes", "price", facet.DomainNumeric, []facet.Interval{
		facet.HalfOpen("cheap", nil, 50.0),
		facet.Closed("mid", 50.0, 100.0),
	}))
	acme := facet.Must(facet.NewQuery("acme", filter.Must(filter.NewTerm("brand", "acme"))))
	pivot := facet.Must(facet.NewPivot("brand_color", []*schema.Field{brandField, colorField}, facet.WithTags("t")))
	priceStats := facet.Must(facet.NewStats("price_stats", priceField, facet.StatsFlags{Min: true, Max: true}, []float64{50, 99.5}, facet.WithTags("t")))
	reviews := facet.Must(facet.NewSubdocument("reviews", "Review"))
	authors := facet.Must(facet.NewTerm("authors", "author", facet.WithMinCount(2)))
	ratingStats := facet.Must(facet.NewStats("rating_stats", ratingField, facet.StatsFlags{Mean: true}, nil))

	q := &query.Query{
		ParentType: "Product",
		ChildType:  "Review",
		Text: &query.Text{Query: "trail shoe", Fields: []query.TextField{
			{Name: title, Boost: 2},
			{Name: "dynamic_single_string_brand", Boost: 1},
		}},
		Filter: query.HasChild{ParentType: "Product", ChildType: "Review", Node: query.Range{Field: rating, Lower: 4.0}},
		Facets: []query.Facet{
			{Name: "colors", Kind: facet.KindTerm, Field: color, Limit: 5, Source: colors},
			{Name: "prices", Kind: facet.KindNumericRange, Field: price, Tags: []string{"t"}, Source: prices},
			{Name: "sizes", Kind: facet.KindInterval, Field: price, Source: sizes},
			{Name: "acme", Kind: facet.KindQuery, Filter: query.Term{Field: brand, Value: "acme"}, Source: acme},
			{Name: "brand_color", Kind: facet.KindPivot, Pivot: []string{brand, color}, Tags: []string{"t"}, Source: pivot},
			{Name: "price_stats", Kind: facet.KindStats, Field: price, Tags: []string{"t"}, Source: priceStats},
			{Name: "reviews", Kind: facet.KindSubdocument, Child: true, ChildType: "Review", Source: reviews},
			{Name: "authors", Kind: facet.KindTerm, Field: author, Child: true, ChildType: "Review", MinCount: 2, Source: authors},
			{Name: "rating_stats", Kind: facet.KindStats, Field: rating, Child: true, ChildType: "Review", Source: ratingStats},
		},
		IncludeScore: true,
	}

	p, err := lucene.NewRenderer().Params(q, pagination.OffsetRequest{Page: 1, Size: 20})
	require.NoError(t, err)
	assertGolden(t, "block_join_facets", p)

	assert.Equal(t, "+_type_:Review +"+rating+":{4 TO *}", p.Get("cq0"))
	assert.Len(t, p.All("fq"), 2)
}

func TestRenderErrors(t *testing.T) {
	_, err := lucene.NewRenderer().Params(nil, pagination.OffsetRequest{})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	distinct := facet.Must(facet.NewStats("authors", schema.MustField("author", schema.String, schema.Facetable()),
		facet.StatsFlags{DistinctValues: true}, nil))
	_, err = lucene.NewRenderer().Params(&query.Query{
		ParentType: "Product",
		ChildType:  "Review",
		Facets: []query.Facet{
			{Name: "authors", Kind: facet.KindStats, Field: author, Child: true, ChildType: "Review", Source: distinct},
		},
	}, pagination.OffsetRequest{})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUnsupported))
}

func TestParamsEncode(t *testing.T) {
	var p lucene.Params
	p.Add("q", "*:*")
	p.Add("fq", `brand:"a b"`)
	p.Add("fq", "_type_:Product")

	assert.Equal(t, "q=%2A%3A%2A&fq=brand%3A%22a+b%22&fq=_type_%3AProduct", p.Encode())
	assert.Equal(t, []string{`brand:"a b"`, "_type_:Product"}, p.All("fq"))
	assert.Equal(t, "", p.Get("rows"))
}
