package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/document"
	"github.com/DjordjeVuckovic/facetq/internal/facet"
	"github.com/DjordjeVuckovic/facetq/internal/filter"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/DjordjeVuckovic/facetq/internal/serialize"
	"github.com/DjordjeVuckovic/facetq/internal/storage"
	"github.com/DjordjeVuckovic/facetq/internal/storage/sqlite"
	"github.com/DjordjeVuckovic/facetq/internal/storage/sqlstore"
	"github.com/DjordjeVuckovic/facetq/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	rating = schema.MustField("rating", schema.Int, schema.Facetable())
	author = schema.MustField("author", schema.String, schema.Facetable())
	review = schema.MustNew("Review", []*schema.Field{rating, author})

	brand    = schema.MustField("brand", schema.String, schema.Facetable())
	color    = schema.MustField("color", schema.String, schema.Facetable(), schema.MultiValued())
	title    = schema.MustField("title", schema.String, schema.FullText(), schema.Storable(), schema.Sortable())
	price    = schema.MustField("price", schema.Double, schema.Facetable(), schema.Sortable())
	released = schema.MustField("released", schema.Date, schema.Facetable())
	loc      = schema.MustField("loc", schema.GeoPoint, schema.Storable())
	product  = schema.MustNew("Product", []*schema.Field{brand, color, title, price, released, loc}, schema.WithChild(review))
)

func setup(t *testing.T) *sqlstore.Store {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, sqlite.Config{Path: filepath.Join(t.TempDir(), "facetq.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.True(t, db.Healthy(ctx))

	store := sqlite.NewStore(db, sqlstore.WithClock(func() time.Time { return now }))

	enc := document.NewEncoder(product, "")
	docs := []document.Document{
		{ID: "p1", Values: map[string][]any{
			"brand": {"acme"}, "color": {"red", "blue"}, "title": {"Trail runner shoe"},
			"price": {49.5}, "released": {time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)},
			"loc": {filter.GeoPoint{Lat: 45.25, Lon: 19.84}},
		}, Children: []document.Document{
			{ID: "r1", Values: map[string][]any{"rating": {5}, "author": {"ann"}}},
			{ID: "r2", Values: map[string][]any{"rating": {2}, "author": {"bob"}}},
		}},
		{ID: "p2", Values: map[string][]any{
			"brand": {"acme"}, "color": {"red"}, "title": {"Road shoe"},
			"price": {120}, "released": {time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)},
			"loc": {filter.GeoPoint{Lat: 44.8, Lon: 20.46}},
		}, Children: []document.Document{
			{ID: "r3", Values: map[string][]any{"rating": {4}, "author": {"bob"}}},
		}},
		{ID: "p3", Values: map[string][]any{
			"brand": {"zeta"}, "color": {"green"}, "title": {"Trail jacket"},
			"price": {80},
		}},
	}
	var encoded []document.Encoded
	for _, d := range docs {
		e, err := enc.Encode(d)
		require.NoError(t, err)
		encoded = append(encoded, e)
	}
	require.NoError(t, store.SaveBulk(ctx, encoded))
	return store
}

func search(t *testing.T, s *sqlstore.Store, req serialize.Request, page pagination.OffsetRequest) *storage.SearchResult {
	t.Helper()
	ser, err := serialize.ForSchema(product, serialize.Config{Strict: true, Now: func() time.Time { return now }})
	require.NoError(t, err)
	q, err := ser.Query(req)
	require.NoError(t, err)
	res, err := s.Search(context.Background(), q, page)
	require.NoError(t, err)
	return res
}

func ids(res *storage.SearchResult) []string {
	var out []string
	for _, h := range res.Hits {
		out = append(out, h.ID)
	}
	return out
}

func f(fl filter.Filter, err error) filter.Filter { return filter.Must(fl, err) }

func TestSearchFilters(t *testing.T) {
	s := setup(t)
	lastMonth := filter.At(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name   string
		filter filter.Filter
		want   []string
	}{
		{"match all", nil, []string{"p1", "p2", "p3"}},
		{"term", f(filter.NewTerm("brand", "acme")), []string{"p1", "p2"}},
		{"multi-valued term", f(filter.NewTerm("color", "blue")), []string{"p1"}},
		{"not", f(filter.NewNot(f(filter.NewTerm("brand", "acme")))), []string{"p3"}},
		{"prefix", f(filter.NewPrefix("brand", "ze")), []string{"p3"}},
		{"numeric range", f(filter.NewBetweenNumeric("price", 50, 120)), []string{"p2", "p3"}},
		{"greater than is exclusive", f(filter.NewGreaterThan("price", 80)), []string{"p2"}},
		{"date after", f(filter.NewAfter("released", lastMonth)), []string{"p1"}},
		{"exists", f(filter.NewNotEmpty("released", filter.PresenceGeneric)), []string{"p1", "p2"}},
		{"missing", f(filter.NewNot(f(filter.NewNotEmpty("released", filter.PresenceGeneric)))), []string{"p3"}},
		{"bbox", f(filter.NewWithinBBox("loc",
			filter.GeoPoint{Lat: 46, Lon: 19}, filter.GeoPoint{Lat: 45, Lon: 20})), []string{"p1"}},
		{"child term", f(filter.NewTerm("author", "bob")), []string{"p1", "p2"}},
		{"child conjunction matches one child", f(filter.NewAnd(
			f(filter.NewTerm("author", "bob")),
			f(filter.NewGreaterThan("rating", 3)),
		)), []string{"p2"}},
		{"parent and child", f(filter.NewAnd(
			f(filter.NewTerm("color", "blue")),
			f(filter.NewTerm("author", "bob")),
		)), []string{"p1"}},
		{"has children", f(filter.NewChildrenDocument("Product", "Review")), []string{"p1", "p2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := search(t, s, serialize.Request{Filter: tt.filter}, pagination.OffsetRequest{})
			assert.Equal(t, tt.want, ids(res))
			assert.Equal(t, int64(len(tt.want)), res.Total)
		})
	}
}

func TestSearchTextSortAndPaging(t *testing.T) {
	s := setup(t)

	res := search(t, s, serialize.Request{Text: "TRAIL"}, pagination.OffsetRequest{})
	assert.Equal(t, []string{"p1", "p3"}, ids(res))

	res = search(t, s, serialize.Request{
		Sort: []serialize.SortField{{Field: "price", Desc: true}},
	}, pagination.OffsetRequest{Page: 1, Size: 2})
	assert.Equal(t, []string{"p2", "p3"}, ids(res))
	assert.Equal(t, int64(3), res.Total)

	res = search(t, s, serialize.Request{
		Sort: []serialize.SortField{{Field: "price", Desc: true}},
	}, pagination.OffsetRequest{Page: 2, Size: 2})
	assert.Equal(t, []string{"p1"}, ids(res))
}

func TestSearchFacets(t *testing.T) {
	s := setup(t)

	res := search(t, s, serialize.Request{Facets: []facet.Facet{
		facet.Must(facet.NewTerm("colors", "color")),
		facet.Must(facet.NewType("types")),
		facet.Must(facet.NewSubdocument("reviews", "Review")),
		facet.Must(facet.NewNumericRange("prices", "price", 0, 150, 50)),
		facet.Must(facet.NewTerm("authors", "author")),
		facet.Must(facet.NewQuery("acme", f(filter.NewTerm("brand", "acme")))),
		facet.Must(facet.NewStats("rating_stats", rating, facet.StatsFlags{Min: true, Max: true, Count: true}, nil)),
	}}, pagination.OffsetRequest{})

	byName := map[string]storage.FacetResult{}
	for _, fr := range res.Facets {
		byName[fr.Name] = fr
	}

	assert.Equal(t, []storage.BucketCount{
		{Key: "red", Count: 2}, {Key: "blue", Count: 1}, {Key: "green", Count: 1},
	}, byName["colors"].Buckets)
	assert.Equal(t, []storage.BucketCount{{Key: "Product", Count: 3}}, byName["types"].Buckets)
	assert.Equal(t, []storage.BucketCount{{Key: "Review", Count: 3}}, byName["reviews"].Buckets)
	assert.Equal(t, []storage.BucketCount{
		{Key: "0", Count: 1}, {Key: "50", Count: 1}, {Key: "100", Count: 1},
	}, byName["prices"].Buckets)
	assert.Equal(t, []storage.BucketCount{
		{Key: "bob", Count: 2}, {Key: "ann", Count: 1},
	}, byName["authors"].Buckets)
	assert.Equal(t, int64(2), byName["acme"].Count)
	assert.Equal(t, map[string]any{"min": 2.0, "max": 5.0, "count": int64(3)}, byName["rating_stats"].Stats)
}

func TestSaveReplacesChildren(t *testing.T) {
	s := setup(t)
	enc, err := document.NewEncoder(product, "").Encode(document.Document{
		ID: "p1", Values: map[string][]any{"brand": {"acme"}},
		Children: []document.Document{{ID: "r9", Values: map[string][]any{"author": {"cid"}}}},
	})
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), enc))

	res := search(t, s, serialize.Request{Filter: f(filter.NewTerm("author", "bob"))}, pagination.OffsetRequest{})
	assert.Equal(t, []string{"p2"}, ids(res))
	res = search(t, s, serialize.Request{Filter: f(filter.NewTerm("author", "cid"))}, pagination.OffsetRequest{})
	assert.Equal(t, []string{"p1"}, ids(res))
}

func TestSearchRejectsUnsupported(t *testing.T) {
	s := setup(t)
	ser, err := serialize.ForSchema(product, serialize.Config{Strict: true})
	require.NoError(t, err)

	q, err := ser.Query(serialize.Request{
		Filter: f(filter.NewWithinCircle("loc", filter.GeoPoint{Lat: 45, Lon: 20}, 10)),
	})
	require.NoError(t, err)
	_, err = s.Search(context.Background(), q, pagination.OffsetRequest{})
	assert.True(t, apperr.IsKind(err, apperr.KindUnsupported))

	q, err = ser.Query(serialize.Request{Facets: []facet.Facet{
		facet.Must(facet.NewPivot("p", []*schema.Field{brand, color})),
	}})
	require.NoError(t, err)
	_, err = s.Search(context.Background(), q, pagination.OffsetRequest{})
	assert.True(t, apperr.IsKind(err, apperr.KindUnsupported))
}
