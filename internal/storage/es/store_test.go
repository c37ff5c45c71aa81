package es_test

import (
	"context"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/document"
	"github.com/DjordjeVuckovic/facetq/internal/facet"
	"github.com/DjordjeVuckovic/facetq/internal/filter"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/DjordjeVuckovic/facetq/internal/serialize"
	"github.com/DjordjeVuckovic/facetq/internal/storage"
	"github.com/DjordjeVuckovic/facetq/internal/storage/es"
	"github.com/DjordjeVuckovic/facetq/pkg/pagination"
	pkgtesting "github.com/DjordjeVuckovic/facetq/pkg/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*es.Store, *schema.Schema) {
	t.Helper()
	if testing.Short() {
		t.Skip("elasticsearch container tests are skipped in short mode")
	}
	ctx := context.Background()
	container := pkgtesting.NewESContainer(ctx, t)

	rating := schema.MustField("rating", schema.Int, schema.Facetable())
	review := schema.MustNew("Review", []*schema.Field{rating})
	product := schema.MustNew("Product", []*schema.Field{
		schema.MustField("brand", schema.String, schema.Facetable()),
		schema.MustField("title", schema.String, schema.FullText(), schema.Storable()),
		schema.MustField("price", schema.Double, schema.Facetable(), schema.Sortable()),
		schema.MustField("loc", schema.GeoPoint, schema.Storable()),
	}, schema.WithChild(review))

	store, err := es.NewStore(ctx, es.ClientConfig{
		Addresses: []string{container.Address},
		IndexName: "facetq_test",
	}, es.WithRelation("Product", "Review"))
	require.NoError(t, err)

	enc := document.NewEncoder(product, "")
	docs := []document.Document{
		{ID: "p1", Values: map[string][]any{
			"brand": {"acme"}, "title": {"Trail runner shoe"}, "price": {49.5},
			"loc": {filter.GeoPoint{Lat: 45.25, Lon: 19.84}},
		}, Children: []document.Document{
			{ID: "r1", Values: map[string][]any{"rating": {5}}},
			{ID: "r2", Values: map[string][]any{"rating": {2}}},
		}},
		{ID: "p2", Values: map[string][]any{
			"brand": {"acme"}, "title": {"Road shoe"}, "price": {120},
			"loc": {filter.GeoPoint{Lat: 44.8, Lon: 20.46}},
		}},
		{ID: "p3", Values: map[string][]any{
			"brand": {"zeta"}, "title": {"Trail jacket"}, "price": {80},
		}},
	}
	var encoded []document.Encoded
	for _, d := range docs {
		e, err := enc.Encode(d)
		require.NoError(t, err)
		encoded = append(encoded, e)
	}
	require.NoError(t, store.SaveBulk(ctx, encoded))
	return store, product
}

func TestStore(t *testing.T) {
	store, product := newStore(t)
	ser, err := serialize.ForSchema(product, serialize.Config{Strict: true, Now: func() time.Time { return now }})
	require.NoError(t, err)

	search := func(t *testing.T, req serialize.Request) *storage.SearchResult {
		t.Helper()
		q, err := ser.Query(req)
		require.NoError(t, err)
		res, err := store.Search(context.Background(), q, pagination.OffsetRequest{Page: 1, Size: 10})
		require.NoError(t, err)
		return res
	}
	ids := func(res *storage.SearchResult) []string {
		var out []string
		for _, h := range res.Hits {
			out = append(out, h.ID)
		}
		return out
	}

	t.Run("filters", func(t *testing.T) {
		tests := []struct {
			name   string
			filter filter.Filter
			want   []string
		}{
			{"match all", nil, []string{"p1", "p2", "p3"}},
			{"term", filter.Must(filter.NewTerm("brand", "acme")), []string{"p1", "p2"}},
			{"numeric range", filter.Must(filter.NewBetweenNumeric("price", 50, 120)), []string{"p2", "p3"}},
			{"circle", filter.Must(filter.NewWithinCircle("loc", filter.GeoPoint{Lat: 45.25, Lon: 19.84}, 10)), []string{"p1"}},
			{"child", filter.Must(filter.NewGreaterThan("rating", 4)), []string{"p1"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				res := search(t, serialize.Request{Filter: tt.filter})
				assert.Equal(t, tt.want, ids(res))
				assert.Equal(t, int64(len(tt.want)), res.Total)
			})
		}
	})

	t.Run("facets", func(t *testing.T) {
		price, _ := product.Field("price")
		res := search(t, serialize.Request{
			Facets: []facet.Facet{
				facet.Must(facet.NewTerm("brands", "brand")),
				facet.Must(facet.NewStats("price_stats", price, facet.StatsFlags{Min: true, Max: true}, nil)),
			},
		})
		require.Len(t, res.Facets, 2)
		assert.Equal(t, []storage.BucketCount{{Key: "acme", Count: 2}, {Key: "zeta", Count: 1}}, res.Facets[0].Buckets)
		assert.Equal(t, 49.5, res.Facets[1].Stats["min"])
		assert.Equal(t, 120.0, res.Facets[1].Stats["max"])
	})

	t.Run("resave replaces children", func(t *testing.T) {
		enc := document.NewEncoder(product, "")
		doc, err := enc.Encode(document.Document{ID: "p1", Values: map[string][]any{"brand": {"acme"}, "price": {49.5}},
			Children: []document.Document{{ID: "r3", Values: map[string][]any{"rating": {1}}}}})
		require.NoError(t, err)
		require.NoError(t, store.Save(context.Background(), doc))

		res := search(t, serialize.Request{Filter: filter.Must(filter.NewGreaterThan("rating", 4))})
		assert.Empty(t, res.Hits)
	})
}
