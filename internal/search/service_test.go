package search_test

import (
	"context"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/document"
	"github.com/DjordjeVuckovic/facetq/internal/facet"
	"github.com/DjordjeVuckovic/facetq/internal/filter"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/DjordjeVuckovic/facetq/internal/search"
	"github.com/DjordjeVuckovic/facetq/internal/serialize"
	"github.com/DjordjeVuckovic/facetq/internal/storage"
	"github.com/DjordjeVuckovic/facetq/internal/storage/factory"
	"github.com/DjordjeVuckovic/facetq/internal/storage/lucene"
	"github.com/DjordjeVuckovic/facetq/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func productSchema() *schema.Schema {
	review := schema.MustNew("Review", []*schema.Field{
		schema.MustField("rating", schema.Int, schema.Facetable()),
	})
	return schema.MustNew("Product", []*schema.Field{
		schema.MustField("brand", schema.String, schema.Facetable(), schema.Storable()),
		schema.MustField("title", schema.String, schema.FullText(), schema.Storable()),
		schema.MustField("price", schema.Double, schema.Facetable(), schema.Storable(), schema.Sortable()),
	}, schema.WithChild(review))
}

func newService(t *testing.T) *search.Service {
	t.Helper()
	ctx := context.Background()
	backend, err := factory.New(ctx, &factory.StorageConfig{Type: storage.InMem}, nil)
	require.NoError(t, err)

	svc := search.NewService(schema.NewRegistry(productSchema()), backend, search.WithClock(func() time.Time { return now }))
	n, err := svc.Index(ctx, []document.Document{
		{ID: "p1", Values: map[string][]any{"brand": {"acme"}, "title": {"Trail shoe"}, "price": {49.5}},
			Children: []document.Document{{ID: "r1", Values: map[string][]any{"rating": {5}}}}},
		{ID: "p2", Values: map[string][]any{"brand": {"acme"}, "title": {"Road shoe"}, "price": {120}}},
		{ID: "p3", Values: map[string][]any{"brand": {"zeta"}, "title": {"Jacket"}, "price": {80}}},
	}, "")
	require.NoError(t, err)
	require.Equal(t, 3, n)
	return svc
}

func TestSearch(t *testing.T) {
	svc := newService(t)

	res, err := svc.Search(context.Background(), search.Request{
		Request: serialize.Request{
			Filter: filter.Must(filter.NewTerm("brand", "acme")),
			Facets: []facet.Facet{facet.Must(facet.NewTerm("brands", "brand"))},
			Sort:   []serialize.SortField{{Field: "price", Desc: true}},
		},
		Page:   pagination.OffsetRequest{Page: 1, Size: 1},
		Strict: true,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), res.Total)
	assert.True(t, res.HasMore)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "p2", res.Items[0].ID)
	assert.Equal(t, "Product", res.Items[0].Type)
	assert.Equal(t, []any{120.0}, res.Items[0].Values["price"])
	assert.Equal(t, []any{"acme"}, res.Items[0].Values["brand"])

	require.Len(t, res.Facets, 1)
	assert.Equal(t, []storage.BucketCount{{Key: "acme", Count: 2}}, res.Facets[0].Buckets)
}

func TestSearchChildFilter(t *testing.T) {
	svc := newService(t)

	res, err := svc.Search(context.Background(), search.Request{
		Request: serialize.Request{Filter: filter.Must(filter.NewGreaterThan("rating", 4))},
		Strict:  true,
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "p1", res.Items[0].ID)
}

func TestSearchStrictUnknownField(t *testing.T) {
	svc := newService(t)

	_, err := svc.Search(context.Background(), search.Request{
		Request: serialize.Request{Filter: filter.Must(filter.NewTerm("colour", "red"))},
		Strict:  true,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUnknownField))

	res, err := svc.Search(context.Background(), search.Request{
		Request: serialize.Request{Filter: filter.Must(filter.NewTerm("colour", "red"))},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Total)
}

func TestRender(t *testing.T) {
	svc := newService(t)
	req := search.Request{Request: serialize.Request{Filter: filter.Must(filter.NewTerm("brand", "acme"))}}

	out, err := svc.Render(req, storage.Lucene)
	require.NoError(t, err)
	assert.Equal(t, storage.Lucene, out.Backend)
	params, ok := out.Query.(lucene.Params)
	require.True(t, ok)
	assert.Equal(t, "*:*", params.Get("q"))

	out, err = svc.Render(req, "")
	require.NoError(t, err)
	assert.Equal(t, storage.InMem, out.Backend)

	pivot := facet.Must(facet.NewPivot("bp", []*schema.Field{
		schema.MustField("brand", schema.String, schema.Facetable()),
		schema.MustField("price", schema.Double, schema.Facetable()),
	}))
	_, err = svc.Render(search.Request{Request: serialize.Request{Facets: []facet.Facet{pivot}}}, storage.SQLite)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUnsupported))

	_, err = svc.Render(req, "mongo")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestRenderOnlyBackend(t *testing.T) {
	backend, err := factory.New(context.Background(), &factory.StorageConfig{Type: storage.Lucene}, nil)
	require.NoError(t, err)
	svc := search.NewService(schema.NewRegistry(productSchema()), backend)

	_, err = svc.Search(context.Background(), search.Request{})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUnsupported))

	_, err = svc.Index(context.Background(), []document.Document{{ID: "p1"}}, "")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUnsupported))
}
