package document_test

import (
	"strings"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/document"
	"github.com/DjordjeVuckovic/facetq/internal/filter"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(v any) []any {
	var out []any
	for _, w := range strings.Fields(v.(string)) {
		out = append(out, strings.ToLower(w))
	}
	return out
}

var (
	title = schema.MustField("title", schema.String, schema.FullText(), schema.Storable(), schema.Sortable())
	color = schema.MustField("color", schema.String, schema.Facetable(), schema.MultiValued(), schema.Contextualized())
	price = schema.MustField("price", schema.Double, schema.Facetable())
	loc   = schema.MustField("loc", schema.GeoPoint, schema.Storable())
	kw    = schema.MustField("keywords", schema.Complex, schema.Storable(),
		schema.WithProjection(schema.Stored, schema.Projection{Type: schema.String, Fn: func(v any) []any { return []any{v} }}),
		schema.WithProjection(schema.Facet, schema.Projection{Type: schema.String, Fn: words}),
	)
	rating = schema.MustField("rating", schema.Int, schema.Facetable())

	review  = schema.MustNew("Review", []*schema.Field{rating})
	product = schema.MustNew("Product", []*schema.Field{title, color, price, loc, kw}, schema.WithChild(review))
)

func TestEncode(t *testing.T) {
	enc := document.NewEncoder(product, "en")

	out, err := enc.Encode(document.Document{
		ID: "p1",
		Values: map[string][]any{
			"title":    {"Trail Shoe"},
			"color":    {"red", "blue"},
			"price":    {120},
			"loc":      {"45.25,19.84"},
			"keywords": {"Light Waterproof"},
		},
		Children: []document.Document{
			{ID: "r1", Values: map[string][]any{"rating": {5.0}}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "p1", out.ID)
	assert.Equal(t, "Product", out.Type)
	assert.Equal(t, map[string][]any{
		"dynamic_single_stored_string_title":          {"Trail Shoe"},
		"dynamic_single_stored_sort_string_title":     {"Trail Shoe"},
		"dynamic_single_string_title":                 {"Trail Shoe"},
		"dynamic_multi_facet_string_en_color":         {"red", "blue"},
		"dynamic_single_facet_number_price":           {120.0},
		"dynamic_single_location_loc":                 {filter.GeoPoint{Lat: 45.25, Lon: 19.84}},
		"dynamic_single_string_keywords":              {"Light Waterproof"},
		"dynamic_multi_stored_facet_string_keywords":  {"light", "waterproof"},
		"dynamic_single_stored_sort_string_keywords":  {"Light Waterproof"},
	}, out.Fields)

	require.Len(t, out.Children, 1)
	assert.Equal(t, "r1", out.Children[0].ID)
	assert.Equal(t, "Review", out.Children[0].Type)
	assert.Equal(t, "p1", out.Children[0].ParentID)
	assert.Equal(t, map[string][]any{"dynamic_single_facet_int_rating": {int64(5)}}, out.Children[0].Fields)
}

func TestEncodeGeneratesID(t *testing.T) {
	out, err := document.NewEncoder(product, "").Encode(document.Document{Values: map[string][]any{"price": {1.5}}})
	require.NoError(t, err)
	assert.Len(t, out.ID, 36)
}

func TestEncodeErrors(t *testing.T) {
	enc := document.NewEncoder(product, "")

	tests := []struct {
		name string
		doc  document.Document
		kind apperr.Kind
	}{
		{"unknown field", document.Document{Values: map[string][]any{"nope": {"x"}}}, apperr.KindUnknownField},
		{"wrong type", document.Document{Values: map[string][]any{"price": {"cheap"}}}, apperr.KindValidation},
		{"too many values", document.Document{Values: map[string][]any{"title": {"a", "b"}}}, apperr.KindValidation},
		{"type mismatch", document.Document{Type: "Review"}, apperr.KindValidation},
		{"fractional int", document.Document{Children: []document.Document{{Values: map[string][]any{"rating": {4.5}}}}}, apperr.KindValidation},
		{"nested children", document.Document{Children: []document.Document{{Children: []document.Document{{}}}}}, apperr.KindValidation},
		{"bad geo point", document.Document{Values: map[string][]any{"loc": {"91,0"}}}, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := enc.Encode(tt.doc)
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestCoerce(t *testing.T) {
	ts := time.Date(2024, 3, 14, 10, 0, 0, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		typ  schema.ValueType
		in   any
		want any
	}{
		{schema.Int, 3, int64(3)},
		{schema.Long, 3.0, int64(3)},
		{schema.Double, 2, 2.0},
		{schema.Bool, true, true},
		{schema.Date, ts, ts.UTC()},
		{schema.ZonedDateTime, ts, ts},
		{schema.Date, "2024-03-14T09:00:00Z", time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)},
		{schema.GeoPoint, filter.GeoPoint{Lat: 1, Lon: 2}, filter.GeoPoint{Lat: 1, Lon: 2}},
	}
	for _, tt := range tests {
		got, err := document.Coerce(tt.typ, tt.in)
		require.NoError(t, err, "%s %v", tt.typ, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := document.Coerce(schema.String, 1)
	assert.Error(t, err)
}

func TestWireFields(t *testing.T) {
	got := document.WireFields(map[string][]any{
		"d": {time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		"g": {filter.GeoPoint{Lat: 1.5, Lon: -2}},
		"n": {int64(4)},
	})
	assert.Equal(t, map[string]any{
		"d": []any{"2024-01-02T03:04:05Z"},
		"g": []any{"1.5,-2"},
		"n": []any{int64(4)},
	}, got)
}
