package result_test

import (
	"testing"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/document"
	"github.com/DjordjeVuckovic/facetq/internal/filter"
	"github.com/DjordjeVuckovic/facetq/internal/result"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	title    = schema.MustField("title", schema.String, schema.FullText(), schema.Storable(), schema.Sortable())
	color    = schema.MustField("color", schema.String, schema.Facetable(), schema.Contextualized())
	year     = schema.MustField("year", schema.Int, schema.Facetable())
	released = schema.MustField("released", schema.Date, schema.Storable())
	loc      = schema.MustField("loc", schema.GeoPoint, schema.Storable())
	kw       = schema.MustField("keywords", schema.Complex,
		schema.WithProjection(schema.Facet, schema.Projection{Type: schema.String, Fn: func(v any) []any { return []any{v} }}),
	)
	product = schema.MustNew("Product", []*schema.Field{title, color, year, released, loc, kw})
)

func TestDecodeDocument(t *testing.T) {
	d := result.NewDecoder(product, "en")

	doc := d.Document("p1", map[string]any{
		"dynamic_single_stored_string_title":      "fulltext copy",
		"dynamic_single_string_title":             "Trail Shoe",
		"dynamic_single_stored_sort_string_title": "trail shoe",
		"dynamic_single_facet_string_en_color":    []any{"red"},
		"dynamic_single_facet_int_year":           2024.0,
		"dynamic_single_date_released":            "2024-03-14T09:00:00Z",
		"dynamic_single_location_loc":             "45.25,19.84",
		"dynamic_multi_facet_string_keywords":     []any{"a", "b"},
		"_type_":                                  "Product",
		"unrelated":                               1,
	})

	assert.Equal(t, "p1", doc.ID)
	assert.Equal(t, "Product", doc.Type)
	assert.Equal(t, map[string][]any{
		"title":    {"Trail Shoe"},
		"color":    {"red"},
		"year":     {int64(2024)},
		"released": {time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)},
		"loc":      {filter.GeoPoint{Lat: 45.25, Lon: 19.84}},
	}, doc.Values)
}

func TestDecodeRoundTrip(t *testing.T) {
	in := document.Document{
		ID: "p2",
		Values: map[string][]any{
			"title":    {"Road Shoe"},
			"color":    {"blue"},
			"year":     {2023},
			"released": {time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)},
		},
	}
	enc, err := document.NewEncoder(product, "de").Encode(in)
	require.NoError(t, err)

	raw := document.WireFields(enc.Fields)
	out := result.NewDecoder(product, "de").Document(enc.ID, raw)

	assert.Equal(t, map[string][]any{
		"title":    {"Road Shoe"},
		"color":    {"blue"},
		"year":     {int64(2023)},
		"released": {time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)},
	}, out.Values)
}

func TestDecodeSkipsBadValues(t *testing.T) {
	doc := result.NewDecoder(product, "").Document("p3", map[string]any{
		"dynamic_single_facet_int_year": "not a number",
	})
	assert.Empty(t, doc.Values)
}
