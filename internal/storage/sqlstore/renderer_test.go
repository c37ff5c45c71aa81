package sqlstore_test

import (
	"testing"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/facet"
	"github.com/DjordjeVuckovic/facetq/internal/query"
	"github.com/DjordjeVuckovic/facetq/internal/storage/sqlstore"
	"github.com/DjordjeVuckovic/facetq/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	brandField = "dynamic_single_facet_string_brand"
	priceField = "dynamic_single_facet_number_price"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestBuilderPlaceholders(t *testing.T) {
	dollar := sqlstore.NewBuilder(sqlstore.PlaceholderDollar)
	assert.Equal(t, "$1", dollar.Arg("a"))
	assert.Equal(t, "$2", dollar.Arg(2))
	assert.Equal(t, []any{"a", 2}, dollar.Args())

	question := sqlstore.NewBuilder(sqlstore.PlaceholderQuestion)
	assert.Equal(t, "?", question.Arg("a"))
	assert.Equal(t, "?", question.Arg("b"))
	assert.Equal(t, []any{"a", "b"}, question.Args())
}

func TestPlanSearchStatement(t *testing.T) {
	q := &query.Query{
		ParentType: "Product",
		Filter:     query.Term{Field: brandField, Value: "acme"},
		Sort:       []query.Sort{{Field: priceField, Desc: true}},
	}

	tests := []struct {
		name     string
		dialect  sqlstore.Dialect
		contains []string
		args     []any
	}{
		{
			name:    "postgres",
			dialect: sqlstore.Postgres{},
			contains: []string{
				"d.doc_type = $1",
				"jsonb_array_elements(COALESCE(d.fields -> $2, '[]'::jsonb)) AS dv(value)",
				"(dv.value #>> '{}') = $3",
				"(sv.value #>> '{}')::double precision",
				"DESC NULLS LAST, h.id ASC\nLIMIT 10 OFFSET 10",
			},
			args: []any{"Product", brandField, "acme", priceField},
		},
		{
			name:    "sqlite",
			dialect: sqlstore.SQLite{},
			contains: []string{
				"d.doc_type = ?",
				"json_each(d.fields, ?) AS dv",
				"dv.value = ?",
				"CAST(sv.value AS REAL)",
				"LIMIT 10 OFFSET 10",
			},
			args: []any{"Product", `$."` + brandField + `"`, "acme", `$."` + priceField + `"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := sqlstore.NewRenderer(tt.dialect, func() time.Time { return now }).
				Plan(q, pagination.OffsetRequest{Page: 2, Size: 10})
			require.NoError(t, err)

			for _, s := range tt.contains {
				assert.Contains(t, plan.Search.SQL, s)
			}
			assert.Equal(t, tt.args, plan.Search.Args)
			assert.Contains(t, plan.Count.SQL, "SELECT COUNT(*) AS total FROM hits")
			assert.Equal(t, tt.args[:3], plan.Count.Args)
		})
	}
}

func TestPlanTextScore(t *testing.T) {
	q := &query.Query{
		ParentType: "Product",
		Text: &query.Text{Query: "trail 50%", Fields: []query.TextField{
			{Name: "dynamic_single_string_title", Boost: 2},
		}},
	}
	plan, err := sqlstore.NewRenderer(sqlstore.Postgres{}, nil).Plan(q, pagination.OffsetRequest{Page: 1, Size: 5})
	require.NoError(t, err)

	assert.Contains(t, plan.Search.SQL, "THEN 2 ELSE 0 END")
	assert.Contains(t, plan.Search.SQL, "h.score DESC, h.id ASC")
	assert.Contains(t, plan.Search.Args, "%trail%")
	assert.Contains(t, plan.Search.Args, `%50\%%`)
}

func TestPlanFacets(t *testing.T) {
	q := &query.Query{
		ParentType: "Product",
		ChildType:  "Review",
		Facets: []query.Facet{
			{Name: "brands", Kind: facet.KindTerm, Field: brandField, Limit: 5, MinCount: 2},
			{Name: "prices", Kind: facet.KindNumericRange, Field: priceField, Buckets: []query.Bucket{
				{Key: "0.0", Lower: 0.0, Upper: 50.0, IncludeLower: true},
				{Key: "50.0", Lower: 50.0, Upper: 100.0, IncludeLower: true},
			}},
			{Name: "reviews", Kind: facet.KindSubdocument, Child: true, ChildType: "Review"},
		},
	}
	plan, err := sqlstore.NewRenderer(sqlstore.SQLite{}, nil).Plan(q, pagination.OffsetRequest{Page: 1, Size: 5})
	require.NoError(t, err)
	require.Len(t, plan.Facets, 3)

	terms := plan.Facets[0]
	assert.Contains(t, terms.SQL, "HAVING COUNT(DISTINCT x.id) >= 2 ORDER BY n DESC, k ASC LIMIT 5")

	ranges := plan.Facets[1]
	assert.Equal(t, []string{"0.0", "50.0"}, ranges.Keys)
	assert.Contains(t, ranges.SQL, "AS b0")
	assert.Contains(t, ranges.SQL, "AS b1")
	assert.Contains(t, ranges.SQL, "CAST(v.value AS REAL) >= ? AND CAST(v.value AS REAL) < ?")

	sub := plan.Facets[2]
	assert.Equal(t, "Review", sub.ChildType)
	assert.Contains(t, sub.SQL, "JOIN documents x ON x.parent_id = h.id AND x.doc_type = ?")
	assert.Equal(t, []any{"Product", "Review"}, sub.Args)
}

func TestPlanErrors(t *testing.T) {
	tests := []struct {
		name    string
		dialect sqlstore.Dialect
		q       *query.Query
		kind    apperr.Kind
	}{
		{
			name:    "pivot",
			dialect: sqlstore.Postgres{},
			q: &query.Query{ParentType: "Product", Facets: []query.Facet{
				{Name: "p", Kind: facet.KindPivot, Pivot: []string{brandField}},
			}},
			kind: apperr.KindUnsupported,
		},
		{
			name:    "distance on sqlite",
			dialect: sqlstore.SQLite{},
			q: &query.Query{ParentType: "Product", Filter: query.GeoDistance{
				Field: "dynamic_single_location_loc", RadiusKm: 5,
			}},
			kind: apperr.KindUnsupported,
		},
		{
			name:    "numeric range on text",
			dialect: sqlstore.Postgres{},
			q: &query.Query{ParentType: "Product", Filter: query.Range{
				Field: brandField, Lower: 1.0, IncludeLower: true,
			}},
			kind: apperr.KindInvalidFilter,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sqlstore.NewRenderer(tt.dialect, nil).Plan(tt.q, pagination.OffsetRequest{Page: 1, Size: 5})
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, tt.kind), "got %v", err)
		})
	}
}
