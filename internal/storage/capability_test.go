package storage_test

import (
	"testing"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/facet"
	"github.com/DjordjeVuckovic/facetq/internal/filter"
	"github.com/DjordjeVuckovic/facetq/internal/query"
	"github.com/DjordjeVuckovic/facetq/internal/storage"
	"github.com/stretchr/testify/assert"
)

func TestCapabilitiesCheck(t *testing.T) {
	caps := storage.Capabilities{
		Backend: storage.SQLite,
		Text:    true,
		Facets:  []facet.Kind{facet.KindTerm, facet.KindQuery},
	}

	hasChild := query.HasChild{ParentType: "Product", ChildType: "Review", Node: query.MatchAll{}}
	circle := query.GeoDistance{Field: "loc", Center: filter.GeoPoint{Lat: 1, Lon: 1}, RadiusKm: 5}

	tests := []struct {
		name    string
		q       *query.Query
		wantErr bool
	}{
		{"nil query", nil, false},
		{"plain filter", &query.Query{Filter: query.Term{Field: "f", Value: "x"}}, false},
		{"nested block join", &query.Query{Filter: query.Or(query.Term{Field: "f", Value: "x"}, hasChild)}, true},
		{"distance", &query.Query{Filter: query.Not{Node: circle}}, true},
		{"supported facet", &query.Query{Facets: []query.Facet{{Name: "t", Kind: facet.KindTerm}}}, false},
		{"unsupported facet", &query.Query{Facets: []query.Facet{{Name: "p", Kind: facet.KindPivot}}}, true},
		{"child facet", &query.Query{Facets: []query.Facet{{Name: "t", Kind: facet.KindTerm, Child: true}}}, true},
		{"query facet with block join", &query.Query{Facets: []query.Facet{{Name: "q", Kind: facet.KindQuery, Filter: hasChild}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := caps.Check(tt.q)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperr.IsKind(err, apperr.KindUnsupported), "got %v", err)
		})
	}
}

func TestParseType(t *testing.T) {
	got, err := storage.ParseType("sqlite")
	assert.NoError(t, err)
	assert.Equal(t, storage.SQLite, got)

	_, err = storage.ParseType("mongo")
	assert.Error(t, err)
}
