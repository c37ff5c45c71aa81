// Package dto holds the JSON shapes of the HTTP API.
package dto

import (
	"github.com/DjordjeVuckovic/facetq/internal/document"
	"github.com/DjordjeVuckovic/facetq/internal/parser"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/DjordjeVuckovic/facetq/internal/search"
	"github.com/DjordjeVuckovic/facetq/internal/serialize"
	"github.com/DjordjeVuckovic/facetq/internal/storage"
	"github.com/DjordjeVuckovic/facetq/pkg/pagination"
)

type SortRequest struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc,omitempty"`
}

// SearchRequest is the body of /v1/search and /v1/render. Filter is an
// expression such as `brand:acme AND price:[10 TO 20]`.
type SearchRequest struct {
	Text         string         `json:"text,omitempty"`
	Filter       string         `json:"filter,omitempty"`
	Facets       []FacetRequest `json:"facets,omitempty"`
	Sort         []SortRequest  `json:"sort,omitempty"`
	Page         int            `json:"page,omitempty"`
	Size         int            `json:"size,omitempty"`
	Context      string         `json:"context,omitempty"`
	Strict       bool           `json:"strict,omitempty"`
	IncludeScore bool           `json:"include_score,omitempty"`
	// Backend selects the render target of /v1/render. Empty means the
	// configured backend.
	Backend string `json:"backend,omitempty"`
}

// ToSearch builds the service request. Facet fields are looked up in sc and
// its child schema.
func (r SearchRequest) ToSearch(sc *schema.Schema) (search.Request, error) {
	req := search.Request{
		Request: serialize.Request{Text: r.Text},
		Page:    pagination.OffsetRequest{Page: r.Page, Size: r.Size},
		Context: r.Context,
		Strict:  r.Strict,

		IncludeScore: r.IncludeScore,
	}
	if r.Filter != "" {
		f, err := parser.Parse(r.Filter)
		if err != nil {
			return search.Request{}, err
		}
		req.Filter = f
	}
	for _, fr := range r.Facets {
		f, err := fr.ToFacet(sc)
		if err != nil {
			return search.Request{}, err
		}
		req.Facets = append(req.Facets, f)
	}
	for _, s := range r.Sort {
		req.Sort = append(req.Sort, serialize.SortField{Field: s.Field, Desc: s.Desc})
	}
	return req, nil
}

func (r SearchRequest) BackendType() (storage.Type, error) {
	if r.Backend == "" {
		return "", nil
	}
	return storage.ParseType(r.Backend)
}

type IndexRequest struct {
	Documents []document.Document `json:"documents"`
	Context   string              `json:"context,omitempty"`
}

type IndexResponse struct {
	Indexed int `json:"indexed"`
}
