package storage

import (
	"context"

	"github.com/DjordjeVuckovic/facetq/internal/query"
	"github.com/DjordjeVuckovic/facetq/pkg/pagination"
)

// RawHit is a matching parent document with its physical fields as returned by
// the backend. Decoding to logical fields happens above this layer.
type RawHit struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
	Score  float64        `json:"score,omitempty"`
}

// BucketCount is one bucket of a facet result. Pivot holds the nested buckets
// of the next pivot field, Facets the tagged facets computed inside a pivot
// bucket.
type BucketCount struct {
	Key    string        `json:"key"`
	Count  int64         `json:"count"`
	Pivot  []BucketCount `json:"pivot,omitempty"`
	Facets []FacetResult `json:"facets,omitempty"`
}

// FacetResult is the outcome of one facet request. Query facets report Count,
// stats facets report Stats, everything else reports Buckets.
type FacetResult struct {
	Name    string         `json:"name"`
	Kind    string         `json:"kind"`
	Buckets []BucketCount  `json:"buckets,omitempty"`
	Count   int64          `json:"count,omitempty"`
	Stats   map[string]any `json:"stats,omitempty"`
}

type SearchResult struct {
	Hits     []RawHit      `json:"hits"`
	Total    int64         `json:"total"`
	MaxScore float64       `json:"max_score,omitempty"`
	Facets   []FacetResult `json:"facets,omitempty"`
}

// Searcher executes serialized queries.
type Searcher interface {
	Search(ctx context.Context, q *query.Query, page pagination.OffsetRequest) (*SearchResult, error)
}

// Renderer produces the backend-native form of a query without executing it.
// The result is JSON-encodable.
type Renderer interface {
	Render(q *query.Query, page pagination.OffsetRequest) (any, error)
}
