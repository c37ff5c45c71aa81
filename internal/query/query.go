package query

import (
	"github.com/DjordjeVuckovic/facetq/internal/facet"
)

// TextField is a full-text field and its weight.
type TextField struct {
	Name  string
	Boost float64
}

// Text is a free-text query over the full-text fields.
type Text struct {
	Query  string
	Fields []TextField
}

type Sort struct {
	Field string
	Desc  bool
}

// Bucket is one resolved range of a range or interval facet.
// Bounds are float64, time.Time or nil for an open end.
type Bucket struct {
	Key          string
	Lower        any
	Upper        any
	IncludeLower bool
	IncludeUpper bool
}

// Facet is a facet request with its physical field names resolved.
type Facet struct {
	Name string
	Kind facet.Kind
	// Field is the physical field of term, range, interval and stats facets.
	Field string
	// Pivot holds the physical fields of a pivot facet, in order.
	Pivot []string
	// Child is set when the facet aggregates child documents of ChildType.
	Child     bool
	ChildType string
	Tags      []string
	Limit     int
	MinCount  int
	// Filter is the embedded filter of a query facet.
	Filter  Node
	Buckets []Bucket
	// Source is the facet as requested; renderers read variant details from it.
	Source facet.Facet
}

// Query is a complete backend-neutral search request.
type Query struct {
	ParentType string
	// ChildType is empty for schemas without children.
	ChildType string
	Text      *Text
	// Filter is nil when every document of ParentType matches.
	Filter       Node
	Facets       []Facet
	Sort         []Sort
	Context      string
	IncludeScore bool
}

// FacetByName returns the requested facet with the given name.
func (q *Query) FacetByName(name string) (Facet, bool) {
	for _, f := range q.Facets {
		if f.Name == name {
			return f, true
		}
	}
	return Facet{}, false
}

// TaggedFacets returns the facets participating in tag, excluding pivots.
func (q *Query) TaggedFacets(tag string) []Facet {
	var out []Facet
	for _, f := range q.Facets {
		if f.Kind == facet.KindPivot {
			continue
		}
		for _, t := range f.Tags {
			if t == tag {
				out = append(out, f)
				break
			}
		}
	}
	return out
}
