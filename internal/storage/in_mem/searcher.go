package in_mem

import (
	"context"
	"sort"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/document"
	"github.com/DjordjeVuckovic/facetq/internal/facet"
	"github.com/DjordjeVuckovic/facetq/internal/query"
	"github.com/DjordjeVuckovic/facetq/internal/storage"
	"github.com/DjordjeVuckovic/facetq/pkg/pagination"
)

type scored struct {
	doc   document.Encoded
	score float64
}

// Render returns the query IR itself, which is what this backend evaluates.
func (s *InMemStorer) Render(q *query.Query, page pagination.OffsetRequest) (any, error) {
	if q == nil {
		return nil, apperr.NewValidation("in_mem: query is required")
	}
	if err := s.Capabilities().Check(q); err != nil {
		return nil, err
	}
	page = page.Normalize()
	return map[string]any{"query": q, "offset": page.Offset(), "size": page.Size}, nil
}

func (s *InMemStorer) Search(ctx context.Context, q *query.Query, page pagination.OffsetRequest) (*storage.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q == nil {
		return nil, apperr.NewValidation("in_mem: query is required")
	}
	if err := s.Capabilities().Check(q); err != nil {
		return nil, err
	}
	page = page.Normalize()

	m := matcher{now: s.now()}
	var hits []scored
	for _, doc := range s.snapshot() {
		if doc.Type != q.ParentType || !m.match(q.Filter, doc) {
			continue
		}
		sc := 1.0
		if q.Text != nil {
			if sc = score(q.Text, doc); sc == 0 {
				continue
			}
		}
		hits = append(hits, scored{doc: doc, score: sc})
	}
	sortHits(hits, q)

	res := &storage.SearchResult{Total: int64(len(hits))}
	for _, h := range hits {
		if h.score > res.MaxScore {
			res.MaxScore = h.score
		}
	}

	docs := make([]document.Encoded, len(hits))
	for i, h := range hits {
		docs[i] = h.doc
	}
	res.Facets = facets(m, q, docs)

	from := min(page.Offset(), len(hits))
	to := min(from+page.Size, len(hits))
	for _, h := range hits[from:to] {
		hit := storage.RawHit{ID: h.doc.ID, Fields: document.WireFields(h.doc.Fields)}
		if q.IncludeScore {
			hit.Score = h.score
		}
		res.Hits = append(res.Hits, hit)
	}
	return res, nil
}

// sortHits orders by the requested sort fields, then by score when a text
// query is present. Documents lacking a sort value go last.
func sortHits(hits []scored, q *query.Query) {
	sort.SliceStable(hits, func(i, j int) bool {
		for _, srt := range q.Sort {
			a, b := first(hits[i].doc, srt.Field), first(hits[j].doc, srt.Field)
			c := compare(a, b)
			if c == 0 {
				continue
			}
			if srt.Desc {
				return c > 0
			}
			return c < 0
		}
		if q.Text != nil {
			return hits[i].score > hits[j].score
		}
		return false
	})
}

func first(doc document.Encoded, field string) any {
	if vs := doc.Fields[field]; len(vs) > 0 {
		return vs[0]
	}
	return nil
}

func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if fa, ok := storage.ToFloat(a); ok {
		if fb, ok := storage.ToFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	ka, kb := storage.ValueKey(a), storage.ValueKey(b)
	switch {
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	}
	return 0
}

func facets(m matcher, q *query.Query, docs []document.Encoded) []storage.FacetResult {
	var out []storage.FacetResult
	for _, f := range q.Facets {
		out = append(out, facetResult(m, q, f, docs))
	}
	return out
}

// domain is what a facet aggregates: the matching parents or their children.
func domain(f query.Facet, docs []document.Encoded) []document.Encoded {
	if !f.Child {
		return docs
	}
	var out []document.Encoded
	for _, d := range docs {
		for _, c := range d.Children {
			if c.Type == f.ChildType {
				out = append(out, c)
			}
		}
	}
	return out
}

func facetResult(m matcher, q *query.Query, f query.Facet, docs []document.Encoded) storage.FacetResult {
	res := storage.FacetResult{Name: f.Name, Kind: f.Kind.String()}
	dom := domain(f, docs)

	switch f.Kind {
	case facet.KindTerm:
		res.Buckets = storage.CountTerms(values(dom, f.Field), f.Limit, f.MinCount)
	case facet.KindType:
		types := make([][]any, len(dom))
		for i, d := range dom {
			types[i] = []any{d.Type}
		}
		res.Buckets = storage.CountTerms(types, f.Limit, f.MinCount)
	case facet.KindSubdocument:
		if n := int64(len(dom)); n >= int64(max(f.MinCount, 1)) {
			res.Buckets = []storage.BucketCount{{Key: f.ChildType, Count: n}}
		}
	case facet.KindNumericRange, facet.KindDateRange, facet.KindInterval:
		res.Buckets = rangeBuckets(f, dom)
	case facet.KindPivot:
		res.Buckets = pivot(m, q, f, f.Pivot, dom)
	case facet.KindQuery:
		for _, d := range dom {
			if m.match(f.Filter, d) {
				res.Count++
			}
		}
	case facet.KindStats:
		if s, ok := f.Source.(facet.Stats); ok {
			res.Stats = storage.ComputeStats(s, values(dom, f.Field))
		}
	}
	return res
}

func values(docs []document.Encoded, field string) [][]any {
	out := make([][]any, len(docs))
	for i, d := range docs {
		out[i] = d.Fields[field]
	}
	return out
}

func rangeBuckets(f query.Facet, docs []document.Encoded) []storage.BucketCount {
	out := make([]storage.BucketCount, 0, len(f.Buckets))
	for _, b := range f.Buckets {
		var n int64
		for _, d := range docs {
			if anyValue(d.Fields[f.Field], func(v any) bool { return storage.InBucket(b, v) }) {
				n++
			}
		}
		if n < int64(f.MinCount) {
			continue
		}
		out = append(out, storage.BucketCount{Key: b.Key, Count: n})
	}
	return out
}

// pivot nests term counts field by field. Tagged facets named by the pivot are
// computed for every bucket over the bucket's documents.
func pivot(m matcher, q *query.Query, f query.Facet, fields []string, docs []document.Encoded) []storage.BucketCount {
	if len(fields) == 0 {
		return nil
	}
	buckets := storage.CountTerms(values(docs, fields[0]), f.Limit, f.MinCount)
	for i := range buckets {
		var sub []document.Encoded
		for _, d := range docs {
			if anyValue(d.Fields[fields[0]], func(v any) bool { return storage.ValueKey(v) == buckets[i].Key }) {
				sub = append(sub, d)
			}
		}
		buckets[i].Pivot = pivot(m, q, f, fields[1:], sub)
		for _, tag := range f.Tags {
			for _, tf := range q.TaggedFacets(tag) {
				buckets[i].Facets = append(buckets[i].Facets, facetResult(m, q, tf, sub))
			}
		}
	}
	return buckets
}
