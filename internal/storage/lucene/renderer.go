// Package lucene renders queries as Solr request parameters. Child documents
// are indexed in blocks under their parent and joined with {!parent}; facets
// over children use the JSON facet API with a blockChildren domain.
package lucene

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/facet"
	"github.com/DjordjeVuckovic/facetq/internal/query"
	"github.com/DjordjeVuckovic/facetq/internal/storage"
	"github.com/DjordjeVuckovic/facetq/pkg/pagination"
)

// TypeField holds the document type of every indexed document.
const TypeField = "_type_"

type Renderer struct{}

func NewRenderer() *Renderer { return &Renderer{} }

func (r *Renderer) Capabilities() storage.Capabilities {
	return storage.Capabilities{
		Backend:     storage.Lucene,
		BlockJoin:   true,
		GeoDistance: true,
		Text:        true,
		Facets: []facet.Kind{
			facet.KindTerm, facet.KindType, facet.KindSubdocument, facet.KindNumericRange,
			facet.KindDateRange, facet.KindInterval, facet.KindPivot, facet.KindQuery, facet.KindStats,
		},
		Percentiles: true,
	}
}

func (r *Renderer) Render(q *query.Query, page pagination.OffsetRequest) (any, error) {
	return r.Params(q, page)
}

// Params renders q. Date math is passed through for Solr to resolve.
func (r *Renderer) Params(q *query.Query, page pagination.OffsetRequest) (Params, error) {
	if q == nil {
		return nil, apperr.NewValidation("lucene: query is required")
	}
	if err := r.Capabilities().Check(q); err != nil {
		return nil, err
	}
	page = page.Normalize()

	w := &writer{q: q}
	if err := w.write(page); err != nil {
		return nil, err
	}
	out := append(w.params, w.refs...)
	slog.Debug("Rendered solr params", "params", out.Encode())
	return out, nil
}

type writer struct {
	q      *query.Query
	params Params
	// refs are the dereferenced child queries, appended last.
	refs Params
}

func (w *writer) write(page pagination.OffsetRequest) error {
	q := w.q
	if q.Text != nil && strings.TrimSpace(q.Text.Query) != "" {
		w.params.Add("q", w.text(q.Text))
		w.params.Add("defType", "edismax")
		w.params.Add("qf", w.queryFields(q.Text))
	} else {
		w.params.Add("q", "*:*")
	}

	w.params.Add("fq", TypeField+":"+escape(q.ParentType))
	if q.Filter != nil {
		conjuncts := []query.Node{q.Filter}
		if b, ok := q.Filter.(query.Bool); ok && b.Op == query.OpAnd {
			conjuncts = b.Nodes
		}
		for _, n := range conjuncts {
			s, err := w.node(n)
			if err != nil {
				return err
			}
			w.params.Add("fq", s)
		}
	}

	fl := "*"
	if q.IncludeScore {
		fl = "*,score"
	}
	w.params.Add("fl", fl)
	w.params.Add("sort", w.sort())
	w.params.Add("start", strconv.Itoa(page.Offset()))
	w.params.Add("rows", strconv.Itoa(page.Size))

	return w.facets()
}

func (w *writer) text(t *query.Text) string {
	words := strings.Fields(t.Query)
	for i, word := range words {
		words[i] = escape(word)
	}
	return strings.Join(words, " ")
}

func (w *writer) queryFields(t *query.Text) string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = f.Name
		if f.Boost > 0 && f.Boost != 1 {
			parts[i] += "^" + number(f.Boost)
		}
	}
	return strings.Join(parts, " ")
}

func (w *writer) sort() string {
	var parts []string
	for _, s := range w.q.Sort {
		dir := "asc"
		if s.Desc {
			dir = "desc"
		}
		parts = append(parts, s.Field+" "+dir)
	}
	if w.q.Text != nil {
		parts = append(parts, "score desc")
	}
	return strings.Join(append(parts, "id asc"), ", ")
}

func (w *writer) node(n query.Node) (string, error) {
	switch x := n.(type) {
	case nil, query.MatchAll:
		return "*:*", nil
	case query.Bool:
		parts := make([]string, 0, len(x.Nodes))
		for _, c := range x.Nodes {
			s, err := w.node(c)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "(" + strings.Join(parts, " "+x.Op.String()+" ") + ")", nil
	case query.Not:
		s, err := w.node(x.Node)
		if err != nil {
			return "", err
		}
		return "(*:* -" + s + ")", nil
	case query.Term:
		return x.Field + ":" + value(x.Value), nil
	case query.Terms:
		parts := make([]string, len(x.Values))
		for i, v := range x.Values {
			parts[i] = value(v)
		}
		return x.Field + ":(" + strings.Join(parts, " OR ") + ")", nil
	case query.Prefix:
		return x.Field + ":" + escape(x.Value) + "*", nil
	case query.Range:
		open, closing := "{", "}"
		if x.IncludeLower {
			open = "["
		}
		if x.IncludeUpper {
			closing = "]"
		}
		return fmt.Sprintf("%s:%s%s TO %s%s", x.Field, open, bound(x.Lower), bound(x.Upper), closing), nil
	case query.GeoBox:
		return fmt.Sprintf("%s:[%s,%s TO %s,%s]", x.Field,
			number(x.BottomRight.Lat), number(x.TopLeft.Lon),
			number(x.TopLeft.Lat), number(x.BottomRight.Lon)), nil
	case query.GeoDistance:
		return fmt.Sprintf(`_query_:"{!geofilt sfield=%s pt=%s d=%s}"`, x.Field, x.Center, number(x.RadiusKm)), nil
	case query.Exists:
		return x.Field + ":[* TO *]", nil
	case query.Type:
		return TypeField + ":" + escape(x.Name), nil
	case query.HasChild:
		inner, err := w.node(x.Node)
		if err != nil {
			return "", err
		}
		ref := "cq" + strconv.Itoa(len(w.refs))
		w.refs.Add(ref, fmt.Sprintf("+%s:%s +%s", TypeField, escape(x.ChildType), inner))
		return fmt.Sprintf(`_query_:"{!parent which=%s:%s v=$%s}"`, TypeField, escape(x.ParentType), ref), nil
	}
	return "", fmt.Errorf("lucene: unexpected node %T", n)
}
