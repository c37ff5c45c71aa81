package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/facet"
	"github.com/DjordjeVuckovic/facetq/internal/query"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/DjordjeVuckovic/facetq/internal/storage"
	"github.com/DjordjeVuckovic/facetq/pkg/pagination"
)

// Plan is a query rendered to SQL: the page of hits, the total and one
// statement per facet.
type Plan struct {
	Search storage.Statement `json:"search"`
	Count  storage.Statement `json:"count"`
	Facets []FacetStatement  `json:"facets,omitempty"`
}

type FacetStatement struct {
	storage.Statement
	Name string     `json:"name"`
	Kind facet.Kind `json:"-"`
	// Keys are the bucket keys of range facets, one per result column b0..bN.
	Keys []string `json:"keys,omitempty"`
	// ChildType is the bucket key of subdocument facets.
	ChildType string `json:"child_type,omitempty"`
}

type Renderer struct {
	d   Dialect
	now func() time.Time
}

func NewRenderer(d Dialect, now func() time.Time) *Renderer {
	if now == nil {
		now = time.Now
	}
	return &Renderer{d: d, now: now}
}

func (r *Renderer) Render(q *query.Query, page pagination.OffsetRequest) (any, error) {
	return r.Plan(q, page)
}

func (r *Renderer) Plan(q *query.Query, page pagination.OffsetRequest) (*Plan, error) {
	if q == nil {
		return nil, apperr.NewValidation("sqlstore: query is required")
	}
	page = page.Normalize()
	now := r.now()

	search, err := r.search(q, page, now)
	if err != nil {
		return nil, err
	}
	count, err := r.statement(q, now, func(b *Builder, sql *strings.Builder) error {
		sql.WriteString("SELECT COUNT(*) AS total FROM hits")
		return nil
	})
	if err != nil {
		return nil, err
	}

	plan := &Plan{Search: search, Count: count}
	for _, f := range q.Facets {
		fs, err := r.facet(q, f, now)
		if err != nil {
			return nil, err
		}
		plan.Facets = append(plan.Facets, fs)
	}
	return plan, nil
}

// statement renders the hits CTE followed by the body written by fn.
func (r *Renderer) statement(q *query.Query, now time.Time, fn func(b *Builder, sql *strings.Builder) error) (storage.Statement, error) {
	b := NewBuilder(r.d.Placeholders())
	var sql strings.Builder
	if err := r.hits(b, &sql, q, now); err != nil {
		return storage.Statement{}, err
	}
	if err := fn(b, &sql); err != nil {
		return storage.Statement{}, err
	}
	return storage.Statement{SQL: sql.String(), Args: b.Args()}, nil
}

// hits is the CTE of matching parent documents with their text score.
func (r *Renderer) hits(b *Builder, sql *strings.Builder, q *query.Query, now time.Time) error {
	p := &predicates{d: r.d, b: b, now: now}

	score := "1"
	if q.Text != nil {
		score = r.score(b, q.Text)
	}
	fmt.Fprintf(sql, "WITH hits AS (\n  SELECT m.id, m.doc_type, m.fields, m.score FROM (\n    SELECT d.id, d.doc_type, d.fields, CAST(%s AS DOUBLE PRECISION) AS score\n    FROM %s d\n", score, table)
	fmt.Fprintf(sql, "    WHERE d.parent_id IS NULL AND d.doc_type = %s", b.Arg(q.ParentType))
	if q.Filter != nil {
		cond, err := p.node(q.Filter, "d")
		if err != nil {
			return err
		}
		sql.WriteString(" AND " + cond)
	}
	sql.WriteString("\n  ) m WHERE m.score > 0\n)\n")
	return nil
}

// score adds the boost of a text field for every query word it contains.
func (r *Renderer) score(b *Builder, t *query.Text) string {
	words := strings.Fields(t.Query)
	var parts []string
	for _, f := range t.Fields {
		boost := f.Boost
		if boost <= 0 {
			boost = 1
		}
		for _, w := range words {
			from := r.d.Elements(b, "d", f.Name, "tv")
			cond := r.d.Contains(b, r.d.Text("tv"), w)
			parts = append(parts, fmt.Sprintf("CASE WHEN EXISTS (SELECT 1 FROM %s WHERE %s) THEN %s ELSE 0 END",
				from, cond, strconv.FormatFloat(boost, 'f', -1, 64)))
		}
	}
	if len(parts) == 0 {
		return "0"
	}
	return "(" + strings.Join(parts, " + ") + ")"
}

func (r *Renderer) search(q *query.Query, page pagination.OffsetRequest, now time.Time) (storage.Statement, error) {
	return r.statement(q, now, func(b *Builder, sql *strings.Builder) error {
		sql.WriteString("SELECT h.id, h.fields, h.score FROM hits h\nORDER BY ")
		for _, s := range q.Sort {
			dir := "ASC"
			if s.Desc {
				dir = "DESC"
			}
			from := r.d.Elements(b, "h", s.Field, "sv")
			fmt.Fprintf(sql, "(SELECT %s FROM %s LIMIT 1) %s NULLS LAST, ", r.sortValue(s.Field, "sv"), from, dir)
		}
		if q.Text != nil {
			sql.WriteString("h.score DESC, ")
		}
		fmt.Fprintf(sql, "h.id ASC\nLIMIT %d OFFSET %d", page.Size, page.Offset())
		return nil
	})
}

func (r *Renderer) sortValue(field, v string) string {
	switch {
	case numeric(field):
		return r.d.Number(v)
	case bucketOf(field) == schema.BucketDate:
		return r.d.Time(v)
	default:
		return r.d.Text(v)
	}
}

// domain is the FROM clause of the rows a facet aggregates, aliased x.
func (r *Renderer) domain(b *Builder, f query.Facet) string {
	if !f.Child {
		return "hits x"
	}
	return fmt.Sprintf("hits h JOIN %s x ON x.parent_id = h.id AND x.doc_type = %s", table, b.Arg(f.ChildType))
}

func (r *Renderer) facet(q *query.Query, f query.Facet, now time.Time) (FacetStatement, error) {
	fs := FacetStatement{Name: f.Name, Kind: f.Kind}
	limit := f.Limit
	if limit <= 0 {
		limit = storage.DefaultFacetLimit
	}
	minCount := max(f.MinCount, 1)

	var err error
	switch f.Kind {
	case facet.KindTerm:
		fs.Statement, err = r.statement(q, now, func(b *Builder, sql *strings.Builder) error {
			fmt.Fprintf(sql, "SELECT %s AS k, COUNT(DISTINCT x.id) AS n FROM %s", r.d.Text("v"), r.domain(b, f))
			fmt.Fprintf(sql, " %s %s", r.d.Lateral(), r.d.Elements(b, "x", f.Field, "v"))
			fmt.Fprintf(sql, "\nGROUP BY k HAVING COUNT(DISTINCT x.id) >= %d ORDER BY n DESC, k ASC LIMIT %d", minCount, limit)
			return nil
		})
	case facet.KindType:
		fs.Statement, err = r.statement(q, now, func(b *Builder, sql *strings.Builder) error {
			fmt.Fprintf(sql, "SELECT x.doc_type AS k, COUNT(*) AS n FROM %s", r.domain(b, f))
			fmt.Fprintf(sql, "\nGROUP BY x.doc_type HAVING COUNT(*) >= %d ORDER BY n DESC, k ASC LIMIT %d", minCount, limit)
			return nil
		})
	case facet.KindSubdocument:
		fs.ChildType = f.ChildType
		fs.Statement, err = r.statement(q, now, func(b *Builder, sql *strings.Builder) error {
			fmt.Fprintf(sql, "SELECT COUNT(*) AS n FROM %s", r.domain(b, f))
			return nil
		})
	case facet.KindNumericRange, facet.KindDateRange, facet.KindInterval:
		for _, bk := range f.Buckets {
			fs.Keys = append(fs.Keys, bk.Key)
		}
		fs.Statement, err = r.statement(q, now, func(b *Builder, sql *strings.Builder) error {
			p := &predicates{d: r.d, b: b, now: now}
			cols := make([]string, 0, len(f.Buckets))
			for i, bk := range f.Buckets {
				from := r.d.Elements(b, "x", f.Field, "v")
				cond, err := p.bounds(f.Field, "v", bk.Lower, bk.Upper, bk.IncludeLower, bk.IncludeUpper)
				if err != nil {
					return err
				}
				cols = append(cols, fmt.Sprintf("COALESCE(SUM(CASE WHEN EXISTS (SELECT 1 FROM %s WHERE %s) THEN 1 ELSE 0 END), 0) AS b%d", from, cond, i))
			}
			if len(cols) == 0 {
				cols = append(cols, "0 AS b")
			}
			fmt.Fprintf(sql, "SELECT %s FROM %s", strings.Join(cols, ", "), r.domain(b, f))
			return nil
		})
	case facet.KindQuery:
		fs.Statement, err = r.statement(q, now, func(b *Builder, sql *strings.Builder) error {
			fmt.Fprintf(sql, "SELECT COUNT(*) AS n FROM %s", r.domain(b, f))
			p := &predicates{d: r.d, b: b, now: now}
			cond, err := p.node(f.Filter, "x")
			if err != nil {
				return err
			}
			sql.WriteString(" WHERE " + cond)
			return nil
		})
	case facet.KindStats:
		fs.Statement, err = r.statement(q, now, func(b *Builder, sql *strings.Builder) error {
			fmt.Fprintf(sql, "SELECT x.fields AS fields FROM %s", r.domain(b, f))
			return nil
		})
	default:
		err = apperr.Unsupported("%s: %s facets are not supported", r.d.Backend(), f.Kind)
	}
	return fs, err
}
