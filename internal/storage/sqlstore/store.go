// Package sqlstore keeps documents in a single SQL table with their physical
// fields as JSON and evaluates queries with correlated EXISTS subqueries.
// Child documents reference their parent through parent_id.
package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/document"
	"github.com/DjordjeVuckovic/facetq/internal/facet"
	"github.com/DjordjeVuckovic/facetq/internal/query"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/DjordjeVuckovic/facetq/internal/storage"
	"github.com/DjordjeVuckovic/facetq/pkg/pagination"
)

// Store implements storage.Storer, storage.Searcher and storage.Renderer on
// top of a dialect and the backend's executor and statement runner.
type Store struct {
	d        Dialect
	exec     storage.Querier
	runner   storage.StatementRunner
	renderer *Renderer
	opts     *storage.ExecOptions
}

type Option func(s *Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.renderer.now = now }
}

func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.opts = &storage.ExecOptions{Timeout: d} }
}

func NewStore(d Dialect, exec storage.Querier, runner storage.StatementRunner, opts ...Option) *Store {
	s := &Store{d: d, exec: exec, runner: runner, renderer: NewRenderer(d, nil)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Capabilities() storage.Capabilities {
	_, geo := s.d.Distance(NewBuilder(s.d.Placeholders()), "v", 0, 0)
	return storage.Capabilities{
		Backend:     s.d.Backend(),
		BlockJoin:   true,
		GeoDistance: geo,
		Text:        true,
		Facets: []facet.Kind{
			facet.KindTerm, facet.KindType, facet.KindSubdocument, facet.KindNumericRange,
			facet.KindDateRange, facet.KindInterval, facet.KindQuery, facet.KindStats,
		},
		Percentiles: true,
	}
}

func (s *Store) Render(q *query.Query, page pagination.OffsetRequest) (any, error) {
	if err := s.Capabilities().Check(q); err != nil {
		return nil, err
	}
	return s.renderer.Render(q, page)
}

func (s *Store) Save(ctx context.Context, doc document.Encoded) error {
	return s.SaveBulk(ctx, []document.Encoded{doc})
}

// SaveBulk upserts parents and replaces their children in one transaction.
func (s *Store) SaveBulk(ctx context.Context, docs []document.Encoded) error {
	var stmts []storage.Statement
	for _, doc := range docs {
		st, err := s.upserts(doc)
		if err != nil {
			return err
		}
		stmts = append(stmts, st...)
	}
	if err := s.runner.Run(ctx, stmts); err != nil {
		slog.Error("Failed to save documents", "backend", s.d.Backend(), "documents", len(docs), "error", err)
		return fmt.Errorf("failed to save documents: %w", err)
	}
	slog.Debug("Saved documents", "backend", s.d.Backend(), "documents", len(docs))
	return nil
}

func (s *Store) upserts(doc document.Encoded) ([]storage.Statement, error) {
	b := NewBuilder(s.d.Placeholders())
	stmts := []storage.Statement{{
		SQL:  fmt.Sprintf("DELETE FROM %s WHERE parent_id = %s", table, b.Arg(doc.ID)),
		Args: b.Args(),
	}}

	for _, d := range append([]document.Encoded{doc}, doc.Children...) {
		fields, err := json.Marshal(document.WireFields(d.Fields))
		if err != nil {
			return nil, fmt.Errorf("failed to encode fields of document %s: %w", d.ID, err)
		}
		b := NewBuilder(s.d.Placeholders())
		sql := s.d.Upsert(b, d.ID, d.Type, d.ParentID, string(fields))
		stmts = append(stmts, storage.Statement{SQL: sql, Args: b.Args()})
	}
	return stmts, nil
}

func (s *Store) Search(ctx context.Context, q *query.Query, page pagination.OffsetRequest) (*storage.SearchResult, error) {
	if err := s.Capabilities().Check(q); err != nil {
		return nil, err
	}
	page = page.Normalize()
	plan, err := s.renderer.Plan(q, page)
	if err != nil {
		return nil, err
	}

	rows, err := s.run(ctx, plan.Search)
	if err != nil {
		return nil, err
	}
	res := &storage.SearchResult{}
	for _, row := range rows {
		fields, err := decodeFields(row["fields"])
		if err != nil {
			return nil, err
		}
		hit := storage.RawHit{ID: fmt.Sprint(row["id"]), Fields: fields}
		sc, _ := storage.ToFloat(row["score"])
		if q.IncludeScore {
			hit.Score = sc
		}
		res.MaxScore = max(res.MaxScore, sc)
		res.Hits = append(res.Hits, hit)
	}

	rows, err = s.run(ctx, plan.Count)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		res.Total = toInt64(rows[0]["total"])
	}

	for i, fs := range plan.Facets {
		fr, err := s.facet(ctx, q.Facets[i], fs)
		if err != nil {
			return nil, err
		}
		res.Facets = append(res.Facets, fr)
	}
	return res, nil
}

func (s *Store) run(ctx context.Context, st storage.Statement) ([]map[string]any, error) {
	slog.Debug("Executing statement", "backend", s.d.Backend(), "sql", st.SQL, "args", len(st.Args))
	rows, err := s.exec.Query(ctx, st, s.opts)
	if err != nil {
		slog.Error("Statement failed", "backend", s.d.Backend(), "error", err)
		return nil, fmt.Errorf("%s: query failed: %w", s.d.Backend(), err)
	}
	return rows, nil
}

func (s *Store) facet(ctx context.Context, f query.Facet, fs FacetStatement) (storage.FacetResult, error) {
	fr := storage.FacetResult{Name: f.Name, Kind: f.Kind.String()}
	rows, err := s.run(ctx, fs.Statement)
	if err != nil {
		return fr, err
	}

	switch f.Kind {
	case facet.KindTerm, facet.KindType:
		for _, row := range rows {
			fr.Buckets = append(fr.Buckets, storage.BucketCount{Key: storage.ValueKey(row["k"]), Count: toInt64(row["n"])})
		}
	case facet.KindSubdocument:
		if n := firstInt(rows, "n"); n >= int64(max(f.MinCount, 1)) {
			fr.Buckets = []storage.BucketCount{{Key: fs.ChildType, Count: n}}
		}
	case facet.KindNumericRange, facet.KindDateRange, facet.KindInterval:
		for i, key := range fs.Keys {
			n := firstInt(rows, fmt.Sprintf("b%d", i))
			if n < int64(f.MinCount) {
				continue
			}
			fr.Buckets = append(fr.Buckets, storage.BucketCount{Key: key, Count: n})
		}
	case facet.KindQuery:
		fr.Count = firstInt(rows, "n")
	case facet.KindStats:
		perDoc := make([][]any, 0, len(rows))
		for _, row := range rows {
			fields, err := decodeFields(row["fields"])
			if err != nil {
				return fr, err
			}
			perDoc = append(perDoc, typed(f.Field, fields[f.Field]))
		}
		if st, ok := f.Source.(facet.Stats); ok {
			fr.Stats = storage.ComputeStats(st, perDoc)
		}
	}
	return fr, nil
}

// decodeFields accepts the JSON column as decoded by the driver or as text.
func decodeFields(v any) (map[string]any, error) {
	var raw []byte
	switch x := v.(type) {
	case map[string]any:
		return x, nil
	case nil:
		return map[string]any{}, nil
	case string:
		raw = []byte(x)
	case []byte:
		raw = x
	default:
		return nil, fmt.Errorf("unexpected fields column type %T", v)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode fields: %w", err)
	}
	return out, nil
}

// typed turns wire values of a date field back into instants.
func typed(field string, v any) []any {
	values, _ := v.([]any)
	if bucketOf(field) != schema.BucketDate {
		return values
	}
	out := make([]any, 0, len(values))
	for _, x := range values {
		if t, ok := storage.ToTime(x); ok {
			out = append(out, t)
		}
	}
	return out
}

func firstInt(rows []map[string]any, col string) int64 {
	if len(rows) == 0 {
		return 0
	}
	return toInt64(rows[0][col])
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case float64:
		return int64(x)
	}
	return 0
}

var (
	_ storage.Storer   = (*Store)(nil)
	_ storage.Searcher = (*Store)(nil)
	_ storage.Renderer = (*Store)(nil)
)
