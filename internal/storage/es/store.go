package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/document"
	"github.com/DjordjeVuckovic/facetq/internal/query"
	"github.com/DjordjeVuckovic/facetq/internal/storage"
	"github.com/DjordjeVuckovic/facetq/pkg/pagination"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/olivere/elastic/v7"
)

type Option func(s *Store)

// WithRelation declares the child types of a parent type. Relations are fixed
// when the index is created.
func WithRelation(parent string, children ...string) Option {
	return func(s *Store) {
		s.relations[parent] = append(s.relations[parent], children...)
	}
}

// WithRefresh sets the refresh policy of writes: "true", "false" or "wait_for".
func WithRefresh(policy string) Option {
	return func(s *Store) { s.refresh = policy }
}

// Store indexes documents and their children in one index, joined through
// JoinField, and runs rendered searches against it.
type Store struct {
	client    *elasticsearch.TypedClient
	index     string
	renderer  *Renderer
	relations map[string][]string
	refresh   string
}

func NewStore(ctx context.Context, config ClientConfig, opts ...Option) (*Store, error) {
	client, err := NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	s := &Store{
		client:    client,
		index:     config.IndexName,
		renderer:  NewRenderer(),
		relations: map[string][]string{},
		refresh:   "wait_for",
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}
	return s, nil
}

func (s *Store) Capabilities() storage.Capabilities { return s.renderer.Capabilities() }

func (s *Store) Render(q *query.Query, page pagination.OffsetRequest) (any, error) {
	return s.renderer.Render(q, page)
}

func (s *Store) Healthy(ctx context.Context) bool {
	ok, err := s.client.Ping().IsSuccess(ctx)
	if err != nil {
		slog.Error("Elasticsearch ping failed", "error", err)
		return false
	}
	return ok
}

func (s *Store) EnsureIndex(ctx context.Context) error {
	exists, err := s.client.Indices.Exists(s.index).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check if index exists: %w", err)
	}
	if exists {
		slog.Info("Index already exists", "index", s.index)
		return nil
	}

	body, err := json.Marshal(IndexBody(s.relations))
	if err != nil {
		return fmt.Errorf("failed to encode index body: %w", err)
	}
	res, err := s.client.Indices.Create(s.index).Raw(bytes.NewReader(body)).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if !res.Acknowledged {
		return fmt.Errorf("index creation was not acknowledged")
	}

	slog.Info("Index created successfully", "index", s.index, "relations", s.relations)
	return nil
}

func (s *Store) Save(ctx context.Context, doc document.Encoded) error {
	return s.SaveBulk(ctx, []document.Encoded{doc})
}

// SaveBulk indexes parents and their children. Children are routed to their
// parent's shard and previously indexed children of a saved parent are removed.
func (s *Store) SaveBulk(ctx context.Context, docs []document.Encoded) error {
	if len(docs) == 0 {
		return nil
	}
	for _, doc := range docs {
		if doc.ID == "" {
			return apperr.NewValidation("es: document id is required")
		}
		if err := s.deleteChildren(ctx, doc); err != nil {
			return err
		}
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         s.index,
		Client:        s.client,
		NumWorkers:    4,
		FlushBytes:    5e+6, // 5MB
		FlushInterval: 30 * time.Second,
		Refresh:       s.refresh,
	})
	if err != nil {
		return fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	var successful, failed atomic.Int64
	add := func(doc document.Encoded, routing string) {
		body, err := json.Marshal(s.source(doc))
		if err != nil {
			slog.Error("failed to marshal document", "error", err, "id", doc.ID)
			failed.Add(1)
			return
		}
		item := bulkItem(doc.ID, body, routing)
		item.OnSuccess = func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem) {
			successful.Add(1)
		}
		item.OnFailure = func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
			failed.Add(1)
			if err != nil {
				slog.Error("bulk index error", "error", err, "id", item.DocumentID)
			} else {
				slog.Error("bulk index error", "status", res.Status, "error", res.Error.Type, "reason", res.Error.Reason, "id", item.DocumentID)
			}
		}
		if err := bi.Add(ctx, item); err != nil {
			failed.Add(1)
			slog.Error("failed to add document to bulk indexer", "error", err, "id", doc.ID)
		}
	}

	total := 0
	for _, doc := range docs {
		add(doc, "")
		total++
		for _, child := range doc.Children {
			add(child, doc.ID)
			total++
		}
	}

	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("failed to close bulk indexer: %w", err)
	}

	slog.Info("Bulk indexing completed",
		"successful", successful.Load(),
		"failed", failed.Load(),
		"total", total,
		"index", s.index)

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("failed to index %d out of %d documents", n, total)
	}
	return nil
}

// source is the indexed body: the physical fields plus the reserved ones.
func (s *Store) source(doc document.Encoded) map[string]any {
	body := document.WireFields(doc.Fields)
	body[IDField] = doc.ID
	body[TypeField] = doc.Type
	switch {
	case doc.ParentID != "":
		body[JoinField] = map[string]any{"name": doc.Type, "parent": doc.ParentID}
	case len(s.relations[doc.Type]) > 0:
		body[JoinField] = doc.Type
	}
	return body
}

func (s *Store) deleteChildren(ctx context.Context, doc document.Encoded) error {
	children := s.relations[doc.Type]
	if len(children) == 0 {
		return nil
	}
	bq := elastic.NewBoolQuery().MinimumNumberShouldMatch(1)
	for _, c := range children {
		bq = bq.Should(elastic.NewParentIdQuery(c, doc.ID))
	}
	src, err := bq.Source()
	if err != nil {
		return fmt.Errorf("es: render child delete: %w", err)
	}
	body, err := json.Marshal(map[string]any{"query": src})
	if err != nil {
		return fmt.Errorf("es: encode child delete: %w", err)
	}

	res, err := s.client.DeleteByQuery(s.index).Routing(doc.ID).Raw(bytes.NewReader(body)).Perform(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete children of %s: %w", doc.ID, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("failed to delete children of %s: status %d: %s", doc.ID, res.StatusCode, msg)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, q *query.Query, page pagination.OffsetRequest) (*storage.SearchResult, error) {
	src, err := s.renderer.Source(q, page)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("es: encode search body: %w", err)
	}

	res, err := s.client.Search().Index(s.index).Raw(bytes.NewReader(body)).Perform(ctx)
	if err != nil {
		slog.Error("Search failed", "index", s.index, "error", err)
		return nil, fmt.Errorf("es: search: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(res.Body)
		slog.Error("Search failed", "index", s.index, "status", res.StatusCode, "body", string(msg))
		return nil, fmt.Errorf("es: search: status %d: %s", res.StatusCode, msg)
	}

	var sr elastic.SearchResult
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("es: decode search response: %w", err)
	}
	return toResult(q, &sr)
}

func toResult(q *query.Query, sr *elastic.SearchResult) (*storage.SearchResult, error) {
	out := &storage.SearchResult{}
	if sr.Hits != nil {
		if sr.Hits.TotalHits != nil {
			out.Total = sr.Hits.TotalHits.Value
		}
		if sr.Hits.MaxScore != nil {
			out.MaxScore = *sr.Hits.MaxScore
		}
		for _, h := range sr.Hits.Hits {
			fields := map[string]any{}
			if len(h.Source) > 0 {
				if err := json.Unmarshal(h.Source, &fields); err != nil {
					return nil, fmt.Errorf("es: decode hit %s: %w", h.Id, err)
				}
			}
			for _, reserved := range []string{IDField, TypeField, JoinField} {
				delete(fields, reserved)
			}
			hit := storage.RawHit{ID: h.Id, Fields: fields}
			if q.IncludeScore && h.Score != nil {
				hit.Score = *h.Score
			}
			out.Hits = append(out.Hits, hit)
		}
	}

	facets, err := facetResults(q, sr.Aggregations)
	if err != nil {
		return nil, err
	}
	out.Facets = facets
	return out, nil
}

var (
	_ storage.Storer   = (*Store)(nil)
	_ storage.Searcher = (*Store)(nil)
	_ storage.Renderer = (*Store)(nil)
)

// bulkItem indexes one document. Children carry their parent's id as routing
// so they land on the parent's shard, which the join field requires.
func bulkItem(id string, body []byte, routing string) esutil.BulkIndexerItem {
	return esutil.BulkIndexerItem{
		Action:     "index",
		DocumentID: id,
		Body:       bytes.NewReader(body),
		Routing:    routing,
	}
}
