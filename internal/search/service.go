// Package search runs logical requests end to end: serialize against the
// active schema, check backend capabilities, execute and decode.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/document"
	"github.com/DjordjeVuckovic/facetq/internal/query"
	"github.com/DjordjeVuckovic/facetq/internal/result"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/DjordjeVuckovic/facetq/internal/serialize"
	"github.com/DjordjeVuckovic/facetq/internal/storage"
	"github.com/DjordjeVuckovic/facetq/internal/storage/factory"
	"github.com/DjordjeVuckovic/facetq/pkg/pagination"
)

// Request is a logical request plus the per-call serializer settings.
type Request struct {
	serialize.Request
	Page         pagination.OffsetRequest
	Context      string
	Strict       bool
	IncludeScore bool
}

// Response is one page of decoded hits with the facet results of the whole
// match set.
type Response struct {
	pagination.OffsetResult[result.Hit]
	MaxScore float64               `json:"max_score,omitempty"`
	Facets   []storage.FacetResult `json:"facets,omitempty"`
}

// Rendered is the backend-native form of a request.
type Rendered struct {
	Backend storage.Type `json:"backend"`
	Query   any          `json:"query"`
}

type Option func(s *Service)

// WithClock fixes the instant relative dates resolve against.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRenderer registers a renderer under its backend type, replacing the
// connectionless default.
func WithRenderer(r factory.Renderer) Option {
	return func(s *Service) { s.renderers[r.Capabilities().Backend] = r }
}

// Service is safe for concurrent use; every call reads one schema snapshot.
type Service struct {
	registry  *schema.Registry
	backend   *factory.Backend
	renderers map[storage.Type]factory.Renderer
	now       func() time.Time
}

func NewService(registry *schema.Registry, backend *factory.Backend, opts ...Option) *Service {
	s := &Service{
		registry:  registry,
		backend:   backend,
		renderers: map[storage.Type]factory.Renderer{},
		now:       time.Now,
	}
	if backend != nil && backend.Renderer != nil {
		s.renderers[backend.Type] = backend.Renderer
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Schema() *schema.Schema { return s.registry.Load() }

func (s *Service) serializer(sc *schema.Schema, req Request) (*serialize.Serializer, error) {
	return serialize.ForSchema(sc, serialize.Config{
		Context:      req.Context,
		Strict:       req.Strict,
		IncludeScore: req.IncludeScore,
		Now:          s.now,
	})
}

func (s *Service) Query(req Request) (*query.Query, error) {
	ser, err := s.serializer(s.registry.Load(), req)
	if err != nil {
		return nil, err
	}
	return ser.Query(req.Request)
}

// Render serializes req and renders it for backend, or for the configured
// backend when backend is empty.
func (s *Service) Render(req Request, backend storage.Type) (*Rendered, error) {
	if backend == "" {
		if s.backend == nil {
			return nil, apperr.NewValidation("backend is required")
		}
		backend = s.backend.Type
	}
	r, ok := s.renderers[backend]
	if !ok {
		var err error
		if r, err = factory.NewRenderer(backend, s.now); err != nil {
			return nil, apperr.NewValidationWrap("unknown backend "+string(backend), err)
		}
	}

	q, err := s.Query(req)
	if err != nil {
		return nil, err
	}
	if err := r.Capabilities().Check(q); err != nil {
		return nil, err
	}
	page := req.Page.Normalize()
	out, err := r.Render(q, page)
	if err != nil {
		return nil, err
	}
	slog.Debug("Rendered request", "backend", backend, "facets", len(q.Facets))
	return &Rendered{Backend: backend, Query: out}, nil
}

// Search executes req on the configured backend and decodes the hits against
// the schema snapshot the request was serialized with.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	if s.backend == nil || s.backend.Searcher == nil {
		return nil, apperr.Unsupported("storage backend does not execute searches")
	}
	sc := s.registry.Load()
	ser, err := s.serializer(sc, req)
	if err != nil {
		return nil, err
	}
	q, err := ser.Query(req.Request)
	if err != nil {
		return nil, err
	}
	if rc, ok := s.backend.Searcher.(storage.CapabilityProvider); ok {
		if err := rc.Capabilities().Check(q); err != nil {
			return nil, err
		}
	}

	page := req.Page.Normalize()
	raw, err := s.backend.Searcher.Search(ctx, q, page)
	if err != nil {
		slog.Error("Search failed", "backend", s.backend.Type, "error", err)
		return nil, err
	}

	dec := result.NewDecoder(sc, req.Context)
	hits := make([]result.Hit, 0, len(raw.Hits))
	for _, h := range raw.Hits {
		hits = append(hits, result.Hit{Document: dec.Document(h.ID, h.Fields), Score: h.Score})
	}
	slog.Info("Search completed", "backend", s.backend.Type, "total", raw.Total, "hits", len(hits), "facets", len(raw.Facets))
	return &Response{
		OffsetResult: *pagination.NewOffsetResult(hits, raw.Total, page),
		MaxScore:     raw.MaxScore,
		Facets:       raw.Facets,
	}, nil
}

// Index encodes docs against the active schema and saves them.
func (s *Service) Index(ctx context.Context, docs []document.Document, searchContext string) (int, error) {
	if s.backend == nil || s.backend.Storer == nil {
		return 0, apperr.Unsupported("storage backend does not index documents")
	}
	enc := document.NewEncoder(s.registry.Load(), searchContext)
	encoded := make([]document.Encoded, 0, len(docs))
	for i, d := range docs {
		e, err := enc.Encode(d)
		if err != nil {
			return 0, fmt.Errorf("document %d: %w", i, err)
		}
		encoded = append(encoded, e)
	}
	if err := s.backend.Storer.SaveBulk(ctx, encoded); err != nil {
		return 0, err
	}
	return len(encoded), nil
}
