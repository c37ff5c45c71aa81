// Package in_mem keeps encoded documents in memory and evaluates queries
// against their physical fields. It backs tests and local development.
package in_mem

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/document"
	"github.com/DjordjeVuckovic/facetq/internal/facet"
	"github.com/DjordjeVuckovic/facetq/internal/storage"
)

type Option func(s *InMemStorer)

// WithClock fixes the instant relative date bounds resolve against.
func WithClock(now func() time.Time) Option {
	return func(s *InMemStorer) { s.now = now }
}

type InMemStorer struct {
	storageLock sync.RWMutex
	storage     map[string]document.Encoded
	// order keeps insertion order for stable unsorted results.
	order []string
	now   func() time.Time
}

func NewInMemStorer(opts ...Option) *InMemStorer {
	s := &InMemStorer{
		storage: make(map[string]document.Encoded),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemStorer) Save(ctx context.Context, doc document.Encoded) error {
	return s.SaveBulk(ctx, []document.Encoded{doc})
}

// SaveBulk replaces documents with the same id, children included.
func (s *InMemStorer) SaveBulk(ctx context.Context, docs []document.Encoded) error {
	s.storageLock.Lock()
	defer s.storageLock.Unlock()

	for _, doc := range docs {
		if doc.ID == "" {
			return apperr.NewValidation("in_mem: document id is required")
		}
		if _, exists := s.storage[doc.ID]; !exists {
			s.order = append(s.order, doc.ID)
		}
		s.storage[doc.ID] = doc
		slog.Debug("Saving document to in-memory storage", "id", doc.ID, "type", doc.Type, "children", len(doc.Children))
	}
	return nil
}

// Count returns the number of stored parent documents.
func (s *InMemStorer) Count() int {
	s.storageLock.RLock()
	defer s.storageLock.RUnlock()
	return len(s.storage)
}

func (s *InMemStorer) Capabilities() storage.Capabilities {
	return storage.Capabilities{
		Backend:     storage.InMem,
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

func (s *InMemStorer) snapshot() []document.Encoded {
	s.storageLock.RLock()
	defer s.storageLock.RUnlock()

	out := make([]document.Encoded, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.storage[id])
	}
	return out
}
