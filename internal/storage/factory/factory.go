// Package factory wires the configured storage backend.
package factory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/DjordjeVuckovic/facetq/internal/storage"
	"github.com/DjordjeVuckovic/facetq/internal/storage/es"
	"github.com/DjordjeVuckovic/facetq/internal/storage/in_mem"
	"github.com/DjordjeVuckovic/facetq/internal/storage/lucene"
	"github.com/DjordjeVuckovic/facetq/internal/storage/pg"
	"github.com/DjordjeVuckovic/facetq/internal/storage/sqlite"
	"github.com/DjordjeVuckovic/facetq/internal/storage/sqlstore"
	"github.com/DjordjeVuckovic/facetq/pkg/server"
)

// Renderer renders queries for one backend and reports what it supports.
type Renderer interface {
	storage.Renderer
	storage.CapabilityProvider
}

// Backend is a connected storage backend. Searcher and Storer are nil for
// render-only backends.
type Backend struct {
	Type     storage.Type
	Renderer Renderer
	Searcher storage.Searcher
	Storer   storage.Storer
	Health   server.HealthChecker

	close func()
}

func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// NewRenderer returns a renderer for t that needs no connection. now resolves
// relative dates where the backend cannot; nil means time.Now.
func NewRenderer(t storage.Type, now func() time.Time) (Renderer, error) {
	switch t {
	case storage.ES:
		return es.NewRenderer(), nil
	case storage.Lucene:
		return lucene.NewRenderer(), nil
	case storage.PG:
		return sqlstore.NewStore(sqlstore.Postgres{}, nil, nil, clock(now)...), nil
	case storage.SQLite:
		return sqlstore.NewStore(sqlstore.SQLite{}, nil, nil, clock(now)...), nil
	case storage.InMem:
		return in_mem.NewInMemStorer(), nil
	}
	return nil, fmt.Errorf("%w: %s", storage.ErrUnsupportedStorer, t)
}

func clock(now func() time.Time) []sqlstore.Option {
	if now == nil {
		return nil
	}
	return []sqlstore.Option{sqlstore.WithClock(now)}
}

// New connects the backend described by cfg. parent declares the document
// types the backend has to index; Elasticsearch derives its join relations
// from it.
func New(ctx context.Context, cfg *StorageConfig, parent *schema.Schema) (*Backend, error) {
	b := &Backend{Type: cfg.Type, Health: server.NewOkHealthChecker()}

	var sqlOpts []sqlstore.Option
	if cfg.TimeoutSeconds > 0 {
		sqlOpts = append(sqlOpts, sqlstore.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second))
	}

	switch cfg.Type {
	case storage.PG:
		if cfg.Pg == nil {
			return nil, fmt.Errorf("invalid config for PostgreSQL storage: pool config is missing")
		}
		pool, err := pg.NewConnectionPool(ctx, *cfg.Pg)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL connection pool: %w", err)
		}
		store := pg.NewStore(pool, sqlOpts...)
		b.Renderer, b.Searcher, b.Storer = store, store, store
		b.Health = pool
		b.close = pool.Close

	case storage.SQLite:
		sc := sqlite.Config{}
		if cfg.SQLite != nil {
			sc = *cfg.SQLite
		}
		db, err := sqlite.Open(ctx, sc)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite storage: %w", err)
		}
		store := sqlite.NewStore(db, sqlOpts...)
		b.Renderer, b.Searcher, b.Storer = store, store, store
		b.Health = db
		b.close = func() { _ = db.Close() }

	case storage.ES:
		if cfg.Es == nil {
			return nil, fmt.Errorf("invalid config for Elasticsearch storage: client config is missing")
		}
		var opts []es.Option
		if parent != nil && parent.Child() != nil {
			opts = append(opts, es.WithRelation(parent.Type(), parent.Child().Type()))
		}
		store, err := es.NewStore(ctx, *cfg.Es, opts...)
		if err != nil {
			return nil, err
		}
		b.Renderer, b.Searcher, b.Storer = store, store, store
		b.Health = store

	case storage.InMem:
		store := in_mem.NewInMemStorer()
		b.Renderer, b.Searcher, b.Storer = store, store, store

	case storage.Lucene:
		b.Renderer = lucene.NewRenderer()

	default:
		return nil, fmt.Errorf("%w: %s", storage.ErrUnsupportedStorer, cfg.Type)
	}

	slog.Info("Storage backend ready", "type", cfg.Type, "searchable", b.Searcher != nil)
	return b, nil
}
