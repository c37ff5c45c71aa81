// Package main facetq API
// @title facetq API
// @version 1.0
// @description Structured filter and facet search over one document schema, rendered for Elasticsearch, Solr, PostgreSQL and SQLite
// @license.name Apache 2.0
// @license.url https://opensource.org/licenses/Apache-2.0
// @BasePath /
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/DjordjeVuckovic/facetq/internal/api/router"
	"github.com/DjordjeVuckovic/facetq/internal/api/server"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/DjordjeVuckovic/facetq/internal/search"
	"github.com/DjordjeVuckovic/facetq/internal/storage/factory"
	pkgserver "github.com/DjordjeVuckovic/facetq/pkg/server"
	"github.com/labstack/echo/v4"
)

func main() {
	slog.SetLogLoggerLevel(slog.LevelDebug)

	sCfg, err := server.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	cfg, err := NewAppConfig().Load()
	if err != nil {
		slog.Error("Failed to load app configuration", "error", err)
		os.Exit(1)
	}

	sc, err := schema.LoadFile(cfg.SchemaPath)
	if err != nil {
		slog.Error("Failed to load schema", "path", cfg.SchemaPath, "error", err)
		os.Exit(1)
	}
	registry := schema.NewRegistry(sc)

	s := server.New(sCfg, pkgserver.NewOkHealthChecker())

	backend, err := factory.New(s.Context(), &cfg.StorageConfig, sc)
	if err != nil {
		slog.Error("Failed to create storage backend", "type", cfg.StorageConfig.Type, "error", err)
		os.Exit(1)
	}
	defer backend.Close()
	health := pkgserver.All(
		backend.Health,
		pkgserver.HealthCheckerFunc(func(context.Context) bool { return registry.Load() != nil }),
	)

	s = s.WithHealthChecker(health).
		SetupMiddlewares().
		SetupErrorHandler().
		SetupHealthChecks()

	s.Echo.GET("/", func(c echo.Context) error {
		return c.String(200, "facetq API is running")
	})

	service := search.NewService(registry, backend)
	router.NewSearchRouter(s.Echo, service).Bind()

	slog.Info("Serving schema", "type", sc.Type(), "backend", backend.Type)

	go func() {
		<-s.ShutdownSignal()
		slog.Info("Shutdown started, cleaning up resources...")
	}()

	if err := s.Start(); err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}
