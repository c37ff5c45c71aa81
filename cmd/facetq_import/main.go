package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/DjordjeVuckovic/facetq/internal/ingest"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/DjordjeVuckovic/facetq/internal/search"
	"github.com/DjordjeVuckovic/facetq/internal/storage/factory"
)

func main() {
	cfg, err := NewAppConfig().Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		slog.Error("import failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *ImportConfig) error {
	sc, err := schema.LoadFile(cfg.SchemaPath)
	if err != nil {
		return err
	}

	mappingFile, err := os.Open(cfg.DataMappingPath)
	if err != nil {
		return err
	}
	defer mappingFile.Close()
	mapping, err := ingest.LoadMapping(mappingFile, sc)
	if err != nil {
		return err
	}

	dataFile, err := os.Open(cfg.DatasetPath)
	if err != nil {
		return err
	}
	defer dataFile.Close()

	slog.Info("Creating pipeline", "storageType", cfg.StorageConfig.Type, "mapping", mapping.Metadata.Name)
	backend, err := factory.New(ctx, &cfg.StorageConfig, sc)
	if err != nil {
		return err
	}
	defer backend.Close()

	service := search.NewService(schema.NewRegistry(sc), backend)
	pipeline := ingest.NewPipeline(
		ingest.NewCSVReader(dataFile),
		ingest.NewMapper(mapping, sc),
		service,
		ingest.WithName(mapping.Metadata.Name),
		ingest.WithBatchSize(cfg.BatchSize),
		ingest.WithSearchContext(cfg.SearchContext),
	)
	_, err = pipeline.Run(ctx)
	return err
}
