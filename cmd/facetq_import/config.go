package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/DjordjeVuckovic/facetq/internal/storage/factory"
	"github.com/DjordjeVuckovic/facetq/pkg/config/env"
)

func NewAppConfig() *AppConfig {
	return &AppConfig{
		ENV: os.Getenv("ENV"),
	}
}

type AppConfig struct {
	ENV string
}

type ImportConfig struct {
	SchemaPath      string
	DatasetPath     string
	DataMappingPath string
	BatchSize       int
	SearchContext   string
	factory.StorageConfig
}

func (as *AppConfig) Load() (*ImportConfig, error) {
	err := env.LoadDotEnv(as.ENV, "cmd/facetq_import/.env")
	if err != nil {
		slog.Info("Skipping .env environment variables...", "error", err)
	}

	storageCfg, err := factory.LoadEnv()
	if err != nil {
		slog.Error("Failed to load storage configuration from environment", "error", err)
		return nil, err
	}

	required := map[string]string{}
	for _, key := range []string{"SCHEMA_PATH", "MAPPING_CONFIG_PATH", "DATASET_PATH"} {
		v := os.Getenv(key)
		if v == "" {
			slog.Error("Required environment variable is not set", "key", key)
			return nil, fmt.Errorf("%s environment variable is not set", key)
		}
		required[key] = v
	}

	batchSize, err := strconv.Atoi(os.Getenv("BATCH_SIZE"))
	if err != nil {
		batchSize = 1_000
	}

	return &ImportConfig{
		SchemaPath:      required["SCHEMA_PATH"],
		DatasetPath:     required["DATASET_PATH"],
		DataMappingPath: required["MAPPING_CONFIG_PATH"],
		BatchSize:       batchSize,
		SearchContext:   os.Getenv("SEARCH_CONTEXT"),
		StorageConfig:   *storageCfg,
	}, nil
}
