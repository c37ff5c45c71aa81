package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/DjordjeVuckovic/facetq/internal/storage/factory"
	"github.com/DjordjeVuckovic/facetq/pkg/config/env"
)

type AppConfig struct {
	ENV string
}

func NewAppConfig() *AppConfig {
	return &AppConfig{
		ENV: os.Getenv("ENV"),
	}
}

type ApiConfig struct {
	SchemaPath    string
	StorageConfig factory.StorageConfig
}

func (as *AppConfig) Load() (*ApiConfig, error) {
	err := env.LoadDotEnv(as.ENV, "cmd/facetq_api/.env")
	if err != nil {
		slog.Info("Failed to .env load environment variables, continuing with existing environment variables", "error", err)
	}

	schemaPath := os.Getenv("SCHEMA_PATH")
	if schemaPath == "" {
		return nil, errors.New("SCHEMA_PATH is required")
	}

	storageCfg, err := factory.LoadEnv()
	if err != nil {
		slog.Error("Failed to load storage configuration from environment", "error", err)
		return nil, err
	}

	return &ApiConfig{
		SchemaPath:    schemaPath,
		StorageConfig: *storageCfg,
	}, nil
}
