package factory

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/DjordjeVuckovic/facetq/internal/storage"
	"github.com/DjordjeVuckovic/facetq/internal/storage/es"
	"github.com/DjordjeVuckovic/facetq/internal/storage/pg"
	"github.com/DjordjeVuckovic/facetq/internal/storage/sqlite"
)

type StorageConfig struct {
	storage.Type
	Pg     *pg.PoolConfig
	Es     *es.ClientConfig
	SQLite *sqlite.Config
	// TimeoutSeconds bounds each SQL statement. Zero means no bound.
	TimeoutSeconds int
}

func LoadEnv() (*StorageConfig, error) {
	raw := os.Getenv("STORAGE_TYPE")
	if raw == "" {
		slog.Error("STORAGE_TYPE environment variable is not set")
		return nil, fmt.Errorf("STORAGE_TYPE environment variable is not set")
	}
	storageType, err := storage.ParseType(raw)
	if err != nil {
		slog.Error("Invalid STORAGE_TYPE environment variable value", "value", raw)
		return nil, fmt.Errorf("invalid STORAGE_TYPE environment variable value: %s, expected one of %v", raw, storage.Types)
	}

	cfg := &StorageConfig{Type: storageType}
	if v := os.Getenv("STORAGE_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid STORAGE_TIMEOUT_SECONDS value: %s", v)
		}
		cfg.TimeoutSeconds = n
	}

	switch storageType {
	case storage.ES:
		cfg.Es = &es.ClientConfig{
			Addresses: splitList(os.Getenv("ES_ADDRESSES")),
			IndexName: os.Getenv("ES_INDEX_NAME"),
			Username:  os.Getenv("ES_USERNAME"),
			Password:  os.Getenv("ES_PASSWORD"),
		}
		if len(cfg.Es.Addresses) == 0 || cfg.Es.IndexName == "" {
			slog.Error("Elasticsearch configuration is incomplete", "addresses", cfg.Es.Addresses, "indexName", cfg.Es.IndexName)
			return nil, fmt.Errorf("elasticsearch configuration is incomplete: addresses or index name is missing")
		}
	case storage.PG:
		cfg.Pg = &pg.PoolConfig{ConnStr: os.Getenv("PG_CONNECTION_STRING")}
		if cfg.Pg.ConnStr == "" {
			slog.Error("PostgreSQL connection string is not set")
			return nil, fmt.Errorf("PostgreSQL connection string is not set")
		}
		if v := os.Getenv("PG_MAX_CONNS"); v != "" {
			n, err := strconv.ParseInt(v, 10, 32)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("invalid PG_MAX_CONNS %q", v)
			}
			cfg.Pg.MaxConns = int32(n)
		}
	case storage.SQLite:
		cfg.SQLite = &sqlite.Config{Path: os.Getenv("SQLITE_PATH")}
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
