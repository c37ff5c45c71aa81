package factory_test

import (
	"context"
	"testing"

	"github.com/DjordjeVuckovic/facetq/internal/storage"
	"github.com/DjordjeVuckovic/facetq/internal/storage/factory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    storage.Type
		wantErr bool
	}{
		{name: "missing type", env: map[string]string{}, wantErr: true},
		{name: "unknown type", env: map[string]string{"STORAGE_TYPE": "mongo"}, wantErr: true},
		{name: "es without index", env: map[string]string{"STORAGE_TYPE": "es", "ES_ADDRESSES": "http://localhost:9200"}, wantErr: true},
		{name: "es", env: map[string]string{"STORAGE_TYPE": "es", "ES_ADDRESSES": "http://a:9200, http://b:9200", "ES_INDEX_NAME": "docs"}, want: storage.ES},
		{name: "pg without dsn", env: map[string]string{"STORAGE_TYPE": "pg"}, wantErr: true},
		{name: "pg", env: map[string]string{"STORAGE_TYPE": "pg", "PG_CONNECTION_STRING": "postgres://localhost/db"}, want: storage.PG},
		{name: "sqlite", env: map[string]string{"STORAGE_TYPE": "sqlite", "SQLITE_PATH": "facetq.db"}, want: storage.SQLite},
		{name: "pg bad max conns", env: map[string]string{"STORAGE_TYPE": "pg", "PG_CONNECTION_STRING": "postgres://localhost/db", "PG_MAX_CONNS": "-1"}, wantErr: true},
		{name: "lucene", env: map[string]string{"STORAGE_TYPE": "lucene"}, want: storage.Lucene},
		{name: "bad timeout", env: map[string]string{"STORAGE_TYPE": "in_mem", "STORAGE_TIMEOUT_SECONDS": "soon"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"STORAGE_TYPE", "ES_ADDRESSES", "ES_INDEX_NAME", "PG_CONNECTION_STRING", "PG_MAX_CONNS", "SQLITE_PATH", "STORAGE_TIMEOUT_SECONDS"} {
				t.Setenv(k, tt.env[k])
			}
			cfg, err := factory.LoadEnv()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Type)
		})
	}

	t.Run("es addresses are trimmed", func(t *testing.T) {
		t.Setenv("STORAGE_TYPE", "es")
		t.Setenv("ES_ADDRESSES", "http://a:9200, http://b:9200,")
		t.Setenv("ES_INDEX_NAME", "docs")
		cfg, err := factory.LoadEnv()
		require.NoError(t, err)
		assert.Equal(t, []string{"http://a:9200", "http://b:9200"}, cfg.Es.Addresses)
	})
}

func TestNewRenderer(t *testing.T) {
	for _, typ := range storage.Types {
		t.Run(string(typ), func(t *testing.T) {
			r, err := factory.NewRenderer(typ, nil)
			require.NoError(t, err)
			assert.Equal(t, typ, r.Capabilities().Backend)
		})
	}

	_, err := factory.NewRenderer("mongo", nil)
	require.Error(t, err)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	b, err := factory.New(ctx, &factory.StorageConfig{Type: storage.SQLite}, nil)
	require.NoError(t, err)
	defer b.Close()
	assert.NotNil(t, b.Searcher)
	assert.NotNil(t, b.Storer)
	assert.True(t, b.Health.Healthy(ctx))

	lucene, err := factory.New(ctx, &factory.StorageConfig{Type: storage.Lucene}, nil)
	require.NoError(t, err)
	assert.Nil(t, lucene.Searcher)
	assert.Nil(t, lucene.Storer)
	assert.NotNil(t, lucene.Renderer)

	_, err = factory.New(ctx, &factory.StorageConfig{Type: storage.PG}, nil)
	require.Error(t, err)
}
