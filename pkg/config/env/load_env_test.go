package env_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/DjordjeVuckovic/facetq/pkg/config/env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FACETQ_TEST_A=from-file\nFACETQ_TEST_B=from-file\n"), 0o600))

	t.Setenv("ENV_PATH", "")
	t.Setenv("FACETQ_TEST_A", "")
	os.Unsetenv("FACETQ_TEST_A")
	t.Setenv("FACETQ_TEST_B", "from-process")

	require.NoError(t, env.LoadDotEnv("local", path))
	assert.Equal(t, "from-file", os.Getenv("FACETQ_TEST_A"))
	assert.Equal(t, "from-process", os.Getenv("FACETQ_TEST_B"))

	missing := filepath.Join(dir, "missing.env")
	assert.Error(t, env.LoadDotEnv("local", missing))
	assert.NoError(t, env.LoadDotEnv("production", missing))
}
