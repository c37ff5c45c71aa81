package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schemaPath = "testdata/schema.yaml"

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "facetq", cmd.Use)

	for _, name := range []string{"render", "decode", "names", "normalize"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "", "--format", "yaml", "normalize", "brand:acme")
	assert.ErrorContains(t, err, "invalid format")
}

func TestRender(t *testing.T) {
	t.Run("es from flags", func(t *testing.T) {
		out, err := execute(t, "", "render", "-s", schemaPath, "-b", "es", "-f", "brand:acme AND rating:>3")
		require.NoError(t, err)
		assert.Contains(t, out, "has_child")
		assert.Contains(t, out, "Review")
	})

	t.Run("lucene text", func(t *testing.T) {
		out, err := execute(t, "", "render", "-s", schemaPath, "-b", "lucene", "-f", "rating:>3")
		require.NoError(t, err)
		assert.Contains(t, out, "q=*:*\n")
		assert.Contains(t, out, "{!parent which=_type_:Product")
	})

	t.Run("request from stdin as json", func(t *testing.T) {
		body := `{"filter": "brand:acme", "facets": [{"name": "brands", "kind": "term", "field": "brand"}]}`
		out, err := execute(t, body, "--format", "json", "render", "-s", schemaPath, "-b", "sqlite", "-")
		require.NoError(t, err)
		var res struct {
			Backend string `json:"backend"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.Equal(t, "sqlite", res.Backend)
	})

	t.Run("unsupported facet", func(t *testing.T) {
		body := `{"facets": [{"name": "bp", "kind": "pivot", "fields": ["brand", "price"]}]}`
		_, err := execute(t, body, "render", "-s", schemaPath, "-b", "pg", "-")
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
	})

	t.Run("missing schema", func(t *testing.T) {
		_, err := execute(t, "", "render", "-f", "brand:acme")
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := execute(t, "", "render", "-s", schemaPath, "-b", "mongo")
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})
}

func TestDecode(t *testing.T) {
	out, err := execute(t, "", "--format", "json", "decode", "-s", schemaPath,
		"dynamic_single_stored_facet_string_brand", "dynamic_single_facet_int_rating")
	require.NoError(t, err)

	var names []DecodedName
	require.NoError(t, json.Unmarshal([]byte(out), &names))
	require.Len(t, names, 2)
	assert.Equal(t, DecodedName{Physical: "dynamic_single_stored_facet_string_brand", Schema: "Product", Field: "brand", UseCase: "facet", Type: "string", Known: true}, names[0])
	assert.Equal(t, "Review", names[1].Schema)
	assert.Equal(t, "rating", names[1].Field)

	_, err = execute(t, "", "decode", "-s", schemaPath, "dynamic_single_facet_string_colour")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestNames(t *testing.T) {
	out, err := execute(t, "", "names", "-s", schemaPath)
	require.NoError(t, err)
	assert.Contains(t, out, "dynamic_single_stored_facet_string_brand")
	assert.Contains(t, out, "dynamic_multi_suggest_analyzed_tags")
	assert.Contains(t, out, "Review")
}

func TestNormalize(t *testing.T) {
	out, err := execute(t, "", "--format", "json", "normalize", "-s", schemaPath, "brand:acme AND (rating:5 OR price:>10)")
	require.NoError(t, err)

	var res NormalizeResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Branches, 2)
	var withChild int
	for _, b := range res.Branches {
		if len(b.Child) > 0 {
			withChild++
			assert.Len(t, b.Parent, 1)
			assert.Len(t, b.Child, 1)
		} else {
			assert.Len(t, b.Parent, 2)
		}
	}
	assert.Equal(t, 1, withChild)

	out, err = execute(t, "", "normalize", "NOT (brand:acme OR brand:zeta)")
	require.NoError(t, err)
	assert.Contains(t, out, "NOT brand:")
	assert.NotContains(t, out, "branch")

	_, err = execute(t, "", "normalize", "brand:(acme")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
