// Package cli implements the facetq command line: rendering requests for a
// backend, decoding physical field names and normalizing filter expressions
// without a running server.
package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	SchemaPath string
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "facetq",
		Short: "facetq - schema-driven filters and facets",
		Long:  "Render structured search requests for Elasticsearch, Solr, PostgreSQL or SQLite and inspect the physical field names a schema produces.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Verbose {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.SchemaPath, "schema", "s", "", "path to the YAML schema")

	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewDecodeCommand(opts))
	cmd.AddCommand(NewNamesCommand(opts))
	cmd.AddCommand(NewNormalizeCommand(opts))

	return cmd
}

func (o *RootOptions) loadSchema() (*schema.Schema, error) {
	if o.SchemaPath == "" {
		return nil, NewExitError(ExitCommandError, "--schema is required")
	}
	sc, err := schema.LoadFile(o.SchemaPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load schema", err)
	}
	return sc, nil
}
