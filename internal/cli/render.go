package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/api/dto"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/DjordjeVuckovic/facetq/internal/search"
	"github.com/DjordjeVuckovic/facetq/internal/storage"
	"github.com/DjordjeVuckovic/facetq/internal/storage/lucene"
	"github.com/spf13/cobra"
)

type renderOptions struct {
	backend string
	filter  string
	text    string
	context string
	strict  bool
	now     string
}

// NewRenderCommand renders a search request read from a JSON file, stdin or
// the --filter and --text flags.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render [request.json|-]",
		Short: "Render a search request for a backend",
		Long: `Render a search request into the native query of a backend.

The request uses the body of POST /v1/search. Without an argument the request
is built from --filter and --text.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(rootOpts, opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.backend, "backend", "b", string(storage.ES), "target backend (es|lucene|pg|sqlite|in_mem)")
	cmd.Flags().StringVarP(&opts.filter, "filter", "f", "", "filter expression")
	cmd.Flags().StringVarP(&opts.text, "text", "t", "", "full text query")
	cmd.Flags().StringVar(&opts.context, "context", "", "search context of contextualized fields")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "reject fields the schema does not know")
	cmd.Flags().StringVar(&opts.now, "now", "", "RFC3339 time that relative dates resolve against")
	return cmd
}

func runRender(rootOpts *RootOptions, opts *renderOptions, args []string, cmd *cobra.Command) error {
	sc, err := rootOpts.loadSchema()
	if err != nil {
		return err
	}
	backend, err := storage.ParseType(opts.backend)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid backend", err)
	}

	now := time.Now
	if opts.now != "" {
		t, err := time.Parse(time.RFC3339, opts.now)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --now", err)
		}
		now = func() time.Time { return t }
	}

	body := dto.SearchRequest{Filter: opts.filter, Text: opts.text, Context: opts.context, Strict: opts.strict}
	if len(args) == 1 {
		if body, err = readRequest(args[0], cmd.InOrStdin()); err != nil {
			return err
		}
	}

	req, err := body.ToSearch(sc)
	if err != nil {
		return WrapExitError(ExitFailure, "invalid request", err)
	}

	service := search.NewService(schema.NewRegistry(sc), nil, search.WithClock(now))
	out, err := service.Render(req, backend)
	if err != nil {
		return WrapExitError(ExitFailure, "render", err)
	}

	o := output{format: rootOpts.Format, w: cmd.OutOrStdout()}
	if o.isJSON() {
		return o.json(out)
	}
	if params, ok := out.Query.(lucene.Params); ok {
		_, err = fmt.Fprint(o.w, params.String())
		return err
	}
	return o.json(out.Query)
}

func readRequest(path string, stdin io.Reader) (dto.SearchRequest, error) {
	var body dto.SearchRequest
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return body, WrapExitError(ExitCommandError, "open request", err)
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return body, WrapExitError(ExitCommandError, "decode request", err)
	}
	return body, nil
}
