package cli

import (
	"fmt"

	"github.com/DjordjeVuckovic/facetq/internal/filter"
	"github.com/DjordjeVuckovic/facetq/internal/normalize"
	"github.com/DjordjeVuckovic/facetq/internal/parser"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/spf13/cobra"
)

type NormalizeResult struct {
	Input      string   `json:"input"`
	Normalized string   `json:"normalized"`
	Branches   []Branch `json:"branches,omitempty"`
}

type Branch struct {
	Parent []string `json:"parent,omitempty"`
	Child  []string `json:"child,omitempty"`
}

// NewNormalizeCommand prints the disjunctive normal form of a filter
// expression. With --schema every conjunction is also split into its parent
// and child literals.
func NewNormalizeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "normalize <expression>",
		Short:         "Normalize a filter expression",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(rootOpts, args[0], cmd)
		},
	}
}

func runNormalize(rootOpts *RootOptions, expr string, cmd *cobra.Command) error {
	f, err := parser.Parse(expr)
	if err != nil {
		return WrapExitError(ExitFailure, "invalid expression", err)
	}
	n := normalize.Normalize(f)
	res := NormalizeResult{Input: f.String(), Normalized: n.String()}

	if rootOpts.SchemaPath != "" {
		sc, err := rootOpts.loadSchema()
		if err != nil {
			return err
		}
		for _, b := range normalize.Partition(n, classifier(sc)) {
			res.Branches = append(res.Branches, Branch{Parent: filterStrings(b.Parent), Child: filterStrings(b.Child)})
		}
	}

	o := output{format: rootOpts.Format, w: cmd.OutOrStdout()}
	if o.isJSON() {
		return o.json(res)
	}
	fmt.Fprintln(o.w, res.Normalized)
	for i, b := range res.Branches {
		fmt.Fprintf(o.w, "branch %d: parent=%v child=%v\n", i+1, b.Parent, b.Child)
	}
	return nil
}

func classifier(sc *schema.Schema) normalize.Classifier {
	return func(leaf filter.Filter) normalize.Side {
		l, ok := leaf.(filter.Leaf)
		if ok && sc.Child() != nil && !sc.Has(l.FieldName()) && sc.Child().Has(l.FieldName()) {
			return normalize.Child
		}
		return normalize.Parent
	}
}

func filterStrings(fs []filter.Filter) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.String()
	}
	return out
}
