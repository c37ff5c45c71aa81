package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/DjordjeVuckovic/facetq/internal/fieldname"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/spf13/cobra"
)

type FieldNames struct {
	Schema string            `json:"schema"`
	Field  string            `json:"field"`
	Names  map[string]string `json:"names"`
}

// NewNamesCommand lists the physical name of every field and use-case.
func NewNamesCommand(rootOpts *RootOptions) *cobra.Command {
	var context string
	cmd := &cobra.Command{
		Use:           "names",
		Short:         "List the physical field names of a schema",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := rootOpts.loadSchema()
			if err != nil {
				return err
			}
			return writeNames(output{format: rootOpts.Format, w: cmd.OutOrStdout()}, schemaNames(sc, context))
		},
	}
	cmd.Flags().StringVar(&context, "context", "", "search context of contextualized fields")
	return cmd
}

func schemaNames(sc *schema.Schema, context string) []FieldNames {
	var out []FieldNames
	for s := sc; s != nil; s = s.Child() {
		for _, f := range s.Fields() {
			fn := FieldNames{Schema: s.Type(), Field: f.Name(), Names: map[string]string{}}
			for uc, name := range fieldname.Names(f, context) {
				fn.Names[uc.String()] = name
			}
			out = append(out, fn)
		}
	}
	return out
}

func writeNames(o output, names []FieldNames) error {
	if o.isJSON() {
		return o.json(names)
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCHEMA\tFIELD\tUSE CASE\tPHYSICAL")
	for _, fn := range names {
		ucs := make([]string, 0, len(fn.Names))
		for uc := range fn.Names {
			ucs = append(ucs, uc)
		}
		sort.Strings(ucs)
		for _, uc := range ucs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", fn.Schema, fn.Field, uc, fn.Names[uc])
		}
	}
	return tw.Flush()
}
