package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/DjordjeVuckovic/facetq/internal/fieldname"
	"github.com/spf13/cobra"
)

type DecodedName struct {
	Physical       string `json:"physical"`
	Schema         string `json:"schema,omitempty"`
	Field          string `json:"field,omitempty"`
	UseCase        string `json:"use_case,omitempty"`
	Type           string `json:"type,omitempty"`
	Contextualized bool   `json:"contextualized,omitempty"`
	Known          bool   `json:"known"`
}

// NewDecodeCommand maps physical names back to the schema fields that
// produce them.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	var context string
	cmd := &cobra.Command{
		Use:           "decode <physical-name>...",
		Short:         "Decode physical field names",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(rootOpts, context, args, cmd)
		},
	}
	cmd.Flags().StringVar(&context, "context", "", "search context of contextualized fields")
	return cmd
}

func runDecode(rootOpts *RootOptions, context string, names []string, cmd *cobra.Command) error {
	sc, err := rootOpts.loadSchema()
	if err != nil {
		return err
	}

	out := make([]DecodedName, 0, len(names))
	unknown := 0
	for _, name := range names {
		d := DecodedName{Physical: name}
		for s := sc; s != nil; s = s.Child() {
			r, ok := fieldname.Resolve(s, name, context)
			if !ok {
				continue
			}
			d.Schema = s.Type()
			d.Field = r.Field.Name()
			d.UseCase = r.UseCase.String()
			d.Type = r.Field.Type().String()
			d.Contextualized = r.Contextualized
			d.Known = true
			break
		}
		if !d.Known {
			unknown++
		}
		out = append(out, d)
	}

	o := output{format: rootOpts.Format, w: cmd.OutOrStdout()}
	if o.isJSON() {
		if err := o.json(out); err != nil {
			return err
		}
	} else {
		tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PHYSICAL\tSCHEMA\tFIELD\tUSE CASE\tTYPE")
		for _, d := range out {
			if !d.Known {
				fmt.Fprintf(tw, "%s\t-\t-\t-\t-\n", d.Physical)
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Physical, d.Schema, d.Field, d.UseCase, d.Type)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	if unknown > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d name(s) not produced by schema %s", unknown, sc.Type()))
	}
	return nil
}
