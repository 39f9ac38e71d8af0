package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nonibytes/rulebook/internal/cliopt"
	"github.com/nonibytes/rulebook/internal/cliutil"
)

func NewFieldsCmd(g *cliopt.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "Show how rules use each schema field",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bk, err := cliutil.OpenBook(cmd.Context(), *g, cliutil.NewLogger(cmd.ErrOrStderr(), g.Verbose))
			if err != nil {
				return err
			}
			defer bk.Close()

			usage, err := bk.DiscoverFields(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if cliutil.ParseOutputFormat(g.Format) == cliutil.FormatJSON {
				cliutil.PrintJSON(w, usage)
				return nil
			}
			for _, u := range usage {
				ops := make([]string, len(u.Operators))
				for i, op := range u.Operators {
					ops[i] = string(op)
				}
				typ := string(u.Type)
				if typ == "" {
					typ = "?"
				}
				fmt.Fprintf(w, "%s\t%s\trules=%d\tconditions=%d\t%s\n", u.Path, typ, u.Rules, u.Conditions, strings.Join(ops, " "))
			}
			return nil
		},
	}
}
