package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nonibytes/rulebook/internal/cli/commands"
	"github.com/nonibytes/rulebook/internal/cliopt"
	"github.com/nonibytes/rulebook/internal/config"
)

// Execute runs the CLI and returns an exit code.
func Execute(argv []string) int {
	return Run(context.Background(), argv, os.Stdin, os.Stdout, os.Stderr)
}

// Run executes argv with the given streams and returns an exit code.
func Run(ctx context.Context, argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(argv)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func NewRootCmd() *cobra.Command {
	g := cliopt.DefaultGlobalOptions()
	root := &cobra.Command{
		Use:           "rulebook",
		Short:         "Rule-based record classification",
		Long:          rootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if g.Config == "" {
				return nil
			}
			cfg, err := config.FromFile(g.Config)
			if err != nil {
				return err
			}
			return cliopt.ApplyDefaults(cmd.Flags(), cfg.Values())
		},
	}
	cliopt.BindGlobalFlags(root.PersistentFlags(), &g)

	root.AddCommand(
		commands.NewFmtCmd(&g),
		commands.NewCheckCmd(&g),
		commands.NewEvalCmd(&g),
		commands.NewBookCmd(&g),
		commands.NewRuleCmd(&g),
		commands.NewClassifyCmd(&g),
		commands.NewFieldsCmd(&g),
	)
	return root
}
