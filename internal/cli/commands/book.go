package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nonibytes/rulebook/internal/cliopt"
	"github.com/nonibytes/rulebook/internal/cliutil"
)

func NewBookCmd(g *cliopt.GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Create and maintain rule books",
	}
	cmd.AddCommand(
		newBookCreateCmd(g),
		newBookSchemaCmd(g),
		newBookApplySchemaCmd(g),
		newBookOptimizeCmd(g),
	)
	return cmd
}

func newBookCreateCmd(g *cliopt.GlobalOptions) *cobra.Command {
	var schemaPath string
	cmd := &cobra.Command{
		Use:   "create --schema FILE",
		Short: "Create a new book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := cliutil.ReadSchemaFile(schemaPath)
			if err != nil {
				return err
			}
			logger := cliutil.NewLogger(cmd.ErrOrStderr(), g.Verbose)
			bk, err := cliutil.CreateBook(cmd.Context(), *g, schema, logger)
			if err != nil {
				return err
			}
			defer bk.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%d fields)\n", g.Book, len(schema))
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "schema file (.json or .yaml)")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func newBookSchemaCmd(g *cliopt.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the book schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bk, err := cliutil.OpenBook(cmd.Context(), *g, cliutil.NewLogger(cmd.ErrOrStderr(), g.Verbose))
			if err != nil {
				return err
			}
			defer bk.Close()

			schema := bk.Schema()
			w := cmd.OutOrStdout()
			if cliutil.ParseOutputFormat(g.Format) == cliutil.FormatJSON {
				cliutil.PrintJSON(w, schema)
				return nil
			}
			for _, f := range schema.Fields() {
				fmt.Fprintf(w, "%s\t%s\n", f, schema[f])
			}
			return nil
		},
	}
}

func newBookApplySchemaCmd(g *cliopt.GlobalOptions) *cobra.Command {
	var schemaPath string
	cmd := &cobra.Command{
		Use:   "apply-schema --schema FILE",
		Short: "Replace the schema if every stored rule stays valid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := cliutil.ReadSchemaFile(schemaPath)
			if err != nil {
				return err
			}
			bk, err := cliutil.OpenBook(cmd.Context(), *g, cliutil.NewLogger(cmd.ErrOrStderr(), g.Verbose))
			if err != nil {
				return err
			}
			defer bk.Close()
			if err := bk.ApplySchema(cmd.Context(), schema); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "schema file (.json or .yaml)")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func newBookOptimizeCmd(g *cliopt.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "optimize",
		Short: "Compact and analyze the book's storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bk, err := cliutil.OpenBook(cmd.Context(), *g, cliutil.NewLogger(cmd.ErrOrStderr(), g.Verbose))
			if err != nil {
				return err
			}
			defer bk.Close()
			return bk.Optimize(cmd.Context())
		},
	}
}
