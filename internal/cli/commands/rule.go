package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nonibytes/rulebook/internal/cliopt"
	"github.com/nonibytes/rulebook/internal/cliutil"
	"github.com/nonibytes/rulebook/rulebook"
)

func NewRuleCmd(g *cliopt.GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Manage the rules of a book",
	}
	cmd.AddCommand(
		newRulePutCmd(g),
		newRuleGetCmd(g),
		newRuleDeleteCmd(g),
		newRuleListCmd(g),
		newRuleMoveCmd(g),
	)
	return cmd
}

func newRulePutCmd(g *cliopt.GlobalOptions) *cobra.Command {
	var in rulebook.RuleInput
	cmd := &cobra.Command{
		Use:   "put --mapping ID --line RULE [--line RULE ...]",
		Short: "Add a rule, or replace the rule with --id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bk, err := cliutil.OpenBook(cmd.Context(), *g, cliutil.NewLogger(cmd.ErrOrStderr(), g.Verbose))
			if err != nil {
				return err
			}
			defer bk.Close()

			r, err := bk.PutRule(cmd.Context(), in)
			if err != nil {
				return err
			}
			printRule(cmd.OutOrStdout(), g.Format, r)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.ID, "id", "", "rule id (generated when empty)")
	cmd.Flags().StringVar(&in.Label, "label", "", "rule label")
	cmd.Flags().StringVar(&in.MappingID, "mapping", "", "mapping id assigned by this rule")
	cmd.Flags().StringVar(&in.MappingLabel, "mapping-label", "", "mapping label")
	cmd.Flags().StringArrayVar(&in.Lines, "line", nil, "rule line; repeat for several lines")
	_ = cmd.MarkFlagRequired("mapping")
	_ = cmd.MarkFlagRequired("line")
	return cmd
}

func newRuleGetCmd(g *cliopt.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bk, err := cliutil.OpenBook(cmd.Context(), *g, cliutil.NewLogger(cmd.ErrOrStderr(), g.Verbose))
			if err != nil {
				return err
			}
			defer bk.Close()

			r, err := bk.GetRule(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printRule(cmd.OutOrStdout(), g.Format, r)
			return nil
		},
	}
}

func newRuleDeleteCmd(g *cliopt.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bk, err := cliutil.OpenBook(cmd.Context(), *g, cliutil.NewLogger(cmd.ErrOrStderr(), g.Verbose))
			if err != nil {
				return err
			}
			defer bk.Close()

			ok, err := bk.DeleteRule(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return rulebook.NotFoundError(args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newRuleListCmd(g *cliopt.GlobalOptions) *cobra.Command {
	var opts rulebook.ListOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules in position order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bk, err := cliutil.OpenBook(cmd.Context(), *g, cliutil.NewLogger(cmd.ErrOrStderr(), g.Verbose))
			if err != nil {
				return err
			}
			defer bk.Close()

			page, err := bk.ListRules(cmd.Context(), opts)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if cliutil.ParseOutputFormat(g.Format) == cliutil.FormatJSON {
				cliutil.PrintJSON(w, page)
				return nil
			}
			for _, r := range page.Rules {
				printRule(w, g.Format, r)
			}
			if page.HasMore {
				fmt.Fprintf(w, "next: %s\n", page.NextCursor)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.MappingID, "mapping", "", "only rules for this mapping")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "page size")
	cmd.Flags().StringVar(&opts.After, "after", "", "cursor from a previous page")
	return cmd
}

func newRuleMoveCmd(g *cliopt.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move ID POSITION",
		Short: "Move a rule to a new position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid position %q", args[1])
			}
			bk, err := cliutil.OpenBook(cmd.Context(), *g, cliutil.NewLogger(cmd.ErrOrStderr(), g.Verbose))
			if err != nil {
				return err
			}
			defer bk.Close()

			pos, err := bk.MoveRule(cmd.Context(), args[0], to)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %d\n", args[0], pos)
			return nil
		},
	}
}
