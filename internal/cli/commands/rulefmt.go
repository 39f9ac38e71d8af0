package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nonibytes/rulebook/internal/cliopt"
	"github.com/nonibytes/rulebook/internal/cliutil"
	"github.com/nonibytes/rulebook/rulebook"
	"github.com/nonibytes/rulebook/rulebook/rule"
)

func NewFmtCmd(g *cliopt.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fmt RULE",
		Short: "Print a rule in canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := rule.Parse(args[0])
			if err != nil {
				return err
			}
			text := rule.Format(tree)
			if cliutil.ParseOutputFormat(g.Format) == cliutil.FormatJSON {
				cliutil.PrintJSON(cmd.OutOrStdout(), map[string]string{"rule": text})
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func NewCheckCmd(g *cliopt.GlobalOptions) *cobra.Command {
	var schemaPath string
	var tree bool
	cmd := &cobra.Command{
		Use:   "check --schema FILE RULE",
		Short: "Parse and validate a rule against a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := cliutil.ReadSchemaFile(schemaPath)
			if err != nil {
				return err
			}
			f, err := rule.Compile(args[0], schema)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			switch {
			case cliutil.ParseOutputFormat(g.Format) == cliutil.FormatJSON:
				cliutil.PrintJSON(w, map[string]any{"rule": f.String(), "conditions": len(f.Conditions())})
			case tree:
				printTree(w, f.Tree(), nil, 0)
			default:
				fmt.Fprintln(w, f.String())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "schema file (.json or .yaml)")
	cmd.Flags().BoolVar(&tree, "tree", false, "print the parsed tree")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func NewEvalCmd(g *cliopt.GlobalOptions) *cobra.Command {
	var schemaPath, recordPath string
	cmd := &cobra.Command{
		Use:   "eval --schema FILE --record FILE RULE",
		Short: "Evaluate a rule against one JSON record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := cliutil.ReadSchemaFile(schemaPath)
			if err != nil {
				return err
			}
			f, err := rule.Compile(args[0], schema)
			if err != nil {
				return err
			}
			record, err := cliutil.ReadRecordFile(recordPath, schema)
			if err != nil {
				return err
			}

			ann, err := rule.NewEvaluator().Annotate(f.Tree(), record)
			if err != nil {
				return err
			}
			result, err := rule.Reduce(f.Tree(), ann)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if cliutil.ParseOutputFormat(g.Format) == cliutil.FormatJSON {
				conds := make([]map[string]any, 0, len(ann))
				for _, c := range f.Conditions() {
					conds = append(conds, map[string]any{"condition": rule.FormatCondition(c), "result": ann[c]})
				}
				cliutil.PrintJSON(w, map[string]any{"result": result, "conditions": conds})
				return nil
			}
			printTree(w, f.Tree(), ann, 0)
			fmt.Fprintln(w, result)
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "schema file (.json or .yaml)")
	cmd.Flags().StringVar(&recordPath, "record", "", "JSON record file")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("record")
	return cmd
}

// printTree writes one node per line, indented by depth. Conditions are
// suffixed with their result when ann is non-nil.
func printTree(w io.Writer, n rule.Node, ann rule.Annotations, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n := n.(type) {
	case *rule.Operator:
		fmt.Fprintf(w, "%s%s\n", indent, n.Kind)
		for _, arg := range n.Args {
			printTree(w, arg, ann, depth+1)
		}
	case *rule.Condition:
		if ann != nil {
			fmt.Fprintf(w, "%s%s => %t\n", indent, rule.FormatCondition(n), ann[n])
			return
		}
		fmt.Fprintf(w, "%s%s\n", indent, rule.FormatCondition(n))
	case *rule.Raw:
		fmt.Fprintf(w, "%s?%s?\n", indent, n.Text)
	}
}

func printRule(w io.Writer, format string, r rulebook.Rule) {
	if cliutil.ParseOutputFormat(format) == cliutil.FormatJSON {
		cliutil.PrintJSON(w, r)
		return
	}
	fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.Position, r.ID, r.MappingID, r.Label)
	for _, line := range r.Lines {
		fmt.Fprintf(w, "\t%s\n", line)
	}
}
