package commands

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nonibytes/rulebook/internal/cliopt"
	"github.com/nonibytes/rulebook/internal/cliutil"
	"github.com/nonibytes/rulebook/rulebook"
)

type classifyResult struct {
	Line    int             `json:"line"`
	Matched bool            `json:"matched"`
	Match   *rulebook.Match `json:"match,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func NewClassifyCmd(g *cliopt.GlobalOptions) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "classify --input FILE.jsonl",
		Short: "Assign each record to the mapping of its first matching rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			bk, err := cliutil.OpenBook(cmd.Context(), *g, cliutil.NewLogger(cmd.ErrOrStderr(), g.Verbose))
			if err != nil {
				return err
			}
			defer bk.Close()
			schema := bk.Schema()

			w := cmd.OutOrStdout()
			sc := bufio.NewScanner(r)
			sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
			line := 0
			for sc.Scan() {
				line++
				data := bytes.TrimSpace(sc.Bytes())
				if len(data) == 0 {
					continue
				}
				res := classifyResult{Line: line}
				record, err := rulebook.DecodeRecord(data, schema)
				if err != nil {
					res.Error = err.Error()
				} else {
					m, ok, err := bk.Classify(cmd.Context(), record)
					if err != nil {
						return err
					}
					res.Matched = ok
					if ok {
						res.Match = &m
					}
				}
				writeClassifyResult(w, g.Format, res)
			}
			return sc.Err()
		},
	}
	cmd.Flags().StringVar(&input, "input", "-", "JSON lines file, or - for stdin")
	return cmd
}

func writeClassifyResult(w io.Writer, format string, res classifyResult) {
	if cliutil.ParseOutputFormat(format) == cliutil.FormatJSON {
		b, _ := json.Marshal(res)
		fmt.Fprintln(w, string(b))
		return
	}
	switch {
	case res.Error != "":
		fmt.Fprintf(w, "%d\terror\t%s\n", res.Line, res.Error)
	case res.Matched:
		fmt.Fprintf(w, "%d\t%s\t%s\n", res.Line, res.Match.MappingID, res.Match.RuleID)
	default:
		fmt.Fprintf(w, "%d\t-\n", res.Line)
	}
}
