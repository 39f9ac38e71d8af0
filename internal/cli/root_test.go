package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type cliEnv struct {
	t   *testing.T
	dir string
}

func newEnv(t *testing.T) *cliEnv {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema.yaml"),
		[]byte("sec.type: string\nsec.rating: int\npos.opened: datetime\n"), 0o644))
	return &cliEnv{t: t, dir: dir}
}

func (e *cliEnv) path(name string) string { return filepath.Join(e.dir, name) }

func (e *cliEnv) run(stdin string, args ...string) (int, string, string) {
	e.t.Helper()
	var out, errOut bytes.Buffer
	code := Run(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func (e *cliEnv) book(args ...string) []string {
	return append([]string{"--sqlite-path", e.dir, "--book", "trades"}, args...)
}

func TestFmtAndCheck(t *testing.T) {
	e := newEnv(t)

	code, out, _ := e.run("", "fmt", `$AND(?sec.rating>=3?,$NOT(?sec.type=="BD"?))`)
	require.Equal(t, 0, code)
	assert.Equal(t, "$AND(?sec.rating >= 3?,$NOT(?sec.type == \"BD\"?))\n", out)

	code, out, _ = e.run("", "--format", "json", "fmt", `?sec.rating>1?`)
	require.Equal(t, 0, code)
	assert.JSONEq(t, `{"rule":"?sec.rating > 1?"}`, out)

	code, out, _ = e.run("", "check", "--schema", e.path("schema.yaml"), "--tree", `$OR(?sec.rating>1?,?sec.type=="EQ"?)`)
	require.Equal(t, 0, code)
	assert.Equal(t, "$OR\n  sec.rating > 1\n  sec.type == \"EQ\"\n", out)

	code, _, errOut := e.run("", "check", "--schema", e.path("schema.yaml"), `?sec.isin == "x"?`)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "field not in schema")

	code, _, errOut = e.run("", "fmt", `?sec.rating > 1`)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "syntax")
}

func TestEval(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.WriteFile(e.path("rec.json"), []byte(`{"sec":{"type":"EQ","rating":4},"pos":{"opened":"2024-02-01"}}`), 0o644))

	code, out, errOut := e.run("", "eval", "--schema", e.path("schema.yaml"), "--record", e.path("rec.json"),
		`$AND(?sec.rating>3?,?pos.opened>=(2024,2,*,*,*,*)?)`)
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "$AND\n  sec.rating > 3 => true\n  pos.opened >= (2024,2,*,*,*,*) => true\ntrue\n", out)

	code, out, _ = e.run("", "--format", "json", "eval", "--schema", e.path("schema.yaml"), "--record", e.path("rec.json"), `?sec.type=="BD"?`)
	require.Equal(t, 0, code)
	var res struct {
		Result bool `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Result)
}

func TestBookRuleClassifyFlow(t *testing.T) {
	e := newEnv(t)

	code, out, errOut := e.run("", e.book("book", "create", "--schema", e.path("schema.yaml"))...)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "created trades")

	code, _, errOut = e.run("", e.book("rule", "put", "--id", "eq", "--mapping", "equity", "--line", `?sec.type=="EQ"?`)...)
	require.Equal(t, 0, code, errOut)
	code, _, errOut = e.run("", e.book("rule", "put", "--id", "hi", "--mapping", "high", "--line", `?sec.rating>=5?`)...)
	require.Equal(t, 0, code, errOut)

	code, out, _ = e.run("", e.book("rule", "move", "hi", "0")...)
	require.Equal(t, 0, code)
	assert.Equal(t, "hi -> 0\n", out)

	code, out, _ = e.run("", e.book("--format", "json", "rule", "list")...)
	require.Equal(t, 0, code)
	var page struct {
		Rules []struct {
			ID string `json:"id"`
		} `json:"rules"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.Len(t, page.Rules, 2)
	assert.Equal(t, "hi", page.Rules[0].ID)

	input := `{"sec":{"type":"EQ","rating":7}}
{"sec":{"type":"EQ","rating":1}}

{"sec":{"type":"BD","rating":2}}
not json
`
	code, out, errOut = e.run(input, e.book("classify")...)
	require.Equal(t, 0, code, errOut)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "1\thigh\thi", lines[0])
	assert.Equal(t, "2\tequity\teq", lines[1])
	assert.Equal(t, "4\t-", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "5\terror\t"))

	code, out, _ = e.run("", e.book("fields")...)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "sec.rating\tint\trules=1\tconditions=1\t>=")

	code, _, _ = e.run("", e.book("rule", "delete", "eq")...)
	require.Equal(t, 0, code)
	code, _, errOut = e.run("", e.book("rule", "get", "eq")...)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not_found")

	code, _, _ = e.run("", e.book("book", "optimize")...)
	assert.Equal(t, 0, code)
}

func TestConfigFileFillsUnsetFlags(t *testing.T) {
	e := newEnv(t)
	cfg := e.path("rulebook.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("sqlite_path = \""+e.dir+"\"\nbook = \"cfgbook\"\nformat = \"json\"\n"), 0o644))

	code, _, errOut := e.run("", "--config", cfg, "book", "create", "--schema", e.path("schema.yaml"))
	require.Equal(t, 0, code, errOut)
	_, err := os.Stat(e.path("cfgbook.db"))
	require.NoError(t, err)

	code, out, _ := e.run("", "--config", cfg, "book", "schema")
	require.Equal(t, 0, code)
	assert.JSONEq(t, `{"sec.type":"string","sec.rating":"int","pos.opened":"datetime"}`, out)

	code, out, _ = e.run("", "--config", cfg, "--format", "pretty", "book", "schema")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "sec.rating\tint")
}
