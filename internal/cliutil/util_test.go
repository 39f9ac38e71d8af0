package cliutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonibytes/rulebook/internal/cliopt"
	"github.com/nonibytes/rulebook/rulebook/rule"
	"github.com/nonibytes/rulebook/rulebook/storage"
	"github.com/nonibytes/rulebook/rulebook/storage/sqlite"
)

func TestResolveBookRef(t *testing.T) {
	g := cliopt.DefaultGlobalOptions()
	g.SQLitePath = "/books"
	assert.Equal(t, filepath.Join("/books", "trades.db"), ResolveBookRef(g, "trades"))
	assert.Equal(t, "x.db", ResolveBookRef(g, "x.db"))
	assert.Equal(t, "/tmp/a", ResolveBookRef(g, "/tmp/a"))

	g.Backend = "postgres"
	assert.Equal(t, "trades", ResolveBookRef(g, "trades"))
}

func TestNewAdapter(t *testing.T) {
	g := cliopt.DefaultGlobalOptions()
	_, err := NewAdapter(g)
	assert.ErrorContains(t, err, "missing --book")

	g.Book = "b"
	g.SQLiteDriver = "sqlite3"
	a, err := NewAdapter(g)
	require.NoError(t, err)
	assert.Equal(t, storage.BackendSQLite, a.Backend())
	assert.Equal(t, "sqlite3", a.(*sqlite.Adapter).DriverName)

	g.SQLiteDriver = "bogus"
	_, err = NewAdapter(g)
	assert.ErrorContains(t, err, "unknown sqlite driver")

	g.Backend = "postgres"
	_, err = NewAdapter(g)
	assert.ErrorContains(t, err, "missing --pg-dsn")

	g.PostgresDSN = "postgres://localhost/x"
	g.Book = "bad-name"
	_, err = NewAdapter(g)
	assert.ErrorContains(t, err, "not a valid postgres schema name")

	g.Book = "good_name"
	a, err = NewAdapter(g)
	require.NoError(t, err)
	assert.Equal(t, "postgres:good_name", a.BookID())

	g.Backend = "redis"
	_, err = NewAdapter(g)
	assert.ErrorContains(t, err, "unknown backend")
}

func TestReadSchemaFile(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(yml, []byte("sec.type: string\npos.amount: float\n"), 0o644))
	js := filepath.Join(dir, "s.json")
	require.NoError(t, os.WriteFile(js, []byte(`{"sec.type":"string","pos.amount":"float"}`), 0o644))

	want := rule.Schema{"sec.type": rule.FieldString, "pos.amount": rule.FieldFloat}
	for _, p := range []string{yml, js} {
		got, err := ReadSchemaFile(p)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestParseOutputFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseOutputFormat("json"))
	assert.Equal(t, FormatPretty, ParseOutputFormat("xml"))
}
