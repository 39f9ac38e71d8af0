package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestFromFile(t *testing.T) {
	want := Config{Backend: "sqlite", Book: "trades", SQLitePath: "/var/books", SQLiteDriver: "sqlite3", Format: "json", Verbose: true}

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml", "rb.yaml", "backend: sqlite\nbook: trades\nsqlite_path: /var/books\nsqlite_driver: sqlite3\nformat: json\nverbose: true\n"},
		{"yml", "rb.yml", "backend: sqlite\nbook: trades\nsqlite_path: /var/books\nsqlite_driver: sqlite3\nformat: json\nverbose: true\n"},
		{"toml", "rb.toml", "backend = \"sqlite\"\nbook = \"trades\"\nsqlite_path = \"/var/books\"\nsqlite_driver = \"sqlite3\"\nformat = \"json\"\nverbose = true\n"},
		{"json", "rb.json", `{"backend":"sqlite","book":"trades","sqlite_path":"/var/books","sqlite_driver":"sqlite3","format":"json","verbose":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromFile(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestFromFileErrors(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")

	_, err = FromFile(writeFile(t, "rb.ini", "x=1"))
	assert.ErrorContains(t, err, "unsupported config file extension: .ini")

	_, err = FromFile(writeFile(t, "rb.toml", "backend = "))
	assert.ErrorContains(t, err, "parse toml")

	_, err = FromFile(writeFile(t, "rb.json", "{"))
	assert.ErrorContains(t, err, "parse json")
}

func TestValues(t *testing.T) {
	c := Config{Backend: "postgres", PostgresDSN: "postgres://x"}
	assert.Equal(t, map[string]string{"backend": "postgres", "pg-dsn": "postgres://x"}, c.Values())

	c.Verbose = true
	assert.Equal(t, "true", c.Values()["verbose"])
}
