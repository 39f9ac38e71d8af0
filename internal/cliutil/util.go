package cliutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nonibytes/rulebook/internal/cliopt"
	"github.com/nonibytes/rulebook/rulebook"
	"github.com/nonibytes/rulebook/rulebook/observability"
	"github.com/nonibytes/rulebook/rulebook/rule"
	"github.com/nonibytes/rulebook/rulebook/storage"
	"github.com/nonibytes/rulebook/rulebook/storage/postgres"
	"github.com/nonibytes/rulebook/rulebook/storage/sqlite"
)

type OutputFormat string

const (
	FormatPretty OutputFormat = "pretty"
	FormatJSON   OutputFormat = "json"
)

func ParseOutputFormat(s string) OutputFormat {
	switch OutputFormat(s) {
	case FormatPretty, FormatJSON:
		return OutputFormat(s)
	default:
		return FormatPretty
	}
}

func PrintJSON(w io.Writer, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(b))
}

// ResolveBookRef transforms the --book value into a backend-specific reference.
//
//   - sqlite: a value containing a path separator or ending in .db is an
//     explicit path, anything else becomes <SQLitePath>/<name>.db.
//   - postgres: the name is used as the schema name.
func ResolveBookRef(g cliopt.GlobalOptions, book string) string {
	switch strings.ToLower(g.Backend) {
	case "sqlite":
		if strings.Contains(book, string(filepath.Separator)) || strings.HasSuffix(book, ".db") {
			return book
		}
		return filepath.Join(g.SQLitePath, book+".db")
	default:
		return book
	}
}

// NewAdapter returns the storage adapter selected by the global options.
func NewAdapter(g cliopt.GlobalOptions) (storage.Adapter, error) {
	if g.Book == "" {
		return nil, fmt.Errorf("missing --book")
	}
	ref := ResolveBookRef(g, g.Book)
	switch strings.ToLower(g.Backend) {
	case "sqlite":
		switch g.SQLiteDriver {
		case sqlite.DriverModernc, sqlite.DriverMattn:
			return sqlite.NewWithDriver(ref, g.SQLiteDriver), nil
		default:
			return nil, fmt.Errorf("unknown sqlite driver %q", g.SQLiteDriver)
		}
	case "postgres":
		if g.PostgresDSN == "" {
			return nil, fmt.Errorf("missing --pg-dsn")
		}
		if !postgres.ValidSchemaName(ref) {
			return nil, fmt.Errorf("book name %q is not a valid postgres schema name", ref)
		}
		return postgres.New(g.PostgresDSN, ref), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", g.Backend)
	}
}

// NewLogger returns a text logger on w at info level, or debug when verbose.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// BookOptions wires logging, metrics and tracing into book options.
func BookOptions(logger *slog.Logger) rulebook.BookOptions {
	opts := rulebook.DefaultBookOptions()
	opts.Logger = logger
	opts.Metrics = observability.NewMetricsRecorder()
	opts.Spans = observability.NewSpanManager()
	return opts
}

// OpenBook opens the book selected by the global options.
func OpenBook(ctx context.Context, g cliopt.GlobalOptions, logger *slog.Logger) (*rulebook.Book, error) {
	a, err := NewAdapter(g)
	if err != nil {
		return nil, err
	}
	return rulebook.Open(ctx, a, BookOptions(logger))
}

// CreateBook creates the book selected by the global options.
func CreateBook(ctx context.Context, g cliopt.GlobalOptions, schema rule.Schema, logger *slog.Logger) (*rulebook.Book, error) {
	a, err := NewAdapter(g)
	if err != nil {
		return nil, err
	}
	return rulebook.Create(ctx, a, schema, BookOptions(logger))
}

// ReadSchemaFile loads a schema from a .json, .yaml or .yml file.
func ReadSchemaFile(path string) (rule.Schema, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return rule.SchemaFromYAML(b)
	default:
		return rule.SchemaFromJSON(b)
	}
}

// ReadRecordFile decodes a single JSON record against schema.
func ReadRecordFile(path string, schema rule.Schema) (rule.Context, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return rulebook.DecodeRecord(b, schema)
}
