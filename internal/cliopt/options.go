package cliopt

import (
	"fmt"
	"sort"

	"github.com/spf13/pflag"
)

// GlobalOptions are parsed once at the CLI root and passed to subcommands.
//
// NOTE: This is a separate package to avoid import cycles between the root
// command and per-command code.
type GlobalOptions struct {
	Backend      string
	Book         string
	SQLitePath   string
	SQLiteDriver string
	PostgresDSN  string

	Format  string
	Config  string
	Verbose bool
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		Backend:      "sqlite",
		SQLitePath:   ".",
		SQLiteDriver: "sqlite",
		Format:       "pretty",
	}
}

func BindGlobalFlags(fs *pflag.FlagSet, g *GlobalOptions) {
	fs.StringVar(&g.Backend, "backend", g.Backend, "backend: sqlite|postgres")
	fs.StringVarP(&g.Book, "book", "b", g.Book, "book name, or an explicit .db path for sqlite")

	fs.StringVar(&g.SQLitePath, "sqlite-path", g.SQLitePath, "directory holding sqlite books")
	fs.StringVar(&g.SQLiteDriver, "sqlite-driver", g.SQLiteDriver, "sqlite driver: sqlite (pure Go) or sqlite3 (cgo)")

	fs.StringVar(&g.PostgresDSN, "pg-dsn", g.PostgresDSN, "postgres DSN")

	fs.StringVar(&g.Format, "format", g.Format, "output format: pretty|json")
	fs.StringVar(&g.Config, "config", g.Config, "config file (.yaml, .toml or .json)")
	fs.BoolVarP(&g.Verbose, "verbose", "v", g.Verbose, "debug logging")
}

// ApplyDefaults sets every flag in values that was not given on the command line.
func ApplyDefaults(fs *pflag.FlagSet, values map[string]string) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := fs.Lookup(name)
		if f == nil || f.Changed {
			continue
		}
		if err := fs.Set(name, values[name]); err != nil {
			return fmt.Errorf("config %s: %w", name, err)
		}
	}
	return nil
}
