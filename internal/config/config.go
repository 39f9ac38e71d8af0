// Package config loads CLI defaults from a YAML, TOML or JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config mirrors the CLI's global flags. Empty values are left unset.
type Config struct {
	Backend      string `json:"backend" yaml:"backend" toml:"backend"`
	Book         string `json:"book" yaml:"book" toml:"book"`
	SQLitePath   string `json:"sqlite_path" yaml:"sqlite_path" toml:"sqlite_path"`
	SQLiteDriver string `json:"sqlite_driver" yaml:"sqlite_driver" toml:"sqlite_driver"`
	PostgresDSN  string `json:"pg_dsn" yaml:"pg_dsn" toml:"pg_dsn"`
	Format       string `json:"format" yaml:"format" toml:"format"`
	Verbose      bool   `json:"verbose" yaml:"verbose" toml:"verbose"`
}

// FromFile loads configuration from a file, auto-detecting format by extension.
// Supported extensions: .yaml, .yml, .toml, .json
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".toml":
		return FromTOML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Config{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}
}

func FromYAML(data []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	return c, nil
}

func FromTOML(data []byte) (Config, error) {
	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse toml: %w", err)
	}
	return c, nil
}

func FromJSON(data []byte) (Config, error) {
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse json: %w", err)
	}
	return c, nil
}

// Values returns the non-empty settings keyed by flag name.
func (c Config) Values() map[string]string {
	out := make(map[string]string)
	set := func(name, v string) {
		if v != "" {
			out[name] = v
		}
	}
	set("backend", c.Backend)
	set("book", c.Book)
	set("sqlite-path", c.SQLitePath)
	set("sqlite-driver", c.SQLiteDriver)
	set("pg-dsn", c.PostgresDSN)
	set("format", c.Format)
	if c.Verbose {
		out["verbose"] = "true"
	}
	return out
}
