package storage

import (
	"context"
	"database/sql"

	"github.com/nonibytes/rulebook/rulebook/storage/sqlbuilder"
)

type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Meta keys written by every adapter
const (
	MetaMagic   = "rulebook_magic"
	MetaVersion = "rulebook_version"
	MetaSchema  = "schema_json"

	Magic   = "rulebook"
	Version = "1"
)

// Adapter abstracts database-specific operations
type Adapter interface {
	Backend() Backend
	PlaceholderStyle() sqlbuilder.PlaceholderStyle
	BookID() string

	Connect(ctx context.Context) (*sql.DB, error)
	Close() error

	CreateBook(ctx context.Context, db *sql.DB, schemaJSON []byte) error
	OpenBook(ctx context.Context, db *sql.DB) (schemaJSON []byte, err error)
	SetSchema(ctx context.Context, db *sql.DB, schemaJSON []byte) error
	Optimize(ctx context.Context, db *sql.DB) error

	SQL() SQL
}

// SQL holds prepared SQL templates for common operations
type SQL struct {
	GetMeta string
	SetMeta string

	GetRule         string
	FindRule        string
	MaxPosition     string
	CountRules      string
	AllRules        string
	RuleIDsInOrder  string
	InsertRule      string
	UpdateRule      string
	DeleteRule      string
	SetRulePosition string
	CompactAfter    string

	// ListRulesSelect is completed by a WHERE/ORDER BY built with a sqlbuilder.
	ListRulesSelect string
}

// RuleColumns is the column order of GetRule, AllRules and ListRulesSelect.
const RuleColumns = "id, label, mapping_id, mapping_label, position, expressions, created_at, updated_at"
