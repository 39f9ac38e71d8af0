package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/nonibytes/rulebook/rulebook/storage"
	"github.com/nonibytes/rulebook/rulebook/storage/sqlbuilder"
)

// Adapter keeps each rule book in its own postgres schema.
type Adapter struct {
	DSN    string
	Schema string
}

func New(dsn, schema string) *Adapter {
	return &Adapter{DSN: dsn, Schema: schema}
}

func (a *Adapter) Backend() storage.Backend { return storage.BackendPostgres }

func (a *Adapter) PlaceholderStyle() sqlbuilder.PlaceholderStyle { return sqlbuilder.PlaceholderDollar }

func (a *Adapter) BookID() string { return "postgres:" + a.Schema }

func (a *Adapter) Close() error { return nil }

func (a *Adapter) SQL() storage.SQL { return SQLTemplates }

var schemaNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidSchemaName reports whether name can be used as a book schema.
func ValidSchemaName(name string) bool {
	return schemaNameRe.MatchString(name)
}

func quoteIdent(ident string) string {
	// ident is validated to contain no quotes
	return `"` + ident + `"`
}

func (a *Adapter) ensureSchema(ctx context.Context, db *sql.DB) error {
	if a.Schema == "" || !ValidSchemaName(a.Schema) {
		return fmt.Errorf("invalid postgres schema name %q (must match %s)", a.Schema, schemaNameRe.String())
	}
	_, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoteIdent(a.Schema))
	return err
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	cfg0, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, err
	}
	db0 := stdlib.OpenDB(*cfg0)
	if err := db0.PingContext(ctx); err != nil {
		_ = db0.Close()
		return nil, err
	}
	if err := a.ensureSchema(ctx, db0); err != nil {
		_ = db0.Close()
		return nil, err
	}
	_ = db0.Close()

	cfg, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.RuntimeParams == nil {
		cfg.RuntimeParams = make(map[string]string)
	}
	cfg.RuntimeParams["search_path"] = fmt.Sprintf("%s,public", quoteIdent(a.Schema))

	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (a *Adapter) CreateBook(ctx context.Context, db *sql.DB, schemaJSON []byte) error {
	if _, err := db.ExecContext(ctx, ddlBase); err != nil {
		return err
	}

	sqlt := a.SQL()
	var existing string
	err := db.QueryRowContext(ctx, sqlt.GetMeta, storage.MetaMagic).Scan(&existing)
	if err == nil {
		return fmt.Errorf("rule book already exists in schema %s", a.Schema)
	}
	if err != sql.ErrNoRows {
		return err
	}

	if _, err := db.ExecContext(ctx, sqlt.SetMeta, storage.MetaMagic, storage.Magic); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, sqlt.SetMeta, storage.MetaVersion, storage.Version); err != nil {
		return err
	}
	return a.SetSchema(ctx, db, schemaJSON)
}

func (a *Adapter) OpenBook(ctx context.Context, db *sql.DB) ([]byte, error) {
	sqlt := a.SQL()
	var magic string
	if err := db.QueryRowContext(ctx, sqlt.GetMeta, storage.MetaMagic).Scan(&magic); err != nil {
		return nil, fmt.Errorf("read %s: %w", storage.MetaMagic, err)
	}
	if magic != storage.Magic {
		return nil, fmt.Errorf("not a rulebook db")
	}
	var schemaStr string
	if err := db.QueryRowContext(ctx, sqlt.GetMeta, storage.MetaSchema).Scan(&schemaStr); err != nil {
		return nil, err
	}
	return []byte(schemaStr), nil
}

func (a *Adapter) SetSchema(ctx context.Context, db *sql.DB, schemaJSON []byte) error {
	_, err := db.ExecContext(ctx, a.SQL().SetMeta, storage.MetaSchema, string(schemaJSON))
	return err
}

func (a *Adapter) Optimize(ctx context.Context, db *sql.DB) error {
	// ANALYZE only; VACUUM cannot run inside the pool's implicit transactions.
	_, err := db.ExecContext(ctx, "ANALYZE")
	return err
}
