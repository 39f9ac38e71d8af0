package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/nonibytes/rulebook/rulebook/storage"
	"github.com/nonibytes/rulebook/rulebook/storage/sqlbuilder"
)

// Driver names registered by modernc.org/sqlite and github.com/mattn/go-sqlite3.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

type Adapter struct {
	Path       string
	DriverName string
}

// New uses the pure-Go modernc driver. The caller registers it with a
// blank import of modernc.org/sqlite.
func New(path string) *Adapter {
	return &Adapter{Path: path, DriverName: DriverModernc}
}

func NewWithDriver(path, driver string) *Adapter {
	return &Adapter{Path: path, DriverName: driver}
}

func (a *Adapter) Backend() storage.Backend {
	return storage.BackendSQLite
}

func (a *Adapter) PlaceholderStyle() sqlbuilder.PlaceholderStyle {
	return sqlbuilder.PlaceholderQuestion
}

func (a *Adapter) BookID() string {
	return a.Path
}

// dsnParams returns busy-timeout and foreign-key settings in the syntax of
// the configured driver.
func (a *Adapter) dsnParams() string {
	if a.DriverName == DriverMattn {
		return "_busy_timeout=5000&_foreign_keys=on"
	}
	return "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	dsn := a.Path
	if !strings.Contains(dsn, "?") {
		dsn = dsn + "?" + a.dsnParams()
	} else {
		dsn = dsn + "&" + a.dsnParams()
	}
	db, err := sql.Open(a.DriverName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (a *Adapter) Close() error {
	return nil
}

func (a *Adapter) SQL() storage.SQL {
	return SQLTemplates
}

func (a *Adapter) CreateBook(ctx context.Context, db *sql.DB, schemaJSON []byte) error {
	if _, err := db.ExecContext(ctx, ddlBase); err != nil {
		return err
	}
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode=WAL;")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")

	sqlt := a.SQL()
	var existing string
	err := db.QueryRowContext(ctx, sqlt.GetMeta, storage.MetaMagic).Scan(&existing)
	if err == nil {
		return fmt.Errorf("rule book already exists at %s", a.Path)
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
	_, _ = db.ExecContext(ctx, "PRAGMA optimize")
	_, err := db.ExecContext(ctx, "VACUUM")
	return err
}
