package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql
var postgresSchema embed.FS

//go:embed sqlite/*.sql
var sqliteSchema embed.FS

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

// Apply runs all pending migrations for the given dialect.
func Apply(db *sql.DB, dialect string) error {
	var (
		fsys embed.FS
		dir  string
	)
	switch dialect {
	case DialectPostgres:
		fsys, dir = postgresSchema, "postgres"
	case DialectSQLite:
		fsys, dir = sqliteSchema, "sqlite"
	default:
		return fmt.Errorf("unsupported migration dialect: %s", dialect)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
