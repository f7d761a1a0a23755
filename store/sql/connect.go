package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// OpenPostgres opens a postgres-backed bun.DB for hosts that wire the stores
// without their own persistence client.
func OpenPostgres(dsn string) (*bun.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore: postgres dsn is required")
	}
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open postgres: %w", err)
	}
	return bun.NewDB(sqlDB, pgdialect.New()), nil
}

// OpenSQLite opens a sqlite-backed bun.DB. In-memory databases are pinned to
// a single connection so every query sees the same instance.
func OpenSQLite(dsn string) (*bun.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore: sqlite dsn is required")
	}
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open sqlite: %w", err)
	}
	if strings.Contains(dsn, "mode=memory") || strings.Contains(dsn, ":memory:") {
		sqlDB.SetMaxOpenConns(1)
	}
	return bun.NewDB(sqlDB, sqlitedialect.New()), nil
}
