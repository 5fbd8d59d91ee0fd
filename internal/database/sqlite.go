package database

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"
)

// OpenSQLite opens the SQLite database at path and applies the schema.
// The handle is limited to a single connection: SQLite has one writer, and
// funnelling every transaction through one connection serialises contract
// calls instead of surfacing SQLITE_BUSY.
func OpenSQLite(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrateSQLite(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}
