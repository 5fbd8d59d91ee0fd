package database

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: "5433", User: "u", Password: "p", DBName: "events", SSLMode: "require"}
	want := "host=db port=5433 user=u password=p dbname=events sslmode=require"
	if got := cfg.DSN(); got != want {
		t.Fatalf("DSN() = %q, want %q", got, want)
	}
}

func TestExtractUp(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (x INT);\n-- +migrate Down\nDROP TABLE a;\n"
	got := strings.TrimSpace(extractUp(content))
	if got != "CREATE TABLE a (x INT);" {
		t.Fatalf("extractUp = %q", got)
	}
	if got := extractUp("SELECT 1;"); got != "SELECT 1;" {
		t.Fatalf("content without markers should pass through, got %q", got)
	}
}

func TestMigrationFilesEmbedded(t *testing.T) {
	for _, dir := range []string{"postgres", "sqlite"} {
		stmts, err := migrationFiles(dir)
		if err != nil {
			t.Fatalf("%s: %v", dir, err)
		}
		if len(stmts) == 0 {
			t.Fatalf("%s: expected at least one migration", dir)
		}
		if strings.Contains(stmts[0], "DROP TABLE") {
			t.Fatalf("%s: down section leaked into up statements", dir)
		}
	}
}

func TestOpenSQLite(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Fatal("expected empty path error")
	}

	path := filepath.Join(t.TempDir(), "events.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM contract_state`).Scan(&n); err != nil {
		t.Fatalf("schema missing: %v", err)
	}

	// Reopening replays migrations without error.
	db2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	db2.Close()
}
