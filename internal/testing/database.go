package testing

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/heraldai/herald/db"
)

// CreateTestDB creates a migrated SQLite test database in a temp directory.
// Store tests get the full chime schema without any setup of their own.
// Automatically registers cleanup via t.Cleanup().
//
// A file-backed database is used instead of :memory: because each pooled
// connection to :memory: would see its own empty database.
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "herald_test.db")
	conn, err := db.OpenWithMigrations(path, nil)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
	})

	return conn
}

// CreateBareTestDB creates an unmigrated in-memory SQLite database for tests
// that build their own schema. The pool is capped at one connection so every
// statement sees the same in-memory database.
func CreateBareTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	conn.SetMaxOpenConns(1)

	t.Cleanup(func() {
		conn.Close()
	})

	return conn
}
