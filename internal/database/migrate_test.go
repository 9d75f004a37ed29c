package database

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

// rawDB creates a database file outside the migration system.
func rawDB(t *testing.T, stmts ...string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "raw.db")
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	defer conn.Close()
	for _, stmt := range stmts {
		if _, err := conn.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return dbPath
}

func TestMigrateNewDB(t *testing.T) {
	db := openTestDB(t)

	version, err := getSchemaVersion(db.conn)
	if err != nil {
		t.Fatalf("getSchemaVersion: %v", err)
	}
	if version != latestVersion() {
		t.Errorf("expected version %d, got %d", latestVersion(), version)
	}
	tables, err := countTables(db.conn)
	if err != nil {
		t.Fatalf("countTables: %v", err)
	}
	if tables != 6 {
		t.Errorf("expected 6 tables, got %d", tables)
	}
}

func TestMigrateFromVersionOne(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "v1.db")
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	tx, err := conn.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := migrations[0].Up(tx); err != nil {
		t.Fatalf("migration 1: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := conn.Exec("PRAGMA user_version = 1"); err != nil {
		t.Fatalf("stamp: %v", err)
	}
	conn.Close()

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if _, err := db.GetLastImport(); err != nil {
		t.Errorf("expected imports table after upgrade: %v", err)
	}
}

func TestMigrateRejectsForeignDB(t *testing.T) {
	dbPath := rawDB(t, "CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)")

	_, err := Open(dbPath)
	if err == nil || !strings.Contains(err.Error(), "not a crisisboard database") {
		t.Fatalf("expected foreign database to be rejected, got %v", err)
	}
}

func TestMigrateRejectsNewerSchema(t *testing.T) {
	dbPath := rawDB(t, "PRAGMA user_version = 99")

	_, err := Open(dbPath)
	if err == nil || !strings.Contains(err.Error(), "newer than this build") {
		t.Fatalf("expected newer schema to be rejected, got %v", err)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "idem.db")

	db1, err := Open(dbPath)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	db1.Close()

	db2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer db2.Close()

	version, err := getSchemaVersion(db2.conn)
	if err != nil {
		t.Fatalf("getSchemaVersion: %v", err)
	}
	if version != latestVersion() {
		t.Errorf("expected version %d, got %d", latestVersion(), version)
	}
}

func TestOpenReadOnlyMissingFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "absent.db")

	if _, err := OpenReadOnly(dbPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
	if _, err := os.Stat(dbPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("read-only open must not create the database file")
	}
}

func TestOpenReadOnly(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ro.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := db.ImportDataset("seed.json", testDataset()); err != nil {
		t.Fatalf("ImportDataset: %v", err)
	}
	db.Close()

	ro, err := OpenReadOnly(dbPath)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	defer ro.Close()

	stats, err := ro.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Messages != 3 {
		t.Errorf("expected 3 messages, got %d", stats.Messages)
	}
	if err := ro.SaveBlockList([]string{"rt"}); err == nil {
		t.Error("expected write through read-only handle to fail")
	}
}

func TestOpenReadOnlyRejectsOutdatedSchema(t *testing.T) {
	dbPath := rawDB(t, "PRAGMA user_version = 1")
	if _, err := OpenReadOnly(dbPath); err == nil {
		t.Error("expected outdated schema to be rejected")
	}
}
