package repo

import (
	"path/filepath"
	"testing"
)

func TestOpenSQLite_CreatesAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	for _, table := range []string{"content_entries", "generation_logs", "proposal_feedback", "idempotency"} {
		if !db.Migrator().HasTable(table) {
			t.Fatalf("missing table %q", table)
		}
	}
}

func TestOpenSQLite_MissingParentDir(t *testing.T) {
	if _, err := OpenSQLite(filepath.Join(t.TempDir(), "nope", "app.db")); err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}
