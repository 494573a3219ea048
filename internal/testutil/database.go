package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/saadjs/kcaldebt/internal/db"
)

// NewTestDB opens a migrated SQLite database in a temp dir, closed on cleanup.
func NewTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kcaldebt.db")
	sqldb, err := db.OpenMigrated(path)
	if err != nil {
		t.Fatalf("open migrated db: %v", err)
	}
	t.Cleanup(func() { _ = sqldb.Close() })
	return sqldb, path
}
