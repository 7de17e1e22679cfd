package testutil

import (
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/joestump/streakcraft/internal/db"
)

// NewTestDB opens an in-memory SQLite DB with the sessions table migrated.
func NewTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	// Shared cache keeps every pool connection on the same in-memory
	// database; the test name keeps tests apart.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared&_busy_timeout=5000"
	conn, err := db.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open in-memory sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if err := db.Migrate(conn, "sqlite3"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return conn
}
