package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateSessions, downCreateSessions)
}

// sessionsDDL holds the sessions table in the shape each scs store adapter
// reads: sqlite3store keeps expiry as a julian-day REAL, the others as
// timestamps.
var sessionsDDL = map[string]string{
	"sqlite3": `CREATE TABLE IF NOT EXISTS sessions (
    token  TEXT PRIMARY KEY,
    data   BLOB NOT NULL,
    expiry REAL NOT NULL
)`,
	"postgres": `CREATE TABLE IF NOT EXISTS sessions (
    token  TEXT PRIMARY KEY,
    data   BYTEA NOT NULL,
    expiry TIMESTAMPTZ NOT NULL
)`,
	"mysql": `CREATE TABLE IF NOT EXISTS sessions (
    token  CHAR(43) PRIMARY KEY,
    data   BLOB NOT NULL,
    expiry TIMESTAMP(6) NOT NULL
)`,
}

func upCreateSessions(ctx context.Context, tx *sql.Tx) error {
	ddl, ok := sessionsDDL[dialect]
	if !ok {
		return fmt.Errorf("create sessions table: unsupported dialect %q", dialect)
	}
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	index := `CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions (expiry)`
	if dialect == "mysql" {
		// MySQL has no IF NOT EXISTS for indexes; the table was just created.
		index = `CREATE INDEX sessions_expiry_idx ON sessions (expiry)`
	}
	if _, err := tx.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("index sessions expiry: %w", err)
	}
	return nil
}

func downCreateSessions(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS sessions`)
	return err
}
