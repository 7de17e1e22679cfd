package db

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// sqlDrivers maps a session store name to its database/sql driver name.
// modernc.org/sqlite registers as "sqlite" (CGO-free).
var sqlDrivers = map[string]string{
	"sqlite3":  "sqlite",
	"mysql":    "mysql",
	"postgres": "postgres",
}

// Open connects to the database backing an SQL session store and verifies the
// connection.
func Open(store, dsn string) (*sqlx.DB, error) {
	driver, ok := sqlDrivers[store]
	if !ok {
		return nil, fmt.Errorf("session store %q has no database driver", store)
	}
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", store, err)
	}
	if store == "sqlite3" {
		// One writer at a time; WAL keeps readers unblocked.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}
	return db, nil
}
