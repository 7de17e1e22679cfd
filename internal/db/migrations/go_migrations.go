// Package migrations holds the Go migrations for the session store tables.
// They are Go rather than SQL because the schema differs per dialect.
package migrations

// dialect is set by db.Migrate before goose runs.
var dialect string

// SetDialect selects the SQL dialect: "sqlite3", "postgres", or "mysql".
func SetDialect(d string) {
	dialect = d
}
