// Package records persists a trace of every tool call the broker executes.
package records

import (
	"database/sql"
	"fmt"
	"strings"

	// Registers "libsql" with database/sql for remote URLs (libsql://, https://, wss://).
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	// Pure-Go SQLite driver; libsql-client-go delegates file: URLs to it.
	_ "modernc.org/sqlite"
)

// driverName is the database/sql driver to use; tests may replace it.
var driverName = "libsql"

// Connect opens a libSQL database connection and verifies it with a ping.
//
// Supported URL schemes:
//
//	Local file:  "file:path/to/calls.db"
//	Remote Turso: "libsql://[db-name].turso.io?authToken=[token]"
func Connect(dbURL string) (*sql.DB, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("database URL must not be empty")
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open libsql: %w", err)
	}

	// SQLite allows a single writer; one connection makes concurrent inserts queue.
	if isLocal(dbURL) {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// isLocal reports whether dbURL names a local SQLite database.
func isLocal(dbURL string) bool {
	return strings.HasPrefix(dbURL, "file:") || dbURL == ":memory:"
}
