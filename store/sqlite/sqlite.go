/*
Package sqlite opens the availability store on SQLite.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Single writer at a time
  - Better crash recovery

SINGLE CONNECTION:
  The pool is capped at one open connection. The store is designed around
  one logical connection, and ":memory:" databases are per-connection, so a
  second pooled connection would see an empty database.

USAGE:
  store := sqlite.New("./data/availability.db")
  if err := store.Open(ctx); err != nil {
      log.Fatal(err)
  }
  defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/availability-engine/store/sqlstore"
)

// Dialect is the SQLite schema for the availability table.
var Dialect = sqlstore.Dialect{
	Name: "sqlite",
	Schema: []string{`
	CREATE TABLE IF NOT EXISTS availability (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		resource_id TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL
			CHECK (status IN ('available', 'booked', 'blocked', 'maintenance')),
		notes TEXT,
		UNIQUE(resource_id, date)
	)`,
	},
}

// New creates a SQLite-backed store for dbPath. Use ":memory:" for an
// in-memory database. Nothing is opened until Open.
func New(dbPath string, opts ...sqlstore.Option) *sqlstore.Store {
	return sqlstore.New(Dialect, Opener(dbPath), opts...)
}

// Opener returns an Opener for dbPath, creating the parent directory of
// file databases.
func Opener(dbPath string) sqlstore.Opener {
	return func(ctx context.Context) (*sql.DB, error) {
		dsn := dbPath + "?_foreign_keys=on"
		if dbPath != ":memory:" {
			if dir := filepath.Dir(dbPath); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("failed to create %s: %w", dir, err)
				}
			}
			dsn += "&_journal_mode=WAL&_busy_timeout=5000"
		}

		db, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		return db, nil
	}
}
