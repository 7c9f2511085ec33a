// Package postgres opens the availability store on Postgres through the pgx
// database/sql driver. Semantics match store/sqlite; only the schema's
// surrogate key type and placeholder style differ.
package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"github.com/warp/availability-engine/store/sqlstore"
)

const driverName = "pgx"

// Dialect is the Postgres schema for the availability table.
var Dialect = sqlstore.Dialect{
	Name: "postgres",
	Schema: []string{`
	CREATE TABLE IF NOT EXISTS availability (
		id BIGSERIAL PRIMARY KEY,
		resource_id TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL
			CHECK (status IN ('available', 'booked', 'blocked', 'maintenance')),
		notes TEXT,
		UNIQUE(resource_id, date)
	)`,
	},
	Rebind: sqlstore.RebindDollar,
}

// New creates a Postgres-backed store for dsn. Nothing is opened until Open.
func New(dsn string, opts ...sqlstore.Option) *sqlstore.Store {
	return sqlstore.New(Dialect, Opener(dsn), opts...)
}

// Opener returns an Opener for dsn.
func Opener(dsn string) sqlstore.Opener {
	return func(ctx context.Context) (*sql.DB, error) {
		return sql.Open(driverName, dsn)
	}
}
