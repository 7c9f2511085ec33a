/*
store.go - Persistence interfaces for the availability ledger

PURPOSE:
  Defines the boundary between the ledger logic (importer, API) and the
  database. Implementations live under store/ (sqlstore, sqlite, postgres,
  memory).

UPSERT CONTRACT:
  UpsertStatus writes one row per date keyed by (resource, date). An
  existing row has its status and notes overwritten. The batch is atomic:
  a failure on any date rolls back every date in the call.

LIFECYCLE:
  Stores are constructed without I/O, opened explicitly, and closed
  explicitly. Any call outside Open..Close returns ErrNotInitialized.

SEE ALSO:
  - store/sqlstore/sqlstore.go: database/sql implementation
  - store/memory/memory.go: In-memory implementation
*/
package availability

import (
	"context"
	"time"
)

// Writer is the write half of a Store. Inside WithTx it is bound to the
// surrounding transaction.
type Writer interface {
	// UpsertStatus sets status (and notes, empty = none) on every date.
	// All-or-nothing.
	UpsertStatus(ctx context.Context, resourceID ResourceID, dates []string, status Status, notes string) error
}

// Store persists availability records.
type Store interface {
	Writer

	// GetStatus returns the status on date, or StatusAvailable if no record exists.
	GetStatus(ctx context.Context, resourceID ResourceID, date string) (Status, error)

	// QueryRange returns the stored records of one month, ordered by date.
	// Days without a record are not included.
	QueryRange(ctx context.Context, resourceID ResourceID, month time.Month, year int) ([]Record, error)
}

// TxStore adds an outer transaction spanning many writes.
type TxStore interface {
	Store

	// WithTx executes fn within one transaction.
	// If fn returns error, every write made through the Writer is rolled back.
	WithTx(ctx context.Context, fn func(Writer) error) error
}

// UpsertObserver receives one call per UpsertStatus batch, including batches
// written inside WithTx. metrics.Collectors implements it.
type UpsertObserver interface {
	ObserveUpsert(status string, batchSize int, err error)
}
