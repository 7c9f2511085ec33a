/*
Package sqlstore provides a database/sql implementation of availability.TxStore.

PURPOSE:
  Owns the availability table and every read/write against it. The
  connection is injected as an Opener and only opened on Open(), so the
  store carries no hidden global state and tests can hand it an in-memory
  SQLite database.

KEY TABLE:
  availability:
    id           surrogate key (auto-increment)
    resource_id  bookable unit
    date         canonical YYYY-MM-DD
    status       available | booked | blocked | maintenance (CHECK)
    notes        nullable
    UNIQUE(resource_id, date)

UPSERT:
  INSERT ... ON CONFLICT(resource_id, date) DO UPDATE SET status, notes.
  Both SQLite (3.24+) and Postgres accept the same statement; only the
  placeholder style differs, handled by Dialect.Rebind.

CONCURRENCY:
  sync.RWMutex guards the handle. Each UpsertStatus call is one database
  transaction; a failure on any date rolls back the batch.

LIFECYCLE:
  New() -> Open(ctx) -> ... -> Close(). Calls outside that window return
  availability.ErrNotInitialized.

SEE ALSO:
  - store/sqlite: SQLite dialect and opener
  - store/postgres: Postgres dialect and opener
  - availability/store.go: Interface definitions
*/
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/warp/availability-engine/availability"
)

var _ availability.TxStore = (*Store)(nil)

// Opener creates the connection the store will own.
type Opener func(ctx context.Context) (*sql.DB, error)

// Dialect captures the SQL differences between backends.
type Dialect struct {
	Name   string
	Schema []string
	// Rebind rewrites ? placeholders for the backend. Nil means no rewrite.
	Rebind func(query string) string
}

func (d Dialect) rebind(query string) string {
	if d.Rebind == nil {
		return query
	}
	return d.Rebind(query)
}

// RebindDollar rewrites ? placeholders to $1, $2, ...
func RebindDollar(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Store implements availability.TxStore over database/sql.
type Store struct {
	dialect  Dialect
	open     Opener
	log      zerolog.Logger
	observer availability.UpsertObserver

	mu sync.RWMutex
	db *sql.DB
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithObserver reports batch outcomes to o.
func WithObserver(o availability.UpsertObserver) Option {
	return func(s *Store) { s.observer = o }
}

// New creates a store. No connection is made until Open.
func New(dialect Dialect, open Opener, opts ...Option) *Store {
	s := &Store{dialect: dialect, open: open, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects and ensures the schema exists. Calling Open on an open
// store is a no-op.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	db, err := s.open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open %s database: %w", s.dialect.Name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to reach %s database: %w", s.dialect.Name, err)
	}
	if err := migrate(ctx, db, s.dialect); err != nil {
		db.Close()
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	s.db = db
	s.log.Info().Str("dialect", s.dialect.Name).Msg("availability store ready")
	return nil
}

// Close releases the connection. Later calls return ErrNotInitialized.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.log.Info().Str("dialect", s.dialect.Name).Msg("availability store closed")
	return err
}

// Ready reports whether the store is between Open and Close.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db != nil
}

// DB exposes the underlying handle for test hooks. Nil when not open.
func (s *Store) DB() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

func migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	for _, stmt := range d.Schema {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

// =============================================================================
// WRITES
// =============================================================================

const upsertQuery = `
	INSERT INTO availability (resource_id, date, status, notes)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(resource_id, date) DO UPDATE SET
		status = excluded.status,
		notes = excluded.notes
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// UpsertStatus sets status on every date in one transaction.
func (s *Store) UpsertStatus(ctx context.Context, resourceID availability.ResourceID, dates []string, status availability.Status, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return availability.ErrNotInitialized
	}
	resourceID = resourceID.OrDefault()

	err := s.upsertBatch(ctx, resourceID, dates, status, notes)
	s.observe(status, len(dates), err)
	if err != nil {
		s.log.Error().Err(err).
			Str("resource", string(resourceID)).
			Str("status", string(status)).
			Int("batch_size", len(dates)).
			Msg("availability update rolled back")
		return &availability.TransactionError{ResourceID: resourceID, BatchSize: len(dates), Status: status, Err: err}
	}

	s.log.Debug().
		Str("resource", string(resourceID)).
		Str("status", string(status)).
		Strs("dates", dates).
		Msg("availability updated")
	return nil
}

func (s *Store) upsertBatch(ctx context.Context, resourceID availability.ResourceID, dates []string, status availability.Status, notes string) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, date := range dates {
		if err := s.upsertOne(ctx, sqlTx, resourceID, date, status, notes); err != nil {
			return err
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (s *Store) upsertOne(ctx context.Context, db execer, resourceID availability.ResourceID, date string, status availability.Status, notes string) error {
	_, err := db.ExecContext(ctx, s.dialect.rebind(upsertQuery),
		string(resourceID), date, string(status), nullString(notes))
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", date, err)
	}
	return nil
}

func (s *Store) observe(status availability.Status, n int, err error) {
	if s.observer != nil {
		s.observer.ObserveUpsert(string(status), n, err)
	}
}

// =============================================================================
// TRANSACTIONAL STORE (availability.TxStore interface)
// =============================================================================

// WithTx executes fn within a single database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(availability.Writer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return availability.ErrNotInitialized
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txWriter{tx: sqlTx, parent: s}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return &availability.TransactionError{Err: fmt.Errorf("failed to commit: %w", err)}
	}
	return nil
}

type txWriter struct {
	tx     *sql.Tx
	parent *Store
}

func (w *txWriter) UpsertStatus(ctx context.Context, resourceID availability.ResourceID, dates []string, status availability.Status, notes string) error {
	resourceID = resourceID.OrDefault()
	for _, date := range dates {
		if err := w.parent.upsertOne(ctx, w.tx, resourceID, date, status, notes); err != nil {
			w.parent.observe(status, len(dates), err)
			return &availability.TransactionError{ResourceID: resourceID, BatchSize: len(dates), Status: status, Err: err}
		}
	}
	w.parent.observe(status, len(dates), nil)
	return nil
}

// =============================================================================
// READS
// =============================================================================

// GetStatus returns the stored status, defaulting to available.
func (s *Store) GetStatus(ctx context.Context, resourceID availability.ResourceID, date string) (availability.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return "", availability.ErrNotInitialized
	}

	var status string
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind("SELECT status FROM availability WHERE resource_id = ? AND date = ?"),
		string(resourceID.OrDefault()), date,
	).Scan(&status)

	if errors.Is(err, sql.ErrNoRows) {
		return availability.StatusAvailable, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read status for %s: %w", date, err)
	}
	return availability.Status(status), nil
}

// QueryRange returns the stored records of one month ordered by date.
func (s *Store) QueryRange(ctx context.Context, resourceID availability.ResourceID, month time.Month, year int) ([]availability.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, availability.ErrNotInitialized
	}

	query := `
		SELECT id, resource_id, date, status, notes
		FROM availability
		WHERE resource_id = ? AND date LIKE ?
		ORDER BY date ASC
	`
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query),
		string(resourceID.OrDefault()), availability.MonthPrefix(month, year)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query availability: %w", err)
	}
	defer rows.Close()

	records := []availability.Record{}
	for rows.Next() {
		var (
			r        availability.Record
			resource string
			status   string
			notes    sql.NullString
		)
		if err := rows.Scan(&r.ID, &resource, &r.Date, &status, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan availability: %w", err)
		}
		r.ResourceID = availability.ResourceID(resource)
		r.Status = availability.Status(status)
		r.Notes = notes.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
