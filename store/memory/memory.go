// Package memory provides an in-memory availability.TxStore for tests and
// local development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/warp/availability-engine/availability"
)

var _ availability.TxStore = (*Memory)(nil)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type key struct {
	ResourceID availability.ResourceID
	Date       string
}

type Memory struct {
	mu      sync.RWMutex
	ready   bool
	records map[key]availability.Record
	nextID  int64

	log      zerolog.Logger
	observer availability.UpsertObserver

	// FailOn, when set, is consulted before every write. A non-nil error
	// fails the write the same way a driver error would.
	FailOn func(resourceID availability.ResourceID, date string) error
}

// Option configures a Memory store.
type Option func(*Memory)

// WithLogger sets the store's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Memory) { m.log = l }
}

// WithObserver reports batch outcomes to o.
func WithObserver(o availability.UpsertObserver) Option {
	return func(m *Memory) { m.observer = o }
}

func NewMemory(opts ...Option) *Memory {
	m := &Memory{records: make(map[key]availability.Record), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open marks the store ready. Records survive Close/Open cycles.
func (m *Memory) Open(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = true
	m.log.Info().Str("dialect", "memory").Msg("availability store ready")
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = false
	m.log.Info().Str("dialect", "memory").Msg("availability store closed")
	return nil
}

func (m *Memory) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

// UpsertStatus writes every date or none.
func (m *Memory) UpsertStatus(ctx context.Context, resourceID availability.ResourceID, dates []string, status availability.Status, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		return availability.ErrNotInitialized
	}

	resourceID = resourceID.OrDefault()
	staged := m.stage()
	if err := staged.UpsertStatus(ctx, resourceID, dates, status, notes); err != nil {
		m.log.Error().Err(err).
			Str("resource", string(resourceID)).
			Str("status", string(status)).
			Int("batch_size", len(dates)).
			Msg("availability update rolled back")
		return err
	}
	m.commit(staged)

	m.log.Debug().
		Str("resource", string(resourceID)).
		Str("status", string(status)).
		Strs("dates", dates).
		Msg("availability updated")
	return nil
}

// WithTx runs fn against a staged copy and swaps it in on success.
func (m *Memory) WithTx(_ context.Context, fn func(availability.Writer) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		return availability.ErrNotInitialized
	}

	staged := m.stage()
	if err := fn(staged); err != nil {
		return err
	}
	m.commit(staged)
	return nil
}

func (m *Memory) GetStatus(_ context.Context, resourceID availability.ResourceID, date string) (availability.Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.ready {
		return "", availability.ErrNotInitialized
	}
	r, ok := m.records[key{ResourceID: resourceID.OrDefault(), Date: date}]
	if !ok {
		return availability.StatusAvailable, nil
	}
	return r.Status, nil
}

func (m *Memory) QueryRange(_ context.Context, resourceID availability.ResourceID, month time.Month, year int) ([]availability.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.ready {
		return nil, availability.ErrNotInitialized
	}

	resourceID = resourceID.OrDefault()
	prefix := availability.MonthPrefix(month, year)
	result := []availability.Record{}
	for k, r := range m.records {
		if k.ResourceID == resourceID && strings.HasPrefix(k.Date, prefix) {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result, nil
}

// =============================================================================
// STAGING
// =============================================================================

type staging struct {
	records  map[key]availability.Record
	nextID   int64
	failOn   func(availability.ResourceID, string) error
	observer availability.UpsertObserver
}

func (m *Memory) stage() *staging {
	cp := make(map[key]availability.Record, len(m.records))
	for k, v := range m.records {
		cp[k] = v
	}
	return &staging{records: cp, nextID: m.nextID, failOn: m.FailOn, observer: m.observer}
}

func (m *Memory) commit(s *staging) {
	m.records = s.records
	m.nextID = s.nextID
}

func (s *staging) UpsertStatus(_ context.Context, resourceID availability.ResourceID, dates []string, status availability.Status, notes string) error {
	err := s.upsert(resourceID.OrDefault(), dates, status, notes)
	if s.observer != nil {
		s.observer.ObserveUpsert(string(status), len(dates), err)
	}
	return err
}

func (s *staging) upsert(resourceID availability.ResourceID, dates []string, status availability.Status, notes string) error {
	if !status.Valid() {
		return &availability.TransactionError{ResourceID: resourceID, BatchSize: len(dates), Status: status,
			Err: &availability.ValidationError{Field: "status", Message: "rejected by store"}}
	}
	for _, date := range dates {
		if s.failOn != nil {
			if err := s.failOn(resourceID, date); err != nil {
				return &availability.TransactionError{ResourceID: resourceID, BatchSize: len(dates), Status: status, Err: err}
			}
		}
		k := key{ResourceID: resourceID, Date: date}
		r, ok := s.records[k]
		if !ok {
			s.nextID++
			r = availability.Record{ID: s.nextID, ResourceID: resourceID, Date: date}
		}
		r.Status = status
		r.Notes = notes
		s.records[k] = r
	}
	return nil
}
