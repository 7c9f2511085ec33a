/*
importer.go - Reconciles legacy snapshots into the ledger

PURPOSE:
  Drives a parsed Snapshot through the normalizer and the store. The
  importer performs no I/O of its own; loaders hand it bytes.

ATOMICITY:
  The whole import runs inside one TxStore.WithTx. Each date is still
  written through the store's UpsertStatus entry point, but a store failure
  anywhere rolls back everything the import wrote. Entry-level problems
  (missing fields, bad dates, unknown statuses, days outside the month) are
  not store failures: the entry is skipped and reported.

ORDER:
  Array form: entries in payload order, so a later entry for the same date wins.
  Month-keyed form: keys sorted, then available, booked, blocked, maintenance.
*/
package availability

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SkippedEntry explains why part of a snapshot was not applied.
type SkippedEntry struct {
	Ref    string
	Reason string
}

// ImportResult summarizes a committed import.
type ImportResult struct {
	ResourceID ResourceID
	Shape      string
	Applied    int
	Skipped    []SkippedEntry
}

// ImportObserver receives import outcome counts. metrics.Collectors implements it.
type ImportObserver interface {
	ObserveImport(outcome string, n int)
}

// Importer reconciles snapshots into a TxStore.
type Importer struct {
	store    TxStore
	log      zerolog.Logger
	observer ImportObserver
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithImportLogger sets the importer's logger.
func WithImportLogger(l zerolog.Logger) ImporterOption {
	return func(i *Importer) { i.log = l }
}

// WithImportObserver reports outcome counts to o.
func WithImportObserver(o ImportObserver) ImporterOption {
	return func(i *Importer) { i.observer = o }
}

// NewImporter creates an importer writing to store.
func NewImporter(store TxStore, opts ...ImporterOption) *Importer {
	imp := &Importer{store: store, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// ImportJSON parses raw and imports it.
func (imp *Importer) ImportJSON(ctx context.Context, raw []byte, resourceID ResourceID) (ImportResult, error) {
	snap, err := ParseSnapshot(raw)
	if err != nil {
		return ImportResult{ResourceID: resourceID.OrDefault()}, err
	}
	return imp.Import(ctx, snap, resourceID)
}

// Import applies snap to resourceID in one transaction.
func (imp *Importer) Import(ctx context.Context, snap Snapshot, resourceID ResourceID) (ImportResult, error) {
	resourceID = resourceID.OrDefault()

	var res ImportResult
	err := imp.store.WithTx(ctx, func(w Writer) error {
		res = ImportResult{ResourceID: resourceID, Shape: ShapeOf(snap)}
		switch s := snap.(type) {
		case ArraySnapshot:
			return imp.importArray(ctx, w, s, &res)
		case MonthKeyedSnapshot:
			return imp.importMonthKeyed(ctx, w, s, &res)
		default:
			return fmt.Errorf("%w: unsupported snapshot %T", ErrInvalidSnapshot, snap)
		}
	})
	if err != nil {
		imp.log.Error().Err(err).
			Str("resource", string(resourceID)).
			Str("shape", ShapeOf(snap)).
			Msg("import rolled back")
		imp.observe("failed", 1)
		return ImportResult{ResourceID: resourceID, Shape: ShapeOf(snap)}, err
	}

	imp.observe("applied", res.Applied)
	imp.observe("skipped", len(res.Skipped))
	imp.log.Info().
		Str("resource", string(resourceID)).
		Str("shape", res.Shape).
		Int("applied", res.Applied).
		Int("skipped", len(res.Skipped)).
		Msg("import completed")
	return res, nil
}

func (imp *Importer) importArray(ctx context.Context, w Writer, entries ArraySnapshot, res *ImportResult) error {
	for _, e := range entries {
		ref := fmt.Sprintf("entry %d", e.Index)
		if e.Malformed {
			res.skip(ref, "entry is not a {date, status, notes} object")
			continue
		}
		if e.Date == "" || e.Status == "" {
			res.skip(ref, "missing date or status")
			continue
		}
		status, err := ParseStatus(e.Status)
		if err != nil {
			res.skip(ref, err.Error())
			continue
		}
		date, err := NormalizeDate(e.Date)
		if err != nil {
			res.skip(ref, err.Error())
			continue
		}
		if err := w.UpsertStatus(ctx, res.ResourceID, []string{date}, status, e.Notes); err != nil {
			return err
		}
		res.Applied++
	}
	return nil
}

func (imp *Importer) importMonthKeyed(ctx context.Context, w Writer, blocks MonthKeyedSnapshot, res *ImportResult) error {
	for _, b := range blocks {
		if b.Malformed {
			res.skip(b.Key, "value is not an object of day arrays")
			continue
		}
		if b.Conflict {
			res.skip(b.Key, `month also listed inside "availability"; the wrapped block wins`)
			continue
		}
		month, year, err := parseMonthKey(b.Key)
		if err != nil {
			res.skip(b.Key, err.Error())
			continue
		}
		last := DaysIn(month, year)

		for _, sd := range b.Days {
			for i, token := range sd.Days {
				day, err := strconv.Atoi(token)
				if err != nil || day < 1 || day > last {
					res.skip(fmt.Sprintf("%s %s[%d]", b.Key, sd.Status, i),
						fmt.Sprintf("%q is not a day of %s %d", token, month, year))
					continue
				}
				date := CanonicalDate(year, month, day)
				if err := w.UpsertStatus(ctx, res.ResourceID, []string{date}, sd.Status, ""); err != nil {
					return err
				}
				res.Applied++
			}
		}
	}
	return nil
}

// parseMonthKey accepts "M/YYYY", "MM/YYYY" and "YYYY-MM".
func parseMonthKey(key string) (time.Month, int, error) {
	var month, year string
	switch {
	case strings.Contains(key, "/"):
		parts := strings.SplitN(key, "/", 2)
		month, year = parts[0], parts[1]
	case strings.Contains(key, "-"):
		parts := strings.SplitN(key, "-", 2)
		year, month = parts[0], parts[1]
	default:
		return 0, 0, fmt.Errorf("key %q is not month/year", key)
	}
	if strings.TrimSpace(month) == "" || strings.TrimSpace(year) == "" {
		return 0, 0, fmt.Errorf("key %q is missing month or year", key)
	}
	return ParseMonthYear(month, year)
}

func (r *ImportResult) skip(ref, reason string) {
	r.Skipped = append(r.Skipped, SkippedEntry{Ref: ref, Reason: reason})
}

func (imp *Importer) observe(outcome string, n int) {
	if imp.observer != nil && n > 0 {
		imp.observer.ObserveImport(outcome, n)
	}
}
