package availability_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/availability-engine/availability"
	"github.com/warp/availability-engine/store/memory"
	"github.com/warp/availability-engine/store/sqlite"
)

// stores returns one opened instance of every TxStore used in tests.
func stores(t *testing.T) map[string]availability.TxStore {
	t.Helper()
	ctx := context.Background()

	mem := memory.NewMemory()
	require.NoError(t, mem.Open(ctx))

	sq := sqlite.New(":memory:")
	require.NoError(t, sq.Open(ctx))
	t.Cleanup(func() { sq.Close() })

	return map[string]availability.TxStore{"memory": mem, "sqlite": sq}
}

type observed struct {
	counts map[string]int
}

func (o *observed) ObserveImport(outcome string, n int) {
	if o.counts == nil {
		o.counts = map[string]int{}
	}
	o.counts[outcome] += n
}

func TestImporter_MonthKeyed(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			obs := &observed{}
			imp := availability.NewImporter(store, availability.WithImportObserver(obs))

			// GIVEN: a month-keyed snapshot for August 2025
			raw := `{"8/2025": {"available": [1, 2], "booked": [10], "blocked": [], "maintenance": []}}`

			// WHEN: importing for santa-maria
			res, err := imp.ImportJSON(ctx, []byte(raw), "santa-maria")
			require.NoError(t, err)

			// THEN: three records exist with the listed statuses
			assert.Equal(t, 3, res.Applied)
			assert.Empty(t, res.Skipped)
			assert.Equal(t, "month-keyed", res.Shape)
			assert.Equal(t, 3, obs.counts["applied"])

			for date, want := range map[string]availability.Status{
				"2025-08-01": availability.StatusAvailable,
				"2025-08-02": availability.StatusAvailable,
				"2025-08-10": availability.StatusBooked,
			} {
				got, err := store.GetStatus(ctx, "santa-maria", date)
				require.NoError(t, err)
				assert.Equal(t, want, got, date)
			}

			records, err := store.QueryRange(ctx, "santa-maria", time.August, 2025)
			require.NoError(t, err)
			assert.Len(t, records, 3)
			for _, r := range records {
				assert.Empty(t, r.Notes)
			}
		})
	}
}

func TestImporter_Array_SkipsIncompleteEntries(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			imp := availability.NewImporter(store)

			// GIVEN: one complete entry and one without a status
			raw := `[
				{"date": "2025-08-10", "status": "maintenance", "notes": "boiler"},
				{"date": "2025-08-11"}
			]`

			res, err := imp.ImportJSON(ctx, []byte(raw), "")
			require.NoError(t, err)

			// THEN: only the complete entry is stored; the other is reported
			assert.Equal(t, availability.DefaultResource, res.ResourceID)
			assert.Equal(t, 1, res.Applied)
			require.Len(t, res.Skipped, 1)
			assert.Equal(t, "entry 1", res.Skipped[0].Ref)

			records, err := store.QueryRange(ctx, availability.DefaultResource, time.August, 2025)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, "2025-08-10", records[0].Date)
			assert.Equal(t, availability.StatusMaintenance, records[0].Status)
			assert.Equal(t, "boiler", records[0].Notes)
		})
	}
}

func TestImporter_Array_NormalizesAndValidates(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			imp := availability.NewImporter(store)

			raw := `[
				{"date": "Aug 12 2025", "status": "booked"},
				{"date": "2025-08-13", "status": "reserved"},
				{"date": "12th of Aug", "status": "booked"},
				{"date": "2025-08-12", "status": "blocked"}
			]`

			res, err := imp.ImportJSON(ctx, []byte(raw), "casa-azul")
			require.NoError(t, err)
			assert.Equal(t, 2, res.Applied)
			assert.Len(t, res.Skipped, 2)

			// later entry for the same date wins
			got, err := store.GetStatus(ctx, "casa-azul", "2025-08-12")
			require.NoError(t, err)
			assert.Equal(t, availability.StatusBlocked, got)

			// nothing leaked into the default resource
			records, err := store.QueryRange(ctx, availability.DefaultResource, time.August, 2025)
			require.NoError(t, err)
			assert.Empty(t, records)
		})
	}
}

func TestImporter_MonthKeyed_LegacyKeysAndBadDays(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			imp := availability.NewImporter(store)

			raw := `{"availability": {
				"2025-02": {"available_days": [1, 29, "x"], "booked_days": ["28"]},
				"13/2025": {"available": [1]},
				"later": {"booked": [1]}
			}}`

			res, err := imp.ImportJSON(ctx, []byte(raw), "santa-maria")
			require.NoError(t, err)

			// 2025-02-01 and 2025-02-28 applied; day 29, "x" and both bad keys skipped
			assert.Equal(t, 2, res.Applied)
			assert.Len(t, res.Skipped, 4)

			records, err := store.QueryRange(ctx, "santa-maria", time.February, 2025)
			require.NoError(t, err)
			require.Len(t, records, 2)
			assert.Equal(t, "2025-02-01", records[0].Date)
			assert.Equal(t, availability.StatusBooked, records[1].Status)
		})
	}
}

func TestImporter_MonthKeyed_WrapperSiblings(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			imp := availability.NewImporter(store)

			raw := `{
				"availability": {"2025-07": {"booked_days": [2]}},
				"8/2025": {"booked": [10]},
				"2025-07": {"available": [2, 9]},
				"updated": "2025-06-30"
			}`

			res, err := imp.ImportJSON(ctx, []byte(raw), "santa-maria")
			require.NoError(t, err)

			assert.Equal(t, 2, res.Applied)
			require.Len(t, res.Skipped, 1)
			assert.Equal(t, "2025-07", res.Skipped[0].Ref)
			assert.Contains(t, res.Skipped[0].Reason, "the wrapped block wins")

			got, err := store.GetStatus(ctx, "santa-maria", "2025-08-10")
			require.NoError(t, err)
			assert.Equal(t, availability.StatusBooked, got)

			got, err = store.GetStatus(ctx, "santa-maria", "2025-07-02")
			require.NoError(t, err)
			assert.Equal(t, availability.StatusBooked, got)

			records, err := store.QueryRange(ctx, "santa-maria", time.July, 2025)
			require.NoError(t, err)
			assert.Len(t, records, 1)
		})
	}
}

func TestImporter_InvalidPayload(t *testing.T) {
	mem := memory.NewMemory()
	require.NoError(t, mem.Open(context.Background()))
	imp := availability.NewImporter(mem)

	_, err := imp.ImportJSON(context.Background(), []byte("not json"), "santa-maria")
	assert.ErrorIs(t, err, availability.ErrInvalidSnapshot)
	assert.True(t, availability.IsClientError(err))
}

func TestImporter_NotInitialized(t *testing.T) {
	imp := availability.NewImporter(memory.NewMemory())
	_, err := imp.ImportJSON(context.Background(), []byte(`[]`), "santa-maria")
	assert.ErrorIs(t, err, availability.ErrNotInitialized)
}

func TestImporter_StoreFailure_RollsBackWholeImport(t *testing.T) {
	ctx := context.Background()
	raw := []byte(`{"8/2025": {"available": [1, 2], "booked": [10]}}`)

	t.Run("memory", func(t *testing.T) {
		mem := memory.NewMemory()
		require.NoError(t, mem.Open(ctx))
		mem.FailOn = func(_ availability.ResourceID, date string) error {
			if date == "2025-08-10" {
				return errors.New("disk full")
			}
			return nil
		}

		obs := &observed{}
		_, err := availability.NewImporter(mem, availability.WithImportObserver(obs)).ImportJSON(ctx, raw, "santa-maria")
		require.Error(t, err)
		assert.ErrorIs(t, err, availability.ErrTransactionFailed)
		assert.Equal(t, 1, obs.counts["failed"])

		records, err := mem.QueryRange(ctx, "santa-maria", time.August, 2025)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("sqlite", func(t *testing.T) {
		store := sqlite.New(":memory:")
		require.NoError(t, store.Open(ctx))
		t.Cleanup(func() { store.Close() })

		_, err := store.DB().ExecContext(ctx, `
			CREATE TRIGGER fail_day_ten BEFORE INSERT ON availability
			WHEN NEW.date = '2025-08-10'
			BEGIN SELECT RAISE(ABORT, 'injected failure'); END`)
		require.NoError(t, err)

		res, err := availability.NewImporter(store).ImportJSON(ctx, raw, "santa-maria")
		require.Error(t, err)
		assert.ErrorIs(t, err, availability.ErrTransactionFailed)
		assert.Zero(t, res.Applied)

		// days 1 and 2 were written before the failure and must be gone
		records, err := store.QueryRange(ctx, "santa-maria", time.August, 2025)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestLedger_EndToEnd_ImportThenBook(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// GIVEN: every day of August 2025 imported as available
			snap := availability.MonthKeyedSnapshot{{
				Key:  "8/2025",
				Days: []availability.StatusDays{{Status: availability.StatusAvailable, Days: dayTokens(31)}},
			}}
			res, err := availability.NewImporter(store).Import(ctx, snap, "santa-maria")
			require.NoError(t, err)
			require.Equal(t, 31, res.Applied)

			// WHEN: the first three days are booked
			dates := []string{"2025-08-01", "2025-08-02", "2025-08-03"}
			require.NoError(t, store.UpsertStatus(ctx, "santa-maria", dates, availability.StatusBooked, ""))

			// THEN: 31 records, 3 booked and 28 available
			records, err := store.QueryRange(ctx, "santa-maria", time.August, 2025)
			require.NoError(t, err)
			require.Len(t, records, 31)

			s := availability.Summarize(records, time.August, 2025)
			assert.Equal(t, 3, s.Counts[availability.StatusBooked])
			assert.Equal(t, 28, s.Counts[availability.StatusAvailable])
			assert.Zero(t, s.Unrecorded)

			report := availability.FormatReport(records, time.August, 2025)
			assert.Contains(t, report, "\n- Booked dates: 01, 02, 03")
		})
	}
}

func dayTokens(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i + 1)
	}
	return out
}
