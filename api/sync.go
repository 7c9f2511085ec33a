/*
sync.go - Snapshot import at startup and on a schedule

PURPOSE:
  When a snapshot source is configured, imports it once at startup and,
  if an interval is set, again on every tick. Each run is one import
  transaction through Handler.ImportFromLoader.

CONFIGURATION:
  - Interval: How often to re-import (0 disables the ticker)
  - Timeout: Deadline for a single run, startup included (0 = none)

USAGE:
  syncer := NewSnapshotSyncer(handler, "santa-maria", 15*time.Minute)
  syncer.Start()
  // ... later
  syncer.Stop()
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/availability-engine/availability"
)

// SnapshotSyncer re-imports the configured snapshot periodically.
type SnapshotSyncer struct {
	Handler    *Handler
	ResourceID availability.ResourceID
	Interval   time.Duration
	Timeout    time.Duration

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSnapshotSyncer creates a syncer for resourceID.
func NewSnapshotSyncer(h *Handler, resourceID availability.ResourceID, interval time.Duration) *SnapshotSyncer {
	return &SnapshotSyncer{
		Handler:    h,
		ResourceID: resourceID.OrDefault(),
		Interval:   interval,
	}
}

// RunOnce performs one import and logs the outcome. The run is bounded by
// Timeout when set.
func (ss *SnapshotSyncer) RunOnce(ctx context.Context) (availability.ImportResult, error) {
	if ss.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ss.Timeout)
		defer cancel()
	}

	res, source, err := ss.Handler.ImportFromLoader(ctx, ss.ResourceID)
	if err != nil {
		ss.Handler.Log.Error().Err(err).
			Str("resource", string(ss.ResourceID)).
			Str("source", source).
			Msg("snapshot sync failed")
		return res, err
	}
	ss.Handler.Log.Info().
		Str("resource", string(ss.ResourceID)).
		Str("source", source).
		Int("applied", res.Applied).
		Int("skipped", len(res.Skipped)).
		Msg("snapshot synced")
	return res, nil
}

// Start begins periodic syncing. It does nothing when Interval <= 0 or
// when already started.
func (ss *SnapshotSyncer) Start() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.Interval <= 0 {
		ss.Handler.Log.Info().Msg("snapshot sync disabled")
		return
	}
	if ss.ticker != nil {
		return
	}

	ss.ticker = time.NewTicker(ss.Interval)
	ss.stop = make(chan struct{})
	ss.wg.Add(1)

	go ss.run(ss.ticker, ss.stop)

	ss.Handler.Log.Info().Dur("interval", ss.Interval).Msg("snapshot sync started")
}

// Stop halts syncing and waits for an in-flight run. Safe to call twice.
func (ss *SnapshotSyncer) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.ticker == nil {
		return
	}
	ss.ticker.Stop()
	close(ss.stop)
	ss.wg.Wait()
	ss.ticker = nil
	ss.Handler.Log.Info().Msg("snapshot sync stopped")
}

func (ss *SnapshotSyncer) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer ss.wg.Done()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), ss.Interval)
			ss.RunOnce(ctx)
			cancel()
		case <-stop:
			return
		}
	}
}
