package engine

import (
	"context"
	"time"

	"github.com/yairfalse/muisti/wal"
)

// runSweeper runs the recurring retention sweep until Shutdown.
func (e *Engine) runSweeper() {
	defer e.sweepDone.Done()

	ticker := time.NewTicker(e.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.sweepStop:
			return
		case <-ticker.C:
			e.Sweep(context.Background())
		}
	}
}

// Sweep evicts data older than the retention window from the caches and
// delegates storage-level deletion to the store's own cleanup. A failed
// sweep never crashes the process or blocks ingestion; errors are logged
// and the next scheduled sweep retries.
func (e *Engine) Sweep(ctx context.Context) {
	started := e.now()
	cutoff := started.Add(-e.opts.RetentionPeriod)

	metricsRemoved := e.metricsCache.Prune(cutoff)
	eventsRemoved := e.eventCache.Prune(cutoff)
	predictionsRemoved := e.predictionCache.Prune(cutoff)

	cleanupErr := e.store.Cleanup(ctx)
	if cleanupErr != nil {
		e.logger.LogSweepError(ctx, cleanupErr)
	}

	// Journal files age out even when storage cleanup failed; the two
	// are independent and sweep errors are swallowed either way.
	if e.opts.Journal != nil {
		if err := wal.Cleanup(e.opts.Journal.Dir(), e.opts.RetentionPeriod); err != nil {
			e.logger.LogJournalError(ctx, "cleanup", err)
		}
	}

	duration := float64(time.Since(started).Microseconds()) / 1000
	e.logger.LogSweep(ctx, metricsRemoved, eventsRemoved, predictionsRemoved, duration)

	if cleanupErr == nil {
		e.journal(ctx, wal.EntrySweepCompleted, "", map[string]int{
			"metrics_removed":     metricsRemoved,
			"events_removed":      eventsRemoved,
			"predictions_removed": predictionsRemoved,
		})
	}
}
