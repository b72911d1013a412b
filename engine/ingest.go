package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yairfalse/muisti/types"
	"github.com/yairfalse/muisti/wal"
)

// validateNodeID rejects ids that cannot be embedded in a storage key.
// ':' is the key separator: a node id carrying one would make another
// node's prefix scan match its keys.
func validateNodeID(id string) error {
	if id == "" {
		return fmt.Errorf("missing node id")
	}
	if strings.Contains(id, ":") {
		return fmt.Errorf("node id %q must not contain ':'", id)
	}
	return nil
}

// StoreMetrics ingests one utilization report together with the events
// that occurred in the same collection cycle. The durable write completes
// before the cache update and the subscriber notification; on write
// failure the report is considered not-stored and neither happens.
//
// No deduplication: two reports with the same (node, timestamp) overwrite
// each other at the same key. Last write wins.
func (e *Engine) StoreMetrics(ctx context.Context, metrics types.ResourceMetrics, events []types.ResourceEvent) (types.ResourceMemoryEntry, error) {
	if err := validateNodeID(metrics.NodeID); err != nil {
		return types.ResourceMemoryEntry{}, fmt.Errorf("metrics report: %w", err)
	}
	if metrics.Timestamp.IsZero() {
		metrics.Timestamp = e.now()
	}

	entry := types.NewEntry(metrics, events)
	key := metricsKey(entry.NodeID, entry.Timestamp)

	if err := e.store.Store(ctx, key, entry); err != nil {
		return types.ResourceMemoryEntry{}, fmt.Errorf("failed to store metrics for node %s: %w", entry.NodeID, err)
	}

	e.metricsCache.Append(entry)
	e.journal(ctx, wal.EntryMetricsStored, key, entry)
	e.logger.LogIngest(ctx, "metrics", key, entry.NodeID)
	e.notifier.publishMetrics(entry)

	return entry, nil
}

// StoreEvent ingests a discrete resource event. Events without an id get
// one assigned. When indexing is enabled a secondary event_index key is
// written so future range scans can avoid loading every event.
func (e *Engine) StoreEvent(ctx context.Context, event types.ResourceEvent) (types.ResourceEvent, error) {
	// Cluster-level events carry no node id; node-scoped ones must key
	// cleanly into the event index.
	if event.NodeID != "" {
		if err := validateNodeID(event.NodeID); err != nil {
			return types.ResourceEvent{}, fmt.Errorf("event: %w", err)
		}
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = e.now()
	}

	key := eventKey(event.ID)
	if err := e.store.Store(ctx, key, event); err != nil {
		return types.ResourceEvent{}, fmt.Errorf("failed to store event %s: %w", event.ID, err)
	}

	if !e.opts.DisableEventIndexing && event.NodeID != "" {
		indexKey := eventIndexKey(event.NodeID, event.Timestamp)
		if err := e.store.Store(ctx, indexKey, event.ID); err != nil {
			return types.ResourceEvent{}, fmt.Errorf("failed to index event %s: %w", event.ID, err)
		}
	}

	e.eventCache.Put(event)
	e.journal(ctx, wal.EntryEventStored, key, event)
	e.logger.LogIngest(ctx, "event", key, event.NodeID)
	e.notifier.publishEvent(event)

	return event, nil
}

// StorePrediction ingests a forecast.
func (e *Engine) StorePrediction(ctx context.Context, prediction types.ResourcePrediction) (types.ResourcePrediction, error) {
	if err := validateNodeID(prediction.NodeID); err != nil {
		return types.ResourcePrediction{}, fmt.Errorf("prediction: %w", err)
	}
	if prediction.Timestamp.IsZero() {
		prediction.Timestamp = e.now()
	}

	key := predictionKey(prediction.NodeID, string(prediction.Horizon), prediction.Timestamp)
	if err := e.store.Store(ctx, key, prediction); err != nil {
		return types.ResourcePrediction{}, fmt.Errorf("failed to store prediction for node %s: %w", prediction.NodeID, err)
	}

	e.predictionCache.Put(prediction)
	e.journal(ctx, wal.EntryPredictionStored, key, prediction)
	e.logger.LogIngest(ctx, "prediction", key, prediction.NodeID)
	e.notifier.publishPrediction(prediction)

	return prediction, nil
}

// journal appends a best-effort record; failures never fail the ingest.
func (e *Engine) journal(ctx context.Context, entryType wal.EntryType, key string, data any) {
	if e.opts.Journal == nil {
		return
	}
	if err := e.opts.Journal.Append(entryType, key, data); err != nil {
		e.logger.LogJournalError(ctx, key, err)
	}
}
