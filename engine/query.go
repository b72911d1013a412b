package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/yairfalse/muisti/types"
)

// QueryMetrics serves filtered reads over stored metrics entries.
//
// Resolution order per node: a node with any cached entries is served
// exclusively from cache; storage is scanned only when no cache buffer
// exists for that node at all. A populated-but-incomplete cache is never
// supplemented from storage, so long ranges can under-report once the
// cache has trimmed older entries.
func (e *Engine) QueryMetrics(ctx context.Context, filter types.MetricsFilter) ([]types.ResourceMemoryEntry, error) {
	nodes := filter.Nodes()
	if len(nodes) == 0 {
		var err error
		nodes, err = e.queryableNodes(ctx)
		if err != nil {
			return nil, err
		}
	}

	var merged []types.ResourceMemoryEntry
	for _, nodeID := range nodes {
		entries, err := e.nodeEntries(ctx, nodeID, filter)
		if err != nil {
			return nil, err
		}
		merged = append(merged, entries...)
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})

	if filter.Aggregation != "" && filter.Aggregation != types.AggregateNone && filter.Interval > 0 {
		merged = aggregateEntries(merged, filter.Aggregation, filter.Interval)
	}

	return paginate(merged, filter.Offset, types.EffectiveLimit(filter.Limit)), nil
}

// nodeEntries resolves one node's entries, cache first.
func (e *Engine) nodeEntries(ctx context.Context, nodeID string, filter types.MetricsFilter) ([]types.ResourceMemoryEntry, error) {
	if cached, ok := e.metricsCache.Get(nodeID); ok {
		var matched []types.ResourceMemoryEntry
		for _, entry := range cached {
			if filter.InRange(entry.Timestamp) {
				matched = append(matched, entry)
			}
		}
		return matched, nil
	}
	return e.entriesFromStorage(ctx, nodeID, filter)
}

func (e *Engine) entriesFromStorage(ctx context.Context, nodeID string, filter types.MetricsFilter) ([]types.ResourceMemoryEntry, error) {
	keys, err := e.store.Scan(ctx, metricsNodePrefix(nodeID))
	if err != nil {
		return nil, fmt.Errorf("failed to scan metrics for node %s: %w", nodeID, err)
	}

	var matched []types.ResourceMemoryEntry
	for _, key := range keys {
		_, ts, ok := parseMetricsKey(key)
		if ok && !filter.InRange(ts) {
			continue
		}
		var entry types.ResourceMemoryEntry
		if err := e.store.Retrieve(ctx, key, &entry); err != nil {
			return nil, fmt.Errorf("failed to retrieve %s: %w", key, err)
		}
		if filter.InRange(entry.Timestamp) {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

// queryableNodes unions cached nodes with nodes known to storage.
func (e *Engine) queryableNodes(ctx context.Context) ([]string, error) {
	known, err := e.KnownNodes(ctx)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	for _, node := range known {
		seen[node] = true
	}
	for _, node := range e.metricsCache.Nodes() {
		if !seen[node] {
			known = append(known, node)
			seen[node] = true
		}
	}
	sort.Strings(known)
	return known, nil
}

// QueryEvents serves filtered reads over the event cache, newest first.
// Events are low-volume and preloaded at startup, so there is no storage
// fallback. Order of operations: sort descending, offset, then limit.
func (e *Engine) QueryEvents(ctx context.Context, filter types.EventFilter) ([]types.ResourceEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var matched []types.ResourceEvent
	for _, ev := range e.eventCache.List() {
		if filter.Matches(ev) {
			matched = append(matched, ev)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	return paginate(matched, filter.Offset, types.EffectiveLimit(filter.Limit)), nil
}

// QueryPredictions serves filtered reads over the prediction cache,
// newest first, limit applied last.
func (e *Engine) QueryPredictions(ctx context.Context, filter types.PredictionFilter) ([]types.ResourcePrediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var matched []types.ResourcePrediction
	for _, p := range e.predictionCache.List() {
		if filter.Matches(p) {
			matched = append(matched, p)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	return paginate(matched, 0, types.EffectiveLimit(filter.Limit)), nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
