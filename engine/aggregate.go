package engine

import (
	"sort"
	"time"

	"github.com/yairfalse/muisti/analytics"
	"github.com/yairfalse/muisti/types"
)

// aggregateEntries groups time-sorted entries into fixed-width buckets
// (bucketStart = floor(ts/interval)*interval) and reduces each bucket to
// one entry. Only buckets with at least one contributing entry exist in
// the output.
//
// Buckets are millisecond-resolution, matching key timestamps. An
// interval narrower than one millisecond cannot form a bucket and is
// treated like no interval at all: entries pass through unaggregated.
func aggregateEntries(entries []types.ResourceMemoryEntry, agg types.Aggregation, interval time.Duration) []types.ResourceMemoryEntry {
	if len(entries) == 0 || interval < time.Millisecond {
		return entries
	}

	buckets := map[int64][]types.ResourceMemoryEntry{}
	var order []int64
	for _, entry := range entries {
		start := entry.Timestamp.UnixMilli() / interval.Milliseconds() * interval.Milliseconds()
		if _, ok := buckets[start]; !ok {
			order = append(order, start)
		}
		buckets[start] = append(buckets[start], entry)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	out := make([]types.ResourceMemoryEntry, 0, len(order))
	for _, start := range order {
		out = append(out, reduceBucket(buckets[start], agg, time.UnixMilli(start).UTC()))
	}
	return out
}

// reduceBucket collapses a bucket into one entry. Varying fields (cpu
// usage, memory used/available, network latency) are reduced with the
// requested function; static fields (core count, bandwidth capacity,
// totals) are copied from the first entry. The result's timestamp is the
// bucket start, and its events are the identity-union of all events
// carried by the bucket's entries.
func reduceBucket(bucket []types.ResourceMemoryEntry, agg types.Aggregation, bucketStart time.Time) types.ResourceMemoryEntry {
	result := bucket[0]
	result.Timestamp = bucketStart
	result.Metrics.Timestamp = bucketStart

	if len(bucket) == 1 {
		return result
	}

	cpu := make([]float64, 0, len(bucket))
	memUsed := make([]float64, 0, len(bucket))
	memAvail := make([]float64, 0, len(bucket))
	latency := make([]float64, 0, len(bucket))
	for _, entry := range bucket {
		cpu = append(cpu, entry.Metrics.CPU.Usage)
		memUsed = append(memUsed, float64(entry.Metrics.Memory.Used))
		memAvail = append(memAvail, float64(entry.Metrics.Memory.Available))
		latency = append(latency, entry.Metrics.Network.Latency)
	}

	if v, ok := analytics.Reduce(cpu, agg); ok {
		result.Metrics.CPU.Usage = v
	}
	if v, ok := analytics.Reduce(memUsed, agg); ok {
		result.Metrics.Memory.Used = uint64(v)
	}
	if v, ok := analytics.Reduce(memAvail, agg); ok {
		result.Metrics.Memory.Available = uint64(v)
	}
	if v, ok := analytics.Reduce(latency, agg); ok {
		result.Metrics.Network.Latency = v
	}

	result.Events = unionEvents(bucket)
	return result
}

// unionEvents merges every bucket entry's events, deduplicated by id.
func unionEvents(bucket []types.ResourceMemoryEntry) []types.ResourceEvent {
	seen := map[string]bool{}
	union := []types.ResourceEvent{}
	for _, entry := range bucket {
		for _, ev := range entry.Events {
			if seen[ev.ID] {
				continue
			}
			seen[ev.ID] = true
			union = append(union, ev)
		}
	}
	return union
}
