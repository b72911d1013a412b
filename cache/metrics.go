// Package cache holds the engine's in-memory projections of recent
// telemetry. Caches are derived, disposable state: the durable store is
// the owner of record and caches can always be rebuilt from it.
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/yairfalse/muisti/types"
)

// DefaultMetricsCapacity bounds each node's metrics buffer.
const DefaultMetricsCapacity = 1000

// MetricsCache is a bounded per-node buffer of recent memory entries,
// the primary read path for hot queries. Eviction is append-then-trim:
// new entries are appended, and when a node's buffer exceeds capacity it
// is sorted newest-first and truncated. This bound protects memory
// independently of the retention window, which may be much longer.
type MetricsCache struct {
	mu       sync.RWMutex
	capacity int
	entries  map[string][]types.ResourceMemoryEntry
}

// NewMetricsCache creates a cache with the given per-node capacity.
func NewMetricsCache(capacity int) *MetricsCache {
	if capacity <= 0 {
		capacity = DefaultMetricsCapacity
	}
	return &MetricsCache{
		capacity: capacity,
		entries:  make(map[string][]types.ResourceMemoryEntry),
	}
}

// Append adds an entry to its node's buffer, trimming the oldest entries
// when the buffer exceeds capacity.
func (c *MetricsCache) Append(entry types.ResourceMemoryEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf := append(c.entries[entry.NodeID], entry)
	if len(buf) > c.capacity {
		sort.Slice(buf, func(i, j int) bool {
			return buf[i].Timestamp.After(buf[j].Timestamp)
		})
		buf = buf[:c.capacity]
	}
	c.entries[entry.NodeID] = buf
}

// Get returns a copy of a node's buffered entries.
// The second return reports whether the node has a buffer at all.
func (c *MetricsCache) Get(nodeID string) ([]types.ResourceMemoryEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	buf, ok := c.entries[nodeID]
	if !ok {
		return nil, false
	}
	out := make([]types.ResourceMemoryEntry, len(buf))
	copy(out, buf)
	return out, true
}

// Has reports whether any entry is buffered for the node.
func (c *MetricsCache) Has(nodeID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[nodeID]
	return ok
}

// Replace swaps a node's buffer wholesale, used when warming from storage.
func (c *MetricsCache) Replace(nodeID string, entries []types.ResourceMemoryEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf := make([]types.ResourceMemoryEntry, len(entries))
	copy(buf, entries)
	c.entries[nodeID] = buf
}

// Nodes returns the node identifiers with buffered entries.
func (c *MetricsCache) Nodes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	nodes := make([]string, 0, len(c.entries))
	for node := range c.entries {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	return nodes
}

// Prune drops entries at or before the cutoff from every node's buffer.
// Nodes left with no entries keep an empty buffer; the node was seen.
func (c *MetricsCache) Prune(cutoff time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for node, buf := range c.entries {
		kept := buf[:0]
		for _, entry := range buf {
			if entry.Timestamp.After(cutoff) {
				kept = append(kept, entry)
			}
		}
		removed += len(buf) - len(kept)
		c.entries[node] = kept
	}
	return removed
}

// Size returns the total number of buffered entries across all nodes.
func (c *MetricsCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := 0
	for _, buf := range c.entries {
		total += len(buf)
	}
	return total
}
