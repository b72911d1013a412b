package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/muisti/types"
)

func entryAt(node string, ts time.Time) types.ResourceMemoryEntry {
	return types.NewEntry(types.ResourceMetrics{
		Timestamp: ts,
		NodeID:    node,
		CPU:       types.CPUMetrics{Usage: 50, Cores: 4},
	}, nil)
}

func TestMetricsCache_AppendAndGet(t *testing.T) {
	c := NewMetricsCache(10)
	base := time.Now()

	c.Append(entryAt("srv1", base))
	c.Append(entryAt("srv1", base.Add(time.Minute)))

	entries, ok := c.Get("srv1")
	require.True(t, ok)
	assert.Len(t, entries, 2)

	_, ok = c.Get("srv2")
	assert.False(t, ok, "unknown node has no buffer")
}

func TestMetricsCache_EvictionKeepsMostRecent(t *testing.T) {
	c := NewMetricsCache(1000)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 1500; i++ {
		c.Append(entryAt("srv1", base.Add(time.Duration(i)*time.Second)))
	}

	entries, ok := c.Get("srv1")
	require.True(t, ok)
	require.Len(t, entries, 1000)

	// The 1000 most recent samples survive: everything from i=500 on.
	oldest := base.Add(500 * time.Second)
	for _, entry := range entries {
		assert.False(t, entry.Timestamp.Before(oldest),
			"entry at %v is older than the eviction boundary %v", entry.Timestamp, oldest)
	}
}

func TestMetricsCache_GetReturnsCopy(t *testing.T) {
	c := NewMetricsCache(10)
	c.Append(entryAt("srv1", time.Now()))

	entries, _ := c.Get("srv1")
	entries[0].NodeID = "mutated"

	again, _ := c.Get("srv1")
	assert.Equal(t, "srv1", again[0].NodeID, "callers must not see each other's mutations")
}

func TestMetricsCache_Prune(t *testing.T) {
	c := NewMetricsCache(10)
	now := time.Now()

	c.Append(entryAt("srv1", now.Add(-2*time.Hour)))
	c.Append(entryAt("srv1", now))
	c.Append(entryAt("srv2", now.Add(-3*time.Hour)))

	removed := c.Prune(now.Add(-time.Hour))
	assert.Equal(t, 2, removed)

	entries, ok := c.Get("srv1")
	require.True(t, ok)
	assert.Len(t, entries, 1)

	// srv2 keeps an empty buffer: the node is still known to the cache.
	assert.True(t, c.Has("srv2"))
	assert.Equal(t, 1, c.Size())
}

func TestMetricsCache_Nodes(t *testing.T) {
	c := NewMetricsCache(10)
	now := time.Now()

	c.Append(entryAt("srv2", now))
	c.Append(entryAt("srv1", now))

	assert.Equal(t, []string{"srv1", "srv2"}, c.Nodes())
}

func TestMetricsCache_Replace(t *testing.T) {
	c := NewMetricsCache(10)
	now := time.Now()

	c.Append(entryAt("srv1", now))
	c.Replace("srv1", []types.ResourceMemoryEntry{
		entryAt("srv1", now.Add(-time.Minute)),
		entryAt("srv1", now),
	})

	entries, ok := c.Get("srv1")
	require.True(t, ok)
	assert.Len(t, entries, 2)
}
