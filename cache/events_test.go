package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/muisti/types"
)

func TestEventCache_PutGet(t *testing.T) {
	c := NewEventCache()
	ev := types.ResourceEvent{
		ID:        "ev-1",
		Timestamp: time.Now(),
		Type:      types.EventAlert,
		Severity:  types.SeverityHigh,
		NodeID:    "srv1",
		Message:   "cpu saturation",
	}

	c.Put(ev)

	got, ok := c.Get("ev-1")
	require.True(t, ok)
	assert.Equal(t, ev, got)

	_, ok = c.Get("ev-2")
	assert.False(t, ok)
}

func TestEventCache_PutReplacesSameID(t *testing.T) {
	c := NewEventCache()
	c.Put(types.ResourceEvent{ID: "ev-1", Message: "first"})
	c.Put(types.ResourceEvent{ID: "ev-1", Message: "second"})

	assert.Equal(t, 1, c.Size())
	got, _ := c.Get("ev-1")
	assert.Equal(t, "second", got.Message)
}

func TestEventCache_PruneByAge(t *testing.T) {
	c := NewEventCache()
	now := time.Now()

	c.Put(types.ResourceEvent{ID: "old", Timestamp: now.Add(-48 * time.Hour)})
	c.Put(types.ResourceEvent{ID: "fresh", Timestamp: now.Add(-time.Hour)})

	removed := c.Prune(now.Add(-24 * time.Hour))
	assert.Equal(t, 1, removed)

	_, ok := c.Get("old")
	assert.False(t, ok, "event stored 2 days ago is gone after a 1 day sweep")
	_, ok = c.Get("fresh")
	assert.True(t, ok, "event stored 1 hour ago remains")
}

func TestPredictionCache_PutListPrune(t *testing.T) {
	c := NewPredictionCache()
	now := time.Now()

	for i := 0; i < 3; i++ {
		c.Put(types.ResourcePrediction{
			Timestamp: now.Add(time.Duration(-i) * time.Hour),
			NodeID:    fmt.Sprintf("srv%d", i),
			Horizon:   types.Horizon1h,
			Algorithm: "ewma",
		})
	}
	assert.Equal(t, 3, c.Size())

	// Same coordinate replaces rather than duplicates.
	c.Put(types.ResourcePrediction{Timestamp: now, NodeID: "srv0", Horizon: types.Horizon1h, Algorithm: "holt"})
	assert.Equal(t, 3, c.Size())

	removed := c.Prune(now.Add(-90 * time.Minute))
	assert.Equal(t, 1, removed)
	assert.Len(t, c.List(), 2)
}
