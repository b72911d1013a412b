package cache

import (
	"sync"
	"time"

	"github.com/yairfalse/muisti/types"
)

// EventCache indexes discrete resource events by event identity.
type EventCache struct {
	mu     sync.RWMutex
	events map[string]types.ResourceEvent
}

// NewEventCache creates an empty event cache.
func NewEventCache() *EventCache {
	return &EventCache{events: make(map[string]types.ResourceEvent)}
}

// Put stores an event, replacing any event with the same id.
func (c *EventCache) Put(event types.ResourceEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[event.ID] = event
}

// Get returns the event with the given id.
func (c *EventCache) Get(id string) (types.ResourceEvent, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ev, ok := c.events[id]
	return ev, ok
}

// List returns all cached events in no particular order.
func (c *EventCache) List() []types.ResourceEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]types.ResourceEvent, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev)
	}
	return out
}

// Prune removes events at or before the cutoff.
func (c *EventCache) Prune(cutoff time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, ev := range c.events {
		if !ev.Timestamp.After(cutoff) {
			delete(c.events, id)
			removed++
		}
	}
	return removed
}

// Size returns the number of cached events.
func (c *EventCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.events)
}
