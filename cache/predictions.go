package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/yairfalse/muisti/types"
)

// PredictionCache indexes forecasts by (node, horizon, time).
type PredictionCache struct {
	mu          sync.RWMutex
	predictions map[string]types.ResourcePrediction
}

// NewPredictionCache creates an empty prediction cache.
func NewPredictionCache() *PredictionCache {
	return &PredictionCache{predictions: make(map[string]types.ResourcePrediction)}
}

func predictionKey(p types.ResourcePrediction) string {
	return fmt.Sprintf("%s:%s:%d", p.NodeID, p.Horizon, p.Timestamp.UnixMilli())
}

// Put stores a prediction, replacing any forecast at the same coordinate.
func (c *PredictionCache) Put(p types.ResourcePrediction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.predictions[predictionKey(p)] = p
}

// List returns all cached predictions in no particular order.
func (c *PredictionCache) List() []types.ResourcePrediction {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]types.ResourcePrediction, 0, len(c.predictions))
	for _, p := range c.predictions {
		out = append(out, p)
	}
	return out
}

// Prune removes predictions at or before the cutoff.
func (c *PredictionCache) Prune(cutoff time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, p := range c.predictions {
		if !p.Timestamp.After(cutoff) {
			delete(c.predictions, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of cached predictions.
func (c *PredictionCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.predictions)
}
