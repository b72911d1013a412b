package engine

import (
	"sync"

	"github.com/yairfalse/muisti/types"
)

// MetricsHandler receives entries after a successful metrics write.
type MetricsHandler func(types.ResourceMemoryEntry)

// EventHandler receives events after a successful event write.
type EventHandler func(types.ResourceEvent)

// PredictionHandler receives predictions after a successful write.
type PredictionHandler func(types.ResourcePrediction)

// Notifier delivers stored-entity notifications to subscribers.
// Delivery is synchronous, after the durable write and cache update;
// a slow subscriber slows ingestion.
type Notifier struct {
	mu          sync.RWMutex
	metrics     []MetricsHandler
	events      []EventHandler
	predictions []PredictionHandler
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// SubscribeMetrics registers a handler for metrics-stored notifications.
func (n *Notifier) SubscribeMetrics(h MetricsHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.metrics = append(n.metrics, h)
}

// SubscribeEvents registers a handler for event-stored notifications.
func (n *Notifier) SubscribeEvents(h EventHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, h)
}

// SubscribePredictions registers a handler for prediction-stored notifications.
func (n *Notifier) SubscribePredictions(h PredictionHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.predictions = append(n.predictions, h)
}

func (n *Notifier) publishMetrics(entry types.ResourceMemoryEntry) {
	n.mu.RLock()
	handlers := n.metrics
	n.mu.RUnlock()
	for _, h := range handlers {
		h(entry)
	}
}

func (n *Notifier) publishEvent(ev types.ResourceEvent) {
	n.mu.RLock()
	handlers := n.events
	n.mu.RUnlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (n *Notifier) publishPrediction(p types.ResourcePrediction) {
	n.mu.RLock()
	handlers := n.predictions
	n.mu.RUnlock()
	for _, h := range handlers {
		h(p)
	}
}
