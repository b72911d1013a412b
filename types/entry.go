package types

import "time"

// ResourceMemoryEntry is the storage unit: one metrics sample together with
// the events that occurred in the same collection cycle and, optionally,
// predictions and annotations.
//
// Invariant: Timestamp == Metrics.Timestamp and NodeID == Metrics.NodeID.
type ResourceMemoryEntry struct {
	Timestamp   time.Time            `json:"timestamp"`
	NodeID      string               `json:"node_id"`
	Metrics     ResourceMetrics      `json:"metrics"`
	Events      []ResourceEvent      `json:"events"`
	Predictions []ResourcePrediction `json:"predictions,omitempty"`
	Annotations []Annotation         `json:"annotations,omitempty"`
}

// NewEntry builds an entry from a metrics sample, taking timestamp and node
// identity from the sample itself.
func NewEntry(metrics ResourceMetrics, events []ResourceEvent) ResourceMemoryEntry {
	if events == nil {
		events = []ResourceEvent{}
	}
	return ResourceMemoryEntry{
		Timestamp: metrics.Timestamp,
		NodeID:    metrics.NodeID,
		Metrics:   metrics,
		Events:    events,
	}
}

// AnnotationKind categorizes operator notes.
type AnnotationKind string

const (
	AnnotationInfo    AnnotationKind = "info"
	AnnotationWarning AnnotationKind = "warning"
	AnnotationAction  AnnotationKind = "action"
)

// Annotation is a free-text note attached to a (node, timestamp) coordinate.
// Annotations are additive only; the engine never mutates or deletes them.
type Annotation struct {
	Timestamp time.Time      `json:"timestamp"`
	Author    string         `json:"author"`
	Note      string         `json:"note"`
	Kind      AnnotationKind `json:"kind"`
}

// HealthState classifies a node sample.
type HealthState string

const (
	HealthHealthy  HealthState = "healthy"
	HealthDegraded HealthState = "degraded"
	HealthCritical HealthState = "critical"
)
