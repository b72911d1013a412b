package types

import "time"

// EventType categorizes discrete resource events.
type EventType string

const (
	EventAlert        EventType = "alert"
	EventOptimization EventType = "optimization"
	EventDeployment   EventType = "deployment"
	EventFailure      EventType = "failure"
	EventRecovery     EventType = "recovery"
)

// Severity classifies event importance. Severities are totally ordered:
// low < medium < high < critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Rank returns the position of the severity on the total order.
// Unknown severities rank below low.
func (s Severity) Rank() int {
	rank, ok := severityRank[s]
	if !ok {
		return -1
	}
	return rank
}

// AtLeast reports whether s is at or above min on the total order.
func (s Severity) AtLeast(min Severity) bool {
	return s.Rank() >= min.Rank()
}

// ResourceEvent is a discrete occurrence on a node or the cluster.
// Immutable after creation except Resolved/ResolvedAt, which external
// collaborators may set; the engine never mutates them.
type ResourceEvent struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Type       EventType      `json:"type"`
	Severity   Severity       `json:"severity"`
	NodeID     string         `json:"node_id,omitempty"`
	Message    string         `json:"message"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Resolved   bool           `json:"resolved,omitempty"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`
}
