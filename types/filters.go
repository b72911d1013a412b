package types

import "time"

// Aggregation selects the reduction applied to bucketed metrics.
type Aggregation string

const (
	AggregateNone Aggregation = "none"
	AggregateAvg  Aggregation = "avg"
	AggregateMax  Aggregation = "max"
	AggregateMin  Aggregation = "min"
	AggregateSum  Aggregation = "sum"
)

// DefaultQueryLimit caps result sets when a filter carries no limit.
const DefaultQueryLimit = 1000

// MetricsFilter selects metrics entries. NodeID and NodeIDs are mutually
// exclusive; NodeID wins when both are set. Metrics is reserved for column
// pruning and is accepted but not enforced. Aggregation without an Interval
// behaves as AggregateNone.
type MetricsFilter struct {
	NodeID      string        `json:"node_id,omitempty"`
	NodeIDs     []string      `json:"node_ids,omitempty"`
	StartTime   time.Time     `json:"start_time,omitempty"`
	EndTime     time.Time     `json:"end_time,omitempty"`
	Metrics     []string      `json:"metrics,omitempty"`
	Limit       int           `json:"limit,omitempty"`
	Offset      int           `json:"offset,omitempty"`
	Aggregation Aggregation   `json:"aggregation,omitempty"`
	Interval    time.Duration `json:"interval,omitempty"`
}

// EventFilter selects events. MinSeverity is inclusive: events at or above
// that severity on the total order match.
type EventFilter struct {
	NodeID      string      `json:"node_id,omitempty"`
	NodeIDs     []string    `json:"node_ids,omitempty"`
	StartTime   time.Time   `json:"start_time,omitempty"`
	EndTime     time.Time   `json:"end_time,omitempty"`
	Types       []EventType `json:"types,omitempty"`
	MinSeverity Severity    `json:"min_severity,omitempty"`
	Limit       int         `json:"limit,omitempty"`
	Offset      int         `json:"offset,omitempty"`
}

// PredictionFilter selects forecasts.
type PredictionFilter struct {
	NodeID    string    `json:"node_id,omitempty"`
	NodeIDs   []string  `json:"node_ids,omitempty"`
	StartTime time.Time `json:"start_time,omitempty"`
	EndTime   time.Time `json:"end_time,omitempty"`
	Horizon   Horizon   `json:"horizon,omitempty"`
	Algorithm string    `json:"algorithm,omitempty"`
	Limit     int       `json:"limit,omitempty"`
}

// Nodes normalizes the single/multi node selectors into one list.
// An empty list means all nodes.
func (f MetricsFilter) Nodes() []string {
	return normalizeNodes(f.NodeID, f.NodeIDs)
}

// Nodes normalizes the single/multi node selectors into one list.
func (f EventFilter) Nodes() []string {
	return normalizeNodes(f.NodeID, f.NodeIDs)
}

// Nodes normalizes the single/multi node selectors into one list.
func (f PredictionFilter) Nodes() []string {
	return normalizeNodes(f.NodeID, f.NodeIDs)
}

func normalizeNodes(single string, multi []string) []string {
	if single != "" {
		return []string{single}
	}
	return multi
}

// InRange reports whether ts falls inside [StartTime, EndTime].
// Zero bounds are open.
func inRange(ts, start, end time.Time) bool {
	if !start.IsZero() && ts.Before(start) {
		return false
	}
	if !end.IsZero() && ts.After(end) {
		return false
	}
	return true
}

// InRange reports whether ts falls inside the filter's time window.
func (f MetricsFilter) InRange(ts time.Time) bool {
	return inRange(ts, f.StartTime, f.EndTime)
}

// Matches checks an event against every filter criterion.
func (f EventFilter) Matches(ev ResourceEvent) bool {
	if !inRange(ev.Timestamp, f.StartTime, f.EndTime) {
		return false
	}
	if nodes := f.Nodes(); len(nodes) > 0 && !containsString(nodes, ev.NodeID) {
		return false
	}
	if len(f.Types) > 0 && !containsType(f.Types, ev.Type) {
		return false
	}
	if f.MinSeverity != "" && !ev.Severity.AtLeast(f.MinSeverity) {
		return false
	}
	return true
}

// Matches checks a prediction against every filter criterion.
func (f PredictionFilter) Matches(p ResourcePrediction) bool {
	if !inRange(p.Timestamp, f.StartTime, f.EndTime) {
		return false
	}
	if nodes := f.Nodes(); len(nodes) > 0 && !containsString(nodes, p.NodeID) {
		return false
	}
	if f.Horizon != "" && p.Horizon != f.Horizon {
		return false
	}
	if f.Algorithm != "" && p.Algorithm != f.Algorithm {
		return false
	}
	return true
}

// EffectiveLimit returns the filter limit or the default when unset.
func EffectiveLimit(limit int) int {
	if limit <= 0 {
		return DefaultQueryLimit
	}
	return limit
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsType(list []EventType, t EventType) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}
