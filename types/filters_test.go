package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsFilterNodes(t *testing.T) {
	single := MetricsFilter{NodeID: "srv1", NodeIDs: []string{"srv2", "srv3"}}
	assert.Equal(t, []string{"srv1"}, single.Nodes(), "NodeID wins over NodeIDs")

	multi := MetricsFilter{NodeIDs: []string{"srv2", "srv3"}}
	assert.Equal(t, []string{"srv2", "srv3"}, multi.Nodes())

	assert.Empty(t, MetricsFilter{}.Nodes())
}

func TestMetricsFilterInRange(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := MetricsFilter{StartTime: base, EndTime: base.Add(time.Hour)}

	assert.True(t, f.InRange(base))
	assert.True(t, f.InRange(base.Add(30*time.Minute)))
	assert.True(t, f.InRange(base.Add(time.Hour)))
	assert.False(t, f.InRange(base.Add(-time.Second)))
	assert.False(t, f.InRange(base.Add(time.Hour+time.Second)))

	open := MetricsFilter{}
	assert.True(t, open.InRange(base), "zero bounds are open")
}

func TestEventFilterMatches(t *testing.T) {
	now := time.Now()
	ev := ResourceEvent{
		ID:        "ev-1",
		Timestamp: now,
		Type:      EventAlert,
		Severity:  SeverityHigh,
		NodeID:    "srv1",
	}

	tests := []struct {
		name   string
		filter EventFilter
		want   bool
	}{
		{"empty filter matches", EventFilter{}, true},
		{"node match", EventFilter{NodeID: "srv1"}, true},
		{"node mismatch", EventFilter{NodeID: "srv2"}, false},
		{"type match", EventFilter{Types: []EventType{EventAlert, EventFailure}}, true},
		{"type mismatch", EventFilter{Types: []EventType{EventDeployment}}, false},
		{"min severity inclusive", EventFilter{MinSeverity: SeverityHigh}, true},
		{"min severity below", EventFilter{MinSeverity: SeverityCritical}, false},
		{"window excludes", EventFilter{EndTime: now.Add(-time.Minute)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(ev))
		})
	}
}

func TestPredictionFilterMatches(t *testing.T) {
	p := ResourcePrediction{
		Timestamp: time.Now(),
		NodeID:    "srv1",
		Horizon:   Horizon6h,
		Algorithm: "ewma",
	}

	assert.True(t, PredictionFilter{Horizon: Horizon6h}.Matches(p))
	assert.False(t, PredictionFilter{Horizon: Horizon24h}.Matches(p))
	assert.True(t, PredictionFilter{Algorithm: "ewma"}.Matches(p))
	assert.False(t, PredictionFilter{Algorithm: "holt_winters"}.Matches(p))
	assert.False(t, PredictionFilter{NodeIDs: []string{"srv2"}}.Matches(p))
}

func TestEffectiveLimit(t *testing.T) {
	assert.Equal(t, DefaultQueryLimit, EffectiveLimit(0))
	assert.Equal(t, DefaultQueryLimit, EffectiveLimit(-5))
	assert.Equal(t, 25, EffectiveLimit(25))
}
