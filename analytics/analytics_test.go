package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yairfalse/muisti/types"
)

func TestClassifyHealth(t *testing.T) {
	tests := []struct {
		name     string
		cpu      float64
		memRatio float64
		want     types.HealthState
	}{
		{"cpu just over critical", 91, 0.5, types.HealthCritical},
		{"cpu just over degraded", 81, 0.5, types.HealthDegraded},
		{"nominal", 50, 0.5, types.HealthHealthy},
		{"memory critical regardless of cpu", 10, 0.96, types.HealthCritical},
		{"memory degraded", 10, 0.86, types.HealthDegraded},
		{"cpu boundary is exclusive", 90, 0.5, types.HealthDegraded},
		{"degraded boundary is exclusive", 80, 0.5, types.HealthHealthy},
		{"memory boundary is exclusive", 10, 0.95, types.HealthDegraded},
		{"idle node", 0, 0, types.HealthHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyHealth(tt.cpu, tt.memRatio))
		})
	}
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   types.TrendDirection
	}{
		{"15 percent rise", []float64{100, 115}, types.TrendIncreasing},
		{"8 percent rise", []float64{100, 108}, types.TrendStable},
		{"15 percent drop", []float64{100, 85}, types.TrendDecreasing},
		{"single sample", []float64{42}, types.TrendStable},
		{"empty series", nil, types.TrendStable},
		{"only endpoints matter", []float64{100, 900, 5, 105}, types.TrendStable},
		{"exactly 10 percent is stable", []float64{100, 110}, types.TrendStable},
		{"from zero upward", []float64{0, 5}, types.TrendIncreasing},
		{"flat zeros", []float64{0, 0}, types.TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Trend(tt.values))
		})
	}
}

func TestReduce(t *testing.T) {
	values := []float64{50, 60, 70}

	avg, ok := Reduce(values, types.AggregateAvg)
	assert.True(t, ok)
	assert.Equal(t, 60.0, avg)

	max, _ := Reduce(values, types.AggregateMax)
	assert.Equal(t, 70.0, max)

	min, _ := Reduce(values, types.AggregateMin)
	assert.Equal(t, 50.0, min)

	sum, _ := Reduce(values, types.AggregateSum)
	assert.Equal(t, 180.0, sum)
}

func TestReduceEmpty(t *testing.T) {
	_, ok := Reduce(nil, types.AggregateAvg)
	assert.False(t, ok, "empty input yields no reduced value")

	_, ok = Reduce([]float64{1, 2}, types.AggregateNone)
	assert.False(t, ok)
}
