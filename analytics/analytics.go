// Package analytics computes health, trend, and rollup views over stored
// telemetry. All functions are pure; callers supply the queried entries.
package analytics

import (
	"github.com/yairfalse/muisti/types"
)

// Health thresholds. Fixed constants: dashboards and alerting depend on
// the exact boundaries.
const (
	cpuCriticalThreshold    = 90.0
	cpuDegradedThreshold    = 80.0
	memoryCriticalThreshold = 0.95
	memoryDegradedThreshold = 0.85
)

// Trend threshold: relative change beyond ±10% counts as a direction.
const trendChangeThreshold = 0.10

// ClassifyHealth classifies a single sample from CPU usage percent and
// the memory used/total ratio. No history is needed.
func ClassifyHealth(cpuUsage, memoryUsedRatio float64) types.HealthState {
	switch {
	case cpuUsage > cpuCriticalThreshold || memoryUsedRatio > memoryCriticalThreshold:
		return types.HealthCritical
	case cpuUsage > cpuDegradedThreshold || memoryUsedRatio > memoryDegradedThreshold:
		return types.HealthDegraded
	default:
		return types.HealthHealthy
	}
}

// ClassifyEntry classifies one memory entry.
func ClassifyEntry(entry types.ResourceMemoryEntry) types.HealthState {
	return ClassifyHealth(entry.Metrics.CPU.Usage, entry.Metrics.Memory.MemoryUsedRatio())
}

// Trend infers a direction from a chronologically ordered series by
// comparing the first and last values only. This is a deliberately cheap,
// noise-tolerant heuristic; a regression over the series would change
// observable behavior.
func Trend(values []float64) types.TrendDirection {
	if len(values) < 2 {
		return types.TrendStable
	}

	first := values[0]
	last := values[len(values)-1]

	if first == 0 {
		if last > 0 {
			return types.TrendIncreasing
		}
		return types.TrendStable
	}

	change := (last - first) / first
	switch {
	case change > trendChangeThreshold:
		return types.TrendIncreasing
	case change < -trendChangeThreshold:
		return types.TrendDecreasing
	default:
		return types.TrendStable
	}
}

// Reduce collapses values with the requested aggregation function.
// The second return is false for an empty series or AggregateNone.
func Reduce(values []float64, agg types.Aggregation) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}

	switch agg {
	case types.AggregateAvg:
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values)), true
	case types.AggregateSum:
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum, true
	case types.AggregateMax:
		max := values[0]
		for _, v := range values[1:] {
			if v > max {
				max = v
			}
		}
		return max, true
	case types.AggregateMin:
		min := values[0]
		for _, v := range values[1:] {
			if v < min {
				min = v
			}
		}
		return min, true
	default:
		return 0, false
	}
}
