package analytics

import (
	"math"
	"sort"

	"github.com/yairfalse/muisti/types"
)

// ValueSummary reduces a series into its mean and extrema.
type ValueSummary struct {
	Avg float64 `json:"avg"`
	Max float64 `json:"max"`
	Min float64 `json:"min"`
}

// NetworkSummary summarizes observed network latency.
type NetworkSummary struct {
	AvgLatency float64 `json:"avg_latency"`
	MaxLatency float64 `json:"max_latency"`
}

// EventSummary counts events in a window.
type EventSummary struct {
	Total      int                     `json:"total"`
	ByType     map[types.EventType]int `json:"by_type"`
	BySeverity map[types.Severity]int  `json:"by_severity"`
}

// NodeSummary is the per-node rollup over a time window.
type NodeSummary struct {
	NodeID        string         `json:"node_id"`
	SampleCount   int            `json:"sample_count"`
	CPU           ValueSummary   `json:"cpu"`
	MemoryUsed    ValueSummary   `json:"memory_used"`
	Network       NetworkSummary `json:"network"`
	UptimePercent float64        `json:"uptime_percent"`
	Events        EventSummary   `json:"events"`
}

// ClusterTrend is the simplified direction vocabulary used in rollups.
type ClusterTrend string

const (
	ClusterTrendUp     ClusterTrend = "up"
	ClusterTrendDown   ClusterTrend = "down"
	ClusterTrendStable ClusterTrend = "stable"
)

// ClusterOverview is the cluster-wide rollup over a time window.
type ClusterOverview struct {
	TotalNodes     int                     `json:"total_nodes"`
	HealthyNodes   int                     `json:"healthy_nodes"`
	AlertCount     int                     `json:"alert_count"`
	AvgCPUUsage    float64                 `json:"avg_cpu_usage"`
	AvgMemoryUsage float64                 `json:"avg_memory_usage"`
	Trends         map[string]ClusterTrend `json:"trends"`
}

// SummarizeNode rolls up a node's entries and events over a window.
// Entries need not be pre-sorted.
//
// Uptime is sampleCount/sampleCount: 100% whenever any data exists and 0%
// otherwise. The original system never finished a gap-based uptime metric
// and downstream consumers rely on the current value.
func SummarizeNode(nodeID string, entries []types.ResourceMemoryEntry, events []types.ResourceEvent) NodeSummary {
	summary := NodeSummary{
		NodeID:      nodeID,
		SampleCount: len(entries),
		Events:      summarizeEvents(events),
	}

	if len(entries) == 0 {
		return summary
	}
	summary.UptimePercent = 100

	cpu := make([]float64, 0, len(entries))
	memUsed := make([]float64, 0, len(entries))
	latency := make([]float64, 0, len(entries))
	for _, entry := range entries {
		cpu = append(cpu, entry.Metrics.CPU.Usage)
		memUsed = append(memUsed, float64(entry.Metrics.Memory.Used))
		latency = append(latency, entry.Metrics.Network.Latency)
	}

	summary.CPU = summarizeValues(cpu)
	summary.MemoryUsed = summarizeValues(memUsed)
	summary.Network.AvgLatency, _ = Reduce(latency, types.AggregateAvg)
	summary.Network.MaxLatency, _ = Reduce(latency, types.AggregateMax)

	return summary
}

// BuildClusterOverview rolls up the whole cluster over a window.
// totalNodes is the count of distinct node identifiers ever seen in
// storage, which may exceed the nodes present in the window.
func BuildClusterOverview(totalNodes int, entriesByNode map[string][]types.ResourceMemoryEntry, events []types.ResourceEvent) ClusterOverview {
	overview := ClusterOverview{
		TotalNodes: totalNodes,
		Trends:     map[string]ClusterTrend{},
	}

	for _, ev := range events {
		if ev.Type == types.EventAlert {
			overview.AlertCount++
		}
	}

	var all []types.ResourceMemoryEntry
	for _, entries := range entriesByNode {
		if len(entries) == 0 {
			continue
		}
		sorted := sortedByTime(entries)
		all = append(all, sorted...)

		latest := sorted[len(sorted)-1]
		if ClassifyEntry(latest) == types.HealthHealthy {
			overview.HealthyNodes++
		}
	}

	if len(all) == 0 {
		overview.Trends["cpu"] = ClusterTrendStable
		overview.Trends["memory"] = ClusterTrendStable
		return overview
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})

	cpu := make([]float64, 0, len(all))
	mem := make([]float64, 0, len(all))
	for _, entry := range all {
		cpu = append(cpu, entry.Metrics.CPU.Usage)
		mem = append(mem, entry.Metrics.Memory.MemoryUsedRatio()*100)
	}

	avgCPU, _ := Reduce(cpu, types.AggregateAvg)
	avgMem, _ := Reduce(mem, types.AggregateAvg)
	overview.AvgCPUUsage = roundTenth(avgCPU)
	overview.AvgMemoryUsage = roundTenth(avgMem)

	overview.Trends["cpu"] = clusterTrend(Trend(cpu))
	overview.Trends["memory"] = clusterTrend(Trend(mem))

	return overview
}

func summarizeEvents(events []types.ResourceEvent) EventSummary {
	summary := EventSummary{
		ByType:     map[types.EventType]int{},
		BySeverity: map[types.Severity]int{},
	}
	for _, ev := range events {
		summary.Total++
		summary.ByType[ev.Type]++
		summary.BySeverity[ev.Severity]++
	}
	return summary
}

func summarizeValues(values []float64) ValueSummary {
	avg, _ := Reduce(values, types.AggregateAvg)
	max, _ := Reduce(values, types.AggregateMax)
	min, _ := Reduce(values, types.AggregateMin)
	return ValueSummary{Avg: avg, Max: max, Min: min}
}

func sortedByTime(entries []types.ResourceMemoryEntry) []types.ResourceMemoryEntry {
	out := make([]types.ResourceMemoryEntry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func clusterTrend(t types.TrendDirection) ClusterTrend {
	switch t {
	case types.TrendIncreasing:
		return ClusterTrendUp
	case types.TrendDecreasing:
		return ClusterTrendDown
	default:
		return ClusterTrendStable
	}
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
