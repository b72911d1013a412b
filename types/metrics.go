package types

import "time"

// ResourceMetrics is a single point-in-time utilization sample for one node.
// Immutable once created; a new sample is always a new value.
type ResourceMetrics struct {
	Timestamp time.Time          `json:"timestamp"`
	NodeID    string             `json:"node_id"`
	CPU       CPUMetrics         `json:"cpu"`
	Memory    MemoryMetrics      `json:"memory"`
	GPU       []GPUMetrics       `json:"gpu,omitempty"`
	Network   NetworkMetrics     `json:"network"`
	Disk      *DiskMetrics       `json:"disk,omitempty"`
	Custom    map[string]float64 `json:"custom,omitempty"`
}

// CPUMetrics holds processor utilization for a node.
type CPUMetrics struct {
	Usage       float64   `json:"usage"`
	Cores       int       `json:"cores"`
	LoadAverage []float64 `json:"load_average,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// MemoryMetrics holds memory utilization in bytes.
type MemoryMetrics struct {
	Used      uint64 `json:"used"`
	Total     uint64 `json:"total"`
	Available uint64 `json:"available"`
	Cached    uint64 `json:"cached,omitempty"`
	SwapUsed  uint64 `json:"swap_used,omitempty"`
	SwapTotal uint64 `json:"swap_total,omitempty"`
}

// GPUMetrics holds per-device accelerator utilization.
type GPUMetrics struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	MemoryUsed  uint64  `json:"memory_used"`
	MemoryTotal uint64  `json:"memory_total"`
	Utilization float64 `json:"utilization"`
	Temperature float64 `json:"temperature,omitempty"`
	PowerUsage  float64 `json:"power_usage,omitempty"`
}

// NetworkMetrics holds network utilization for a node.
type NetworkMetrics struct {
	Latency    float64 `json:"latency"`
	Bandwidth  float64 `json:"bandwidth"`
	PacketsIn  uint64  `json:"packets_in,omitempty"`
	PacketsOut uint64  `json:"packets_out,omitempty"`
	BytesIn    uint64  `json:"bytes_in,omitempty"`
	BytesOut   uint64  `json:"bytes_out,omitempty"`
}

// DiskMetrics holds disk utilization in bytes.
type DiskMetrics struct {
	Used       uint64  `json:"used"`
	Total      uint64  `json:"total"`
	Available  uint64  `json:"available"`
	IOPS       float64 `json:"iops,omitempty"`
	ReadSpeed  float64 `json:"read_speed,omitempty"`
	WriteSpeed float64 `json:"write_speed,omitempty"`
}

// MemoryUsedRatio returns used/total, or 0 when total is unknown.
func (m MemoryMetrics) MemoryUsedRatio() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Used) / float64(m.Total)
}
