package types

import "time"

// Horizon is the forecast distance of a prediction.
type Horizon string

const (
	Horizon1h  Horizon = "1h"
	Horizon6h  Horizon = "6h"
	Horizon24h Horizon = "24h"
	Horizon7d  Horizon = "7d"
)

// TrendDirection describes where a metric series is heading.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// MetricPrediction is a single forecast value for one metric.
type MetricPrediction struct {
	Value      float64        `json:"value"`
	Confidence float64        `json:"confidence"`
	Trend      TrendDirection `json:"trend"`
}

// ResourcePrediction is a forecast computed for one node at one horizon.
// Algorithm identifies the forecasting method; the engine treats it as opaque.
type ResourcePrediction struct {
	Timestamp   time.Time                   `json:"timestamp"`
	NodeID      string                      `json:"node_id"`
	Horizon     Horizon                     `json:"horizon"`
	Predictions map[string]MetricPrediction `json:"predictions"`
	Algorithm   string                      `json:"algorithm"`
	Accuracy    float64                     `json:"accuracy,omitempty"`
}
