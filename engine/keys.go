package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Storage key schemes. Timestamps are unix milliseconds zero-padded to 13
// digits so lexicographic prefix-scan order equals chronological order.
const (
	prefixMetrics    = "metrics:"
	prefixEvent      = "event:"
	prefixEventIndex = "event_index:"
	prefixPrediction = "prediction:"
	prefixAnnotation = "annotation:"
)

func metricsKey(nodeID string, ts time.Time) string {
	return fmt.Sprintf("%s%s:%013d", prefixMetrics, nodeID, ts.UnixMilli())
}

func metricsNodePrefix(nodeID string) string {
	return prefixMetrics + nodeID + ":"
}

func eventKey(id string) string {
	return prefixEvent + id
}

func eventIndexKey(nodeID string, ts time.Time) string {
	return fmt.Sprintf("%s%s:%013d", prefixEventIndex, nodeID, ts.UnixMilli())
}

func predictionKey(nodeID string, horizon string, ts time.Time) string {
	return fmt.Sprintf("%s%s:%s:%013d", prefixPrediction, nodeID, horizon, ts.UnixMilli())
}

func annotationKey(nodeID string, ts time.Time, seq int64) string {
	return fmt.Sprintf("%s%s:%013d:%d", prefixAnnotation, nodeID, ts.UnixMilli(), seq)
}

func annotationNodePrefix(nodeID string) string {
	return prefixAnnotation + nodeID + ":"
}

// parseMetricsKey splits a metrics key into node id and timestamp.
// Node identifiers must not contain ':'.
func parseMetricsKey(key string) (nodeID string, ts time.Time, ok bool) {
	rest, found := strings.CutPrefix(key, prefixMetrics)
	if !found {
		return "", time.Time{}, false
	}
	idx := strings.LastIndex(rest, ":")
	if idx <= 0 {
		return "", time.Time{}, false
	}
	ms, err := strconv.ParseInt(rest[idx+1:], 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return rest[:idx], time.UnixMilli(ms), true
}
