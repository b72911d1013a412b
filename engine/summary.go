package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/yairfalse/muisti/analytics"
	"github.com/yairfalse/muisti/types"
)

// NodeSummary rolls up one node's metrics and events over a window.
func (e *Engine) NodeSummary(ctx context.Context, nodeID string, startTime, endTime time.Time) (analytics.NodeSummary, error) {
	entries, err := e.QueryMetrics(ctx, types.MetricsFilter{
		NodeID:    nodeID,
		StartTime: startTime,
		EndTime:   endTime,
	})
	if err != nil {
		return analytics.NodeSummary{}, fmt.Errorf("failed to query metrics for summary: %w", err)
	}

	events, err := e.QueryEvents(ctx, types.EventFilter{
		NodeID:    nodeID,
		StartTime: startTime,
		EndTime:   endTime,
	})
	if err != nil {
		return analytics.NodeSummary{}, fmt.Errorf("failed to query events for summary: %w", err)
	}

	return analytics.SummarizeNode(nodeID, entries, events), nil
}

// ClusterOverview rolls up the whole cluster over a window. The total
// node count is derived from the distinct node identifiers ever seen in
// storage, not just nodes active in the window.
func (e *Engine) ClusterOverview(ctx context.Context, startTime, endTime time.Time) (analytics.ClusterOverview, error) {
	nodes, err := e.queryableNodes(ctx)
	if err != nil {
		return analytics.ClusterOverview{}, fmt.Errorf("failed to list known nodes: %w", err)
	}

	entriesByNode := map[string][]types.ResourceMemoryEntry{}
	for _, nodeID := range nodes {
		entries, err := e.QueryMetrics(ctx, types.MetricsFilter{
			NodeID:    nodeID,
			StartTime: startTime,
			EndTime:   endTime,
		})
		if err != nil {
			return analytics.ClusterOverview{}, fmt.Errorf("failed to query metrics for node %s: %w", nodeID, err)
		}
		if len(entries) > 0 {
			entriesByNode[nodeID] = entries
		}
	}

	events, err := e.QueryEvents(ctx, types.EventFilter{
		StartTime: startTime,
		EndTime:   endTime,
	})
	if err != nil {
		return analytics.ClusterOverview{}, fmt.Errorf("failed to query events for overview: %w", err)
	}

	return analytics.BuildClusterOverview(len(nodes), entriesByNode, events), nil
}
