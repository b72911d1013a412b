package daemon

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DaemonMetrics holds operational metrics using OTEL semantic conventions
type DaemonMetrics struct {
	recordsIngested metric.Int64Counter
	eventsObserved  metric.Int64Counter
	sweeps          metric.Int64Counter
	cacheEntries    metric.Int64Gauge
	journalFailures metric.Int64Counter
}

// NewDaemonMetrics creates daemon metrics following OTEL semantic conventions
func NewDaemonMetrics() (*DaemonMetrics, error) {
	meter := otel.Meter("muisti.daemon")

	recordsIngested, err := meter.Int64Counter(
		"muisti.daemon.records_ingested",
		metric.WithDescription("Number of telemetry records ingested"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	eventsObserved, err := meter.Int64Counter(
		"muisti.daemon.events_observed",
		metric.WithDescription("Number of resource events stored"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	sweeps, err := meter.Int64Counter(
		"muisti.daemon.sweeps",
		metric.WithDescription("Number of retention sweeps run"),
		metric.WithUnit("{sweep}"),
	)
	if err != nil {
		return nil, err
	}

	cacheEntries, err := meter.Int64Gauge(
		"muisti.cache.entries",
		metric.WithDescription("Number of entries held in memory caches"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	journalFailures, err := meter.Int64Counter(
		"muisti.journal.failures",
		metric.WithDescription("Number of journal append failures"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	return &DaemonMetrics{
		recordsIngested: recordsIngested,
		eventsObserved:  eventsObserved,
		sweeps:          sweeps,
		cacheEntries:    cacheEntries,
		journalFailures: journalFailures,
	}, nil
}

// RecordIngest records one accepted telemetry report
func (m *DaemonMetrics) RecordIngest(ctx context.Context, nodeID string) {
	m.recordsIngested.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("node.id", nodeID),
		),
	)
}

// RecordEvent records one stored resource event
func (m *DaemonMetrics) RecordEvent(ctx context.Context, eventType string, severity string) {
	m.eventsObserved.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("event.type", eventType),
			attribute.String("event.severity", severity),
		),
	)
}

// RecordSweep records a retention sweep run
func (m *DaemonMetrics) RecordSweep(ctx context.Context, status string) {
	m.sweeps.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("status", status),
		),
	)
}

// RecordCacheSize records the current size of one cache
func (m *DaemonMetrics) RecordCacheSize(ctx context.Context, cache string, size int64) {
	m.cacheEntries.Record(ctx, size,
		metric.WithAttributes(
			attribute.String("cache", cache),
		),
	)
}

// RecordJournalFailure records a failed journal append
func (m *DaemonMetrics) RecordJournalFailure(ctx context.Context) {
	m.journalFailures.Add(ctx, 1)
}
