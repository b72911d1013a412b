// Package daemon runs the memory engine as a long-lived process and
// reports operational metrics about it.
package daemon

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/yairfalse/muisti/engine"
	"github.com/yairfalse/muisti/types"
)

// Config holds daemon configuration
type Config struct {
	// GaugeInterval is how often cache sizes are sampled. Defaults to
	// one minute.
	GaugeInterval time.Duration
}

// Daemon wires an engine's notification stream into OTEL metrics and
// samples cache sizes on a ticker.
type Daemon struct {
	engine        *engine.Engine
	metrics       *DaemonMetrics
	gaugeInterval time.Duration
	startTime     time.Time
	ingestCount   atomic.Int64
}

// NewDaemon creates a daemon around an engine and subscribes to its
// notifier. Subscriptions live as long as the engine.
func NewDaemon(eng *engine.Engine, config Config) (*Daemon, error) {
	metrics, err := NewDaemonMetrics()
	if err != nil {
		return nil, err
	}

	interval := config.GaugeInterval
	if interval <= 0 {
		interval = time.Minute
	}

	d := &Daemon{
		engine:        eng,
		metrics:       metrics,
		gaugeInterval: interval,
		startTime:     time.Now(),
	}
	d.subscribe()
	return d, nil
}

func (d *Daemon) subscribe() {
	notifier := d.engine.Notifier()

	notifier.SubscribeMetrics(func(entry types.ResourceMemoryEntry) {
		d.ingestCount.Add(1)
		d.metrics.RecordIngest(context.Background(), entry.NodeID)
	})
	notifier.SubscribeEvents(func(event types.ResourceEvent) {
		d.metrics.RecordEvent(context.Background(), string(event.Type), string(event.Severity))
	})
}

// Start samples cache gauges until the context is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	ticker := time.NewTicker(d.gaugeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.recordGauges(ctx)
		}
	}
}

func (d *Daemon) recordGauges(ctx context.Context) {
	metrics, events, predictions := d.engine.CacheSizes()
	d.metrics.RecordCacheSize(ctx, "metrics", int64(metrics))
	d.metrics.RecordCacheSize(ctx, "events", int64(events))
	d.metrics.RecordCacheSize(ctx, "predictions", int64(predictions))
}

// Health returns daemon health status
func (d *Daemon) Health() HealthStatus {
	return HealthStatus{
		Status: "healthy",
		Uptime: int64(time.Since(d.startTime).Seconds()),
	}
}

// HealthStatus represents daemon health
type HealthStatus struct {
	Status string
	Uptime int64
}

// IngestCount returns total entries observed since start
func (d *Daemon) IngestCount() int64 {
	return d.ingestCount.Load()
}
