// Package engine implements the resource telemetry memory engine: it
// ingests utilization reports from compute nodes, persists them through a
// durable store, keeps bounded in-memory caches for hot queries, and
// answers analytical queries for dashboards and alerting.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yairfalse/muisti/cache"
	"github.com/yairfalse/muisti/storage"
	"github.com/yairfalse/muisti/telemetry"
	"github.com/yairfalse/muisti/types"
	"github.com/yairfalse/muisti/wal"
)

// Defaults for engine options.
const (
	DefaultRetentionPeriod = 30 * 24 * time.Hour
	DefaultSweepInterval   = 24 * time.Hour
	DefaultWarmupWindow    = time.Hour
)

// Options configures an engine instance.
type Options struct {
	// CacheCapacity bounds each node's metrics buffer.
	CacheCapacity int

	// RetentionPeriod is the maximum age of cached/stored data.
	RetentionPeriod time.Duration

	// SweepInterval is how often the retention sweeper runs.
	SweepInterval time.Duration

	// WarmupWindow is how far back Initialize loads caches.
	WarmupWindow time.Duration

	// EventIndexing writes secondary event_index keys for future range
	// scans. Enabled by default.
	DisableEventIndexing bool

	// Journal receives a best-effort record of every accepted write.
	Journal *wal.Journal

	// Logger defaults to a no-op logger.
	Logger *telemetry.Logger
}

func (o *Options) applyDefaults() {
	if o.CacheCapacity <= 0 {
		o.CacheCapacity = cache.DefaultMetricsCapacity
	}
	if o.RetentionPeriod <= 0 {
		o.RetentionPeriod = DefaultRetentionPeriod
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = DefaultSweepInterval
	}
	if o.WarmupWindow <= 0 {
		o.WarmupWindow = DefaultWarmupWindow
	}
	if o.Logger == nil {
		o.Logger = telemetry.Nop()
	}
}

// Engine is a single logical memory engine instance. Caches are private
// to the instance; only its own ingestion path and sweeper mutate them.
// Multiple instances over the same store do not coordinate: only store
// content is shared truth.
type Engine struct {
	store    storage.DurableStore
	opts     Options
	logger   *telemetry.Logger
	notifier *Notifier

	metricsCache    *cache.MetricsCache
	eventCache      *cache.EventCache
	predictionCache *cache.PredictionCache

	// Sweeper lifecycle
	sweepStop chan struct{}
	sweepDone sync.WaitGroup
	started   bool
	mu        sync.Mutex

	// Mockable for tests
	now func() time.Time
}

// New creates an engine over the given durable store.
func New(store storage.DurableStore, opts Options) *Engine {
	opts.applyDefaults()
	return &Engine{
		store:           store,
		opts:            opts,
		logger:          opts.Logger,
		notifier:        NewNotifier(),
		metricsCache:    cache.NewMetricsCache(opts.CacheCapacity),
		eventCache:      cache.NewEventCache(),
		predictionCache: cache.NewPredictionCache(),
		now:             time.Now,
	}
}

// Notifier exposes the subscription surface for dashboards and alerting.
func (e *Engine) Notifier() *Notifier {
	return e.notifier
}

// CacheSizes returns the current entry counts of the three caches.
func (e *Engine) CacheSizes() (metrics, events, predictions int) {
	return e.metricsCache.Size(), e.eventCache.Size(), e.predictionCache.Size()
}

// StorageStats reports the durable store's key count and on-disk size.
func (e *Engine) StorageStats() (keyCount int, dbSizeBytes int64) {
	return e.store.Stats()
}

// Initialize warms the caches from the durable store and starts the
// retention sweeper. The engine is ready once Initialize returns.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return fmt.Errorf("engine already initialized")
	}

	if err := e.warmCaches(ctx); err != nil {
		return fmt.Errorf("failed to warm caches: %w", err)
	}

	e.sweepStop = make(chan struct{})
	e.sweepDone.Add(1)
	go e.runSweeper()

	e.started = true
	return nil
}

// Shutdown stops the sweeper and releases the durable store.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		close(e.sweepStop)
		e.sweepDone.Wait()
		e.started = false
	}

	if e.opts.Journal != nil {
		if err := e.opts.Journal.Close(); err != nil {
			e.logger.LogJournalError(ctx, "", err)
		}
	}

	return e.store.Close()
}

// warmCaches loads the most recent window of data per known node, plus
// all events and predictions within that window.
func (e *Engine) warmCaches(ctx context.Context) error {
	since := e.now().Add(-e.opts.WarmupWindow)

	keys, err := e.store.Scan(ctx, prefixMetrics)
	if err != nil {
		return err
	}

	loaded := 0
	nodes := map[string]bool{}
	for _, key := range keys {
		nodeID, ts, ok := parseMetricsKey(key)
		if !ok || ts.Before(since) {
			continue
		}
		var entry types.ResourceMemoryEntry
		if err := e.store.Retrieve(ctx, key, &entry); err != nil {
			e.logger.LogStorageError(ctx, "warmup_retrieve", err)
			continue
		}
		e.metricsCache.Append(entry)
		nodes[nodeID] = true
		loaded++
	}

	events, err := e.loadRecentEvents(ctx, since)
	if err != nil {
		return err
	}

	predictions, err := e.loadRecentPredictions(ctx, since)
	if err != nil {
		return err
	}

	e.logger.LogCacheWarmup(ctx, len(nodes), loaded, events, predictions)
	return nil
}

func (e *Engine) loadRecentEvents(ctx context.Context, since time.Time) (int, error) {
	keys, err := e.store.Scan(ctx, prefixEvent)
	if err != nil {
		return 0, err
	}

	loaded := 0
	for _, key := range keys {
		var ev types.ResourceEvent
		if err := e.store.Retrieve(ctx, key, &ev); err != nil {
			e.logger.LogStorageError(ctx, "warmup_retrieve", err)
			continue
		}
		if ev.Timestamp.Before(since) {
			continue
		}
		e.eventCache.Put(ev)
		loaded++
	}
	return loaded, nil
}

func (e *Engine) loadRecentPredictions(ctx context.Context, since time.Time) (int, error) {
	keys, err := e.store.Scan(ctx, prefixPrediction)
	if err != nil {
		return 0, err
	}

	loaded := 0
	for _, key := range keys {
		var p types.ResourcePrediction
		if err := e.store.Retrieve(ctx, key, &p); err != nil {
			e.logger.LogStorageError(ctx, "warmup_retrieve", err)
			continue
		}
		if p.Timestamp.Before(since) {
			continue
		}
		e.predictionCache.Put(p)
		loaded++
	}
	return loaded, nil
}

// KnownNodes returns the distinct node identifiers ever seen in storage.
func (e *Engine) KnownNodes(ctx context.Context) ([]string, error) {
	keys, err := e.store.Scan(ctx, prefixMetrics)
	if err != nil {
		return nil, fmt.Errorf("failed to scan metrics keys: %w", err)
	}

	seen := map[string]bool{}
	var nodes []string
	for _, key := range keys {
		nodeID, _, ok := parseMetricsKey(key)
		if !ok || seen[nodeID] {
			continue
		}
		seen[nodeID] = true
		nodes = append(nodes, nodeID)
	}
	return nodes, nil
}
