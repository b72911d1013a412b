package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/muisti/storage"
	"github.com/yairfalse/muisti/types"
	"github.com/yairfalse/muisti/wal"
)

func newTestEngine(t *testing.T, opts Options) (*Engine, *storage.BoltStore) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store, opts), store
}

func report(node string, ts time.Time, cpu float64) types.ResourceMetrics {
	return types.ResourceMetrics{
		Timestamp: ts,
		NodeID:    node,
		CPU:       types.CPUMetrics{Usage: cpu, Cores: 8, LoadAverage: []float64{1.2, 1.0, 0.8}},
		Memory:    types.MemoryMetrics{Used: 4 << 30, Total: 16 << 30, Available: 12 << 30},
		Network:   types.NetworkMetrics{Latency: 4.2, Bandwidth: 10000},
	}
}

func TestStoreMetrics_RoundTrip(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	ctx := context.Background()
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	metrics := report("srv1", ts, 55.5)
	metrics.GPU = []types.GPUMetrics{{ID: "0", Name: "A100", MemoryUsed: 10 << 30, MemoryTotal: 40 << 30, Utilization: 80}}
	metrics.Custom = map[string]float64{"fan_rpm": 3200}

	stored, err := e.StoreMetrics(ctx, metrics, nil)
	require.NoError(t, err)

	got, err := e.QueryMetrics(ctx, types.MetricsFilter{
		NodeID:    "srv1",
		StartTime: ts.Add(-time.Minute),
		EndTime:   ts.Add(time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, stored, got[0], "a stored sample reads back with identical field values")
	assert.Equal(t, metrics, got[0].Metrics)
}

func TestStoreMetrics_WriteAheadOrdering(t *testing.T) {
	e, store := newTestEngine(t, Options{})
	ctx := context.Background()
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var notifiedDurable bool
	e.Notifier().SubscribeMetrics(func(entry types.ResourceMemoryEntry) {
		// By the time subscribers run, the durable write is complete.
		var persisted types.ResourceMemoryEntry
		err := store.Retrieve(ctx, metricsKey(entry.NodeID, entry.Timestamp), &persisted)
		notifiedDurable = err == nil
	})

	_, err := e.StoreMetrics(ctx, report("srv1", ts, 50), nil)
	require.NoError(t, err)
	assert.True(t, notifiedDurable, "notification fires after the store write")
}

// failingStore rejects every write.
type failingStore struct {
	storage.DurableStore
}

func (f *failingStore) Store(ctx context.Context, key string, value any) error {
	return errors.New("disk on fire")
}

func TestStoreMetrics_StorageFailurePropagates(t *testing.T) {
	store, err := storage.NewBoltStore(t.TempDir(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	e := New(&failingStore{DurableStore: store}, Options{})
	ctx := context.Background()

	notified := false
	e.Notifier().SubscribeMetrics(func(types.ResourceMemoryEntry) { notified = true })

	_, err = e.StoreMetrics(ctx, report("srv1", time.Now(), 50), nil)
	assert.Error(t, err, "storage failure propagates to the caller")
	assert.False(t, notified, "no notification for a failed write")

	m, _, _ := e.CacheSizes()
	assert.Zero(t, m, "no cache update for a failed write")
}

func TestStoreEvent_AssignsIDAndIndexes(t *testing.T) {
	e, store := newTestEngine(t, Options{})
	ctx := context.Background()
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	ev, err := e.StoreEvent(ctx, types.ResourceEvent{
		Timestamp: ts,
		Type:      types.EventAlert,
		Severity:  types.SeverityHigh,
		NodeID:    "srv1",
		Message:   "cpu saturation",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID, "events without an id get one assigned")

	keys, err := store.Scan(ctx, "event_index:srv1:")
	require.NoError(t, err)
	require.Len(t, keys, 1, "secondary index key written")

	var indexed string
	require.NoError(t, store.Retrieve(ctx, keys[0], &indexed))
	assert.Equal(t, ev.ID, indexed)
}

func TestStoreEvent_IndexingDisabled(t *testing.T) {
	e, store := newTestEngine(t, Options{DisableEventIndexing: true})
	ctx := context.Background()

	_, err := e.StoreEvent(ctx, types.ResourceEvent{
		ID: "ev-1", Timestamp: time.Now(), Type: types.EventAlert, Severity: types.SeverityLow, NodeID: "srv1",
	})
	require.NoError(t, err)

	keys, err := store.Scan(ctx, "event_index:")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStorePrediction(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	ctx := context.Background()

	var notified types.ResourcePrediction
	e.Notifier().SubscribePredictions(func(p types.ResourcePrediction) { notified = p })

	p, err := e.StorePrediction(ctx, types.ResourcePrediction{
		Timestamp: time.Now(),
		NodeID:    "srv1",
		Horizon:   types.Horizon6h,
		Predictions: map[string]types.MetricPrediction{
			"cpu": {Value: 72.5, Confidence: 0.9, Trend: types.TrendIncreasing},
		},
		Algorithm: "ewma",
	})
	require.NoError(t, err)
	assert.Equal(t, p, notified)

	got, err := e.QueryPredictions(ctx, types.PredictionFilter{NodeID: "srv1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, p, got[0])
}

func TestSweep_Retention(t *testing.T) {
	e, _ := newTestEngine(t, Options{RetentionPeriod: 24 * time.Hour})
	ctx := context.Background()
	now := time.Now()

	_, err := e.StoreEvent(ctx, types.ResourceEvent{
		ID: "old", Timestamp: now.Add(-48 * time.Hour), Type: types.EventFailure, Severity: types.SeverityHigh,
	})
	require.NoError(t, err)
	_, err = e.StoreEvent(ctx, types.ResourceEvent{
		ID: "fresh", Timestamp: now.Add(-time.Hour), Type: types.EventRecovery, Severity: types.SeverityLow,
	})
	require.NoError(t, err)

	_, err = e.StoreMetrics(ctx, report("srv1", now.Add(-48*time.Hour), 50), nil)
	require.NoError(t, err)
	_, err = e.StorePrediction(ctx, types.ResourcePrediction{
		Timestamp: now.Add(-48 * time.Hour), NodeID: "srv1", Horizon: types.Horizon1h, Algorithm: "ewma",
	})
	require.NoError(t, err)

	e.Sweep(ctx)

	events, err := e.QueryEvents(ctx, types.EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "fresh", events[0].ID)

	m, _, p := e.CacheSizes()
	assert.Zero(t, m, "expired metrics pruned from cache")
	assert.Zero(t, p, "expired predictions pruned from cache")
}

// cleanupFailingStore fails only Cleanup.
type cleanupFailingStore struct {
	storage.DurableStore
}

func (f *cleanupFailingStore) Cleanup(ctx context.Context) error {
	return errors.New("compaction jammed")
}

func TestSweep_FailureIsSwallowed(t *testing.T) {
	store, err := storage.NewBoltStore(t.TempDir(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	e := New(&cleanupFailingStore{DurableStore: store}, Options{})
	ctx := context.Background()

	// Must not panic or propagate; ingestion keeps working afterwards.
	e.Sweep(ctx)

	_, err = e.StoreMetrics(ctx, report("srv1", time.Now(), 50), nil)
	assert.NoError(t, err)
}

func TestSweep_FailureStillCleansJournal(t *testing.T) {
	store, err := storage.NewBoltStore(t.TempDir(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	journalDir := t.TempDir()
	journal, err := wal.Open(journalDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })

	// An aged-out journal file from a long-dead process.
	stale := filepath.Join(journalDir, "muisti-20250101-000000.wal")
	require.NoError(t, os.WriteFile(stale, []byte("{}\n"), 0644))
	old := time.Now().Add(-40 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	e := New(&cleanupFailingStore{DurableStore: store}, Options{Journal: journal})
	e.Sweep(context.Background())

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "stale journal file removed despite storage cleanup failure")

	files, err := filepath.Glob(filepath.Join(journalDir, "muisti-*.wal"))
	require.NoError(t, err)
	assert.Len(t, files, 1, "current journal file kept")
}

func TestIngest_RejectsNodeIDWithKeySeparator(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	ctx := context.Background()
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_, err := e.StoreMetrics(ctx, report("srv:1", ts, 50), nil)
	assert.Error(t, err, "metrics node id with ':' rejected")

	_, err = e.StoreEvent(ctx, types.ResourceEvent{
		Timestamp: ts, NodeID: "srv:1", Type: types.EventAlert, Severity: types.SeverityLow,
	})
	assert.Error(t, err, "event node id with ':' rejected")

	_, err = e.StorePrediction(ctx, types.ResourcePrediction{
		Timestamp: ts, NodeID: "srv:1", Horizon: types.Horizon1h,
	})
	assert.Error(t, err, "prediction node id with ':' rejected")

	err = e.AddAnnotation(ctx, "srv:1", ts, types.Annotation{Author: "oncall", Note: "n"})
	assert.Error(t, err, "annotation node id with ':' rejected")

	// A clean node named like the rejected prefix sees nothing.
	got, err := e.QueryMetrics(ctx, types.MetricsFilter{NodeID: "srv"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAnnotations_AddAndRange(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, e.AddAnnotation(ctx, "srv1", base, types.Annotation{
		Author: "oncall", Note: "deploy window start", Kind: types.AnnotationInfo,
	}))
	require.NoError(t, e.AddAnnotation(ctx, "srv1", base, types.Annotation{
		Author: "oncall", Note: "rolled back", Kind: types.AnnotationAction,
	}))
	require.NoError(t, e.AddAnnotation(ctx, "srv1", base.Add(3*time.Hour), types.Annotation{
		Author: "oncall", Note: "out of range", Kind: types.AnnotationInfo,
	}))

	got, err := e.GetAnnotations(ctx, "srv1", base.Add(-time.Minute), base.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, got, 2, "multiple annotations at the same sample coexist")

	err = e.AddAnnotation(ctx, "srv1", base, types.Annotation{Author: "oncall"})
	assert.Error(t, err, "note is required")
}

func TestInitialize_WarmsCachesAndShutdown(t *testing.T) {
	store, err := storage.NewBoltStore(t.TempDir(), 0)
	require.NoError(t, err)
	ctx := context.Background()
	now := time.Now()

	writer := New(store, Options{})
	_, err = writer.StoreMetrics(ctx, report("srv1", now.Add(-30*time.Minute), 50), nil)
	require.NoError(t, err)
	_, err = writer.StoreMetrics(ctx, report("srv1", now.Add(-2*time.Hour), 60), nil)
	require.NoError(t, err)
	_, err = writer.StoreEvent(ctx, types.ResourceEvent{
		ID: "ev-1", Timestamp: now.Add(-10 * time.Minute), Type: types.EventAlert, Severity: types.SeverityLow, NodeID: "srv1",
	})
	require.NoError(t, err)

	e := New(store, Options{SweepInterval: time.Hour})
	require.NoError(t, e.Initialize(ctx))

	m, ev, _ := e.CacheSizes()
	assert.Equal(t, 1, m, "only the warmup window is loaded")
	assert.Equal(t, 1, ev)

	assert.Error(t, e.Initialize(ctx), "double initialize is rejected")

	require.NoError(t, e.Shutdown(ctx))
}

func TestKnownNodes(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	ctx := context.Background()
	now := time.Now()

	for _, node := range []string{"srv1", "srv2", "srv1"} {
		_, err := e.StoreMetrics(ctx, report(node, now, 50), nil)
		require.NoError(t, err)
		now = now.Add(time.Second)
	}

	nodes, err := e.KnownNodes(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"srv1", "srv2"}, nodes)
}
