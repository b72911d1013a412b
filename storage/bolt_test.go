package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time check that BoltStore satisfies the full contract.
var _ DurableStore = (*BoltStore)(nil)

type record struct {
	Node  string  `json:"node"`
	Value float64 `json:"value"`
}

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBoltStore_StoreRetrieve(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := record{Node: "srv1", Value: 42.5}
	require.NoError(t, store.Store(ctx, "metrics:srv1:0000000000001", want))

	var got record
	require.NoError(t, store.Retrieve(ctx, "metrics:srv1:0000000000001", &got))
	assert.Equal(t, want, got)
}

func TestBoltStore_RetrieveMissing(t *testing.T) {
	store := newTestStore(t)

	var got record
	err := store.Retrieve(context.Background(), "metrics:absent:0", &got)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBoltStore_StoreOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "event:ev-1", record{Value: 1}))
	require.NoError(t, store.Store(ctx, "event:ev-1", record{Value: 2}))

	var got record
	require.NoError(t, store.Retrieve(ctx, "event:ev-1", &got))
	assert.Equal(t, 2.0, got.Value, "last write wins at the same key")

	keys, err := store.Scan(ctx, "event:")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestBoltStore_ScanPrefix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{
		"metrics:srv1:0000000000001",
		"metrics:srv1:0000000000002",
		"metrics:srv2:0000000000001",
		"event:ev-1",
	} {
		require.NoError(t, store.Store(ctx, key, record{}))
	}

	keys, err := store.Scan(ctx, "metrics:srv1:")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"metrics:srv1:0000000000001",
		"metrics:srv1:0000000000002",
	}, keys, "scan returns matching keys in lexicographic order")

	keys, err = store.Scan(ctx, "prediction:")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestBoltStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "event:ev-1", record{}))
	require.NoError(t, store.Delete(ctx, "event:ev-1"))

	var got record
	assert.ErrorIs(t, store.Retrieve(ctx, "event:ev-1", &got), ErrNotFound)

	// Deleting again is a no-op
	require.NoError(t, store.Delete(ctx, "event:ev-1"))
}

func TestBoltStore_ScanSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewBoltStore(dir, 0)
	require.NoError(t, err)
	require.NoError(t, store.Store(ctx, "metrics:srv1:0000000000001", record{Value: 7}))
	require.NoError(t, store.Close())

	reopened, err := NewBoltStore(dir, 0)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	keys, err := reopened.Scan(ctx, "metrics:")
	require.NoError(t, err)
	assert.Len(t, keys, 1, "key index is rebuilt from disk")
}

func TestBoltStore_CleanupEvictsOldRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "metrics:srv1:0000000000001", record{}))

	// Fresh records survive a cleanup pass.
	require.NoError(t, store.Cleanup(ctx))
	keys, err := store.Scan(ctx, "metrics:")
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	// With an immediate retention everything ages out.
	store.retention = -time.Second
	require.NoError(t, store.Cleanup(ctx))
	keys, err = store.Scan(ctx, "metrics:")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestBoltStore_Stats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "event:ev-1", record{}))
	require.NoError(t, store.Store(ctx, "event:ev-2", record{}))

	count, size := store.Stats()
	assert.Equal(t, 2, count)
	assert.Positive(t, size)
}

func TestBoltStore_ContextCancelled(t *testing.T) {
	store := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, store.Store(ctx, "event:ev-1", record{}))
	_, err := store.Scan(ctx, "event:")
	assert.Error(t, err)
}
