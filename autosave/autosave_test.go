package autosave

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puntoventa/poskit/core"
)

func newTestSaver() (*Saver, core.PreferenceStore) {
	store := core.NewMemoryStore()
	return New(Options{Store: store, TTL: time.Hour}), store
}

func TestSaveAndRestore(t *testing.T) {
	saver, _ := newTestSaver()
	ctx := context.Background()

	fields := map[string]string{
		"cliente":     "Mesa 4",
		"observacion": "sin azúcar",
	}
	require.NoError(t, saver.Save(ctx, "venta", fields))

	snap, ok, err := saver.Restore(ctx, "venta")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, fields, snap.Fields)
	assert.False(t, snap.SavedAt.IsZero())
}

func TestRestoreMissingForm(t *testing.T) {
	saver, _ := newTestSaver()

	_, ok, err := saver.Restore(context.Background(), "venta")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshotsAreIndependentPerForm(t *testing.T) {
	saver, _ := newTestSaver()
	ctx := context.Background()

	require.NoError(t, saver.Save(ctx, "venta", map[string]string{"a": "1"}))
	require.NoError(t, saver.Save(ctx, "devolucion", map[string]string{"b": "2"}))

	venta, ok, err := saver.Restore(ctx, "venta")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", venta.Fields["a"])

	dev, ok, err := saver.Restore(ctx, "devolucion")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2", dev.Fields["b"])
}

func TestSaveReplacesPriorSnapshot(t *testing.T) {
	saver, _ := newTestSaver()
	ctx := context.Background()

	require.NoError(t, saver.Save(ctx, "venta", map[string]string{"a": "1"}))
	require.NoError(t, saver.Save(ctx, "venta", map[string]string{"a": "2"}))

	snap, ok, err := saver.Restore(ctx, "venta")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2", snap.Fields["a"])
}

func TestDiscardRemovesSnapshot(t *testing.T) {
	saver, _ := newTestSaver()
	ctx := context.Background()

	require.NoError(t, saver.Save(ctx, "venta", map[string]string{"a": "1"}))
	require.NoError(t, saver.Discard(ctx, "venta"))

	_, ok, err := saver.Restore(ctx, "venta")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnreadableSnapshotIsDropped(t *testing.T) {
	saver, store := newTestSaver()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, keyPrefix+"venta", "{broken", time.Hour))

	_, ok, err := saver.Restore(ctx, "venta")
	require.NoError(t, err)
	assert.False(t, ok)

	raw, err := store.Get(ctx, keyPrefix+"venta")
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestSnapshotExpiresWithStoreTTL(t *testing.T) {
	store := core.NewMemoryStore()
	saver := New(Options{Store: store, TTL: 10 * time.Millisecond})
	ctx := context.Background()

	require.NoError(t, saver.Save(ctx, "venta", map[string]string{"a": "1"}))
	time.Sleep(30 * time.Millisecond)

	_, ok, err := saver.Restore(ctx, "venta")
	require.NoError(t, err)
	assert.False(t, ok)
}
