package badger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grovedata/grove/pkg/store"
	"github.com/grovedata/grove/pkg/store/badger"
	storetesting "github.com/grovedata/grove/pkg/store/testing"
)

func newTestDriver(t *testing.T, dbPath string) *badger.BadgerDriver {
	t.Helper()
	driver, err := badger.NewBadgerDriver(context.Background(), badger.BadgerDriverConfig{
		DBPath: dbPath,
	})
	require.NoError(t, err, "failed to create test driver")
	return driver
}

func TestBadgerDriverConformance(t *testing.T) {
	suite := &storetesting.DriverTestSuite{
		NewDriver: func() store.Driver {
			return newTestDriver(t, t.TempDir())
		},
	}
	suite.Run(t)
}

func TestBadgerDriverPersistsAcrossReopen(t *testing.T) {
	dbPath := t.TempDir()
	ctx := context.Background()

	driver := newTestDriver(t, dbPath)

	vol, err := driver.Open(ctx, store.Descriptor{Path: "/vol", Mode: store.ModeCreate})
	require.NoError(t, err)

	require.NoError(t, vol.SetAttr(ctx, "title", "persisted"))

	group, err := vol.CreateGroup(ctx, "group1")
	require.NoError(t, err)

	ds, err := group.CreateDataset(ctx, "dataset1", store.DatasetSpec{
		DType: store.DTypeInt32,
		Shape: []int64{2},
		Data:  []byte{1, 0, 0, 0, 2, 0, 0, 0},
	})
	require.NoError(t, err)
	require.NoError(t, ds.SetAttr(ctx, "units", "volts"))

	require.NoError(t, vol.Close())
	require.NoError(t, driver.Close())

	// A second driver on the same path sees everything the first wrote.
	reopened := newTestDriver(t, dbPath)
	defer reopened.Close()

	vol, err = reopened.Open(ctx, store.Descriptor{Path: "/vol", Mode: store.ModeRead})
	require.NoError(t, err)
	defer vol.Close()

	title, ok, err := vol.Attr(ctx, "title")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "persisted", title)

	node, err := store.LookupPath(ctx, vol, "group1/dataset1")
	require.NoError(t, err)

	dataset, ok := node.(store.Dataset)
	require.True(t, ok, "expected a dataset at group1/dataset1")
	require.Equal(t, store.DTypeInt32, dataset.DType())
	require.Equal(t, []int64{2}, dataset.Shape())

	data, err := dataset.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 0, 0, 0, 2, 0, 0, 0}, data)

	units, ok, err := dataset.Attr(ctx, "units")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "volts", units)

	entries, err := vol.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []store.Entry{{Name: "group1", Kind: store.KindGroup}}, entries)
}

func TestBadgerDriverTruncateDropsOldGeneration(t *testing.T) {
	driver := newTestDriver(t, t.TempDir())
	defer driver.Close()
	ctx := context.Background()

	old, err := driver.Open(ctx, store.Descriptor{Path: "/vol", Mode: store.ModeCreate})
	require.NoError(t, err)
	defer old.Close()

	_, err = old.CreateGroup(ctx, "before")
	require.NoError(t, err)

	ds, err := old.CreateDataset(ctx, "scalars", store.DatasetSpec{
		DType: store.DTypeInt32,
		Shape: []int64{1},
		Data:  []byte{7, 0, 0, 0},
	})
	require.NoError(t, err)

	fresh, err := driver.Open(ctx, store.Descriptor{Path: "/vol", Mode: store.ModeCreate})
	require.NoError(t, err)
	defer fresh.Close()

	// Truncation drops the old keyspace generation, so nodes resolved
	// through the old open are gone rather than detached.
	_, err = old.Lookup(ctx, "before")
	storetesting.AssertErrorCode(t, store.ErrNotFound, err)

	// Writing through a stale dataset view must not resurrect the node.
	err = ds.Write(ctx, []byte{9, 0, 0, 0})
	storetesting.AssertErrorCode(t, store.ErrNotFound, err)

	entries, err := fresh.List(ctx)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestBadgerDriverRemove(t *testing.T) {
	driver := newTestDriver(t, t.TempDir())
	defer driver.Close()
	ctx := context.Background()

	vol, err := driver.Open(ctx, store.Descriptor{Path: "/vol", Mode: store.ModeCreate})
	require.NoError(t, err)

	_, err = vol.CreateGroup(ctx, "doomed")
	require.NoError(t, err)
	require.NoError(t, vol.Close())

	require.NoError(t, driver.Remove(ctx, "/vol"))

	_, err = driver.Open(ctx, store.Descriptor{Path: "/vol", Mode: store.ModeRead})
	storetesting.AssertErrorCode(t, store.ErrNotFound, err)

	err = driver.Remove(ctx, "/vol")
	storetesting.AssertErrorCode(t, store.ErrNotFound, err)
}

func TestBadgerDriverVolumeDoubleClose(t *testing.T) {
	driver := newTestDriver(t, t.TempDir())
	defer driver.Close()

	vol, err := driver.Open(context.Background(), store.Descriptor{Path: "/vol", Mode: store.ModeCreate})
	require.NoError(t, err)

	require.NoError(t, vol.Close())

	err = vol.Close()
	storetesting.AssertErrorCode(t, store.ErrCloseFailed, err)
}

func TestBadgerDriverCloseIdempotent(t *testing.T) {
	driver := newTestDriver(t, t.TempDir())

	require.NoError(t, driver.Close())
	require.NoError(t, driver.Close())
}

func TestBadgerDriverClosedDriverRejectsOperations(t *testing.T) {
	driver := newTestDriver(t, t.TempDir())
	ctx := context.Background()

	vol, err := driver.Open(ctx, store.Descriptor{Path: "/vol", Mode: store.ModeCreate})
	require.NoError(t, err)

	require.NoError(t, driver.Close())

	_, err = vol.List(ctx)
	storetesting.AssertErrorCode(t, store.ErrStaleHandle, err)
}

func TestBadgerDriverContextCancellation(t *testing.T) {
	driver := newTestDriver(t, t.TempDir())
	defer driver.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := driver.Open(ctx, store.Descriptor{Path: "/vol", Mode: store.ModeCreate})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBadgerDriverGCLoopStops(t *testing.T) {
	driver, err := badger.NewBadgerDriver(context.Background(), badger.BadgerDriverConfig{
		DBPath:     t.TempDir(),
		GCInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	time.Sleep(25 * time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- driver.Close() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("driver close did not stop the GC loop")
	}
}
