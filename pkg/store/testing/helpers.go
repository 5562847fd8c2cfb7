package testing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovedata/grove/pkg/store"
)

// AssertErrorCode checks if an error has the expected error code.
// This handles both direct and wrapped StoreError values.
func AssertErrorCode(t *testing.T, expected store.ErrorCode, err error, msgAndArgs ...any) bool {
	t.Helper()

	if err == nil {
		return assert.Fail(t, "Expected an error but got nil", msgAndArgs...)
	}

	var storeErr *store.StoreError
	if errors.As(err, &storeErr) {
		return assert.Equal(t, expected, storeErr.Code, msgAndArgs...)
	}

	return assert.Fail(t, "Expected a StoreError, got "+err.Error(), msgAndArgs...)
}

// createTestVolume creates a fresh volume and registers cleanup.
func createTestVolume(t *testing.T, driver store.Driver, path string) store.Volume {
	t.Helper()

	vol, err := driver.Open(context.Background(), store.Descriptor{
		Path: path,
		Mode: store.ModeCreate,
	})
	require.NoError(t, err, "failed to create test volume")
	return vol
}

// seedTree populates a volume with the tree used across suite tests:
//
//	/
//	├── group1/
//	│   ├── dataset1  (float64 [3], attrs: units)
//	│   └── nested/
//	└── rootset      (int32 [2])
//
// The root carries a "title" attribute.
func seedTree(t *testing.T, vol store.Volume) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, vol.SetAttr(ctx, "title", "conformance"))

	group1, err := vol.CreateGroup(ctx, "group1")
	require.NoError(t, err)

	_, err = group1.CreateGroup(ctx, "nested")
	require.NoError(t, err)

	ds, err := group1.CreateDataset(ctx, "dataset1", store.DatasetSpec{
		DType: store.DTypeFloat64,
		Shape: []int64{3},
		Data:  make([]byte, 24),
	})
	require.NoError(t, err)
	require.NoError(t, ds.SetAttr(ctx, "units", "volts"))

	_, err = vol.CreateDataset(ctx, "rootset", store.DatasetSpec{
		DType: store.DTypeInt32,
		Shape: []int64{2},
		Data:  []byte{1, 0, 0, 0, 2, 0, 0, 0},
	})
	require.NoError(t, err)
}
