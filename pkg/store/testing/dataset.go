package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grovedata/grove/pkg/store"
)

// RunDatasetTests executes all dataset operation tests.
func (suite *DriverTestSuite) RunDatasetTests(t *testing.T) {
	t.Run("CreateAndDescribe", suite.testDatasetCreateAndDescribe)
	t.Run("ReadWrite", suite.testDatasetReadWrite)
	t.Run("WriteShapeMismatch", suite.testDatasetWriteShapeMismatch)
	t.Run("WriteReadOnly", suite.testDatasetWriteReadOnly)
	t.Run("VariableSizePayload", suite.testDatasetVariableSizePayload)
	t.Run("ScalarLen", suite.testDatasetScalarLen)
	t.Run("InvalidSpec", suite.testDatasetInvalidSpec)
}

func (suite *DriverTestSuite) testDatasetCreateAndDescribe(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	vol := createTestVolume(t, driver, "/vol")
	defer vol.Close()

	ds, err := vol.CreateDataset(ctx, "matrix", store.DatasetSpec{
		DType: store.DTypeInt16,
		Shape: []int64{4, 2},
		Data:  make([]byte, 16),
	})
	require.NoError(t, err)

	require.Equal(t, store.DTypeInt16, ds.DType())
	require.Equal(t, []int64{4, 2}, ds.Shape())
	require.Equal(t, int64(4), ds.Len())

	// Shape copies are caller-owned.
	shape := ds.Shape()
	shape[0] = 99
	require.Equal(t, []int64{4, 2}, ds.Shape())
}

func (suite *DriverTestSuite) testDatasetReadWrite(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	vol := createTestVolume(t, driver, "/vol")
	defer vol.Close()

	payload := []byte{1, 2, 3, 4}
	ds, err := vol.CreateDataset(ctx, "bytes4", store.DatasetSpec{
		DType: store.DTypeUint8,
		Shape: []int64{4},
		Data:  payload,
	})
	require.NoError(t, err)

	got, err := ds.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	updated := []byte{9, 8, 7, 6}
	require.NoError(t, ds.Write(ctx, updated))

	got, err = ds.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, updated, got)
}

func (suite *DriverTestSuite) testDatasetWriteShapeMismatch(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	vol := createTestVolume(t, driver, "/vol")
	defer vol.Close()

	ds, err := vol.CreateDataset(ctx, "fixed", store.DatasetSpec{
		DType: store.DTypeInt32,
		Shape: []int64{2},
		Data:  make([]byte, 8),
	})
	require.NoError(t, err)

	err = ds.Write(ctx, make([]byte, 5))
	AssertErrorCode(t, store.ErrInvalidArgument, err)
}

func (suite *DriverTestSuite) testDatasetWriteReadOnly(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	vol := createTestVolume(t, driver, "/vol")
	seedTree(t, vol)
	require.NoError(t, vol.Close())

	readVol, err := driver.Open(ctx, store.Descriptor{Path: "/vol", Mode: store.ModeRead})
	require.NoError(t, err)
	defer readVol.Close()

	node, err := store.LookupPath(ctx, readVol, "group1/dataset1")
	require.NoError(t, err)

	ds, ok := node.(store.Dataset)
	require.True(t, ok)

	err = ds.Write(ctx, make([]byte, 24))
	AssertErrorCode(t, store.ErrReadOnly, err)
}

func (suite *DriverTestSuite) testDatasetVariableSizePayload(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	vol := createTestVolume(t, driver, "/vol")
	defer vol.Close()

	// Variable-size element types accept any payload length.
	ds, err := vol.CreateDataset(ctx, "blob", store.DatasetSpec{
		DType: store.DTypeBytes,
		Shape: []int64{3},
		Data:  []byte("uneven payload"),
	})
	require.NoError(t, err)

	require.NoError(t, ds.Write(ctx, []byte("resized payload of another length")))
}

func (suite *DriverTestSuite) testDatasetScalarLen(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	vol := createTestVolume(t, driver, "/vol")
	defer vol.Close()

	ds, err := vol.CreateDataset(ctx, "scalar", store.DatasetSpec{
		DType: store.DTypeFloat64,
		Data:  make([]byte, 8),
	})
	require.NoError(t, err)

	require.Empty(t, ds.Shape())
	require.Equal(t, int64(0), ds.Len())
}

func (suite *DriverTestSuite) testDatasetInvalidSpec(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	vol := createTestVolume(t, driver, "/vol")
	defer vol.Close()

	_, err := vol.CreateDataset(ctx, "bad", store.DatasetSpec{DType: store.DType("decimal")})
	AssertErrorCode(t, store.ErrInvalidArgument, err)

	_, err = vol.CreateDataset(ctx, "bad", store.DatasetSpec{
		DType: store.DTypeInt8,
		Shape: []int64{-3},
	})
	AssertErrorCode(t, store.ErrInvalidArgument, err)
}
