package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grovedata/grove/pkg/store"
)

// RunOpenTests executes all open-mode semantics tests.
func (suite *DriverTestSuite) RunOpenTests(t *testing.T) {
	t.Run("ReadMissingVolume", suite.testOpenReadMissingVolume)
	t.Run("ReadWriteMissingVolume", suite.testOpenReadWriteMissingVolume)
	t.Run("CreateThenRead", suite.testOpenCreateThenRead)
	t.Run("CreateTruncates", suite.testOpenCreateTruncates)
	t.Run("CreateExclusive", suite.testOpenCreateExclusive)
	t.Run("Append", suite.testOpenAppend)
	t.Run("InvalidDescriptor", suite.testOpenInvalidDescriptor)
	t.Run("ReadOnlyRejectsMutation", suite.testOpenReadOnlyRejectsMutation)
	t.Run("DescriptorRoundTrip", suite.testOpenDescriptorRoundTrip)
	t.Run("SharedState", suite.testOpenSharedState)
}

func (suite *DriverTestSuite) testOpenReadMissingVolume(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()

	_, err := driver.Open(context.Background(), store.Descriptor{
		Path: "/missing",
		Mode: store.ModeRead,
	})
	AssertErrorCode(t, store.ErrNotFound, err)
}

func (suite *DriverTestSuite) testOpenReadWriteMissingVolume(t *testing.T) {
	suite.requireMode(t, store.ModeReadWrite)

	driver := suite.NewDriver()
	defer driver.Close()

	_, err := driver.Open(context.Background(), store.Descriptor{
		Path: "/missing",
		Mode: store.ModeReadWrite,
	})
	AssertErrorCode(t, store.ErrNotFound, err)
}

func (suite *DriverTestSuite) testOpenCreateThenRead(t *testing.T) {
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
	require.Equal(t, store.KindDataset, node.Kind())
}

func (suite *DriverTestSuite) testOpenCreateTruncates(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	vol := createTestVolume(t, driver, "/vol")
	seedTree(t, vol)
	require.NoError(t, vol.Close())

	// A second create open must produce an empty tree.
	fresh, err := driver.Open(ctx, store.Descriptor{Path: "/vol", Mode: store.ModeCreate})
	require.NoError(t, err)
	defer fresh.Close()

	entries, err := fresh.List(ctx)
	require.NoError(t, err)
	require.Empty(t, entries, "create open should truncate existing content")
}

func (suite *DriverTestSuite) testOpenCreateExclusive(t *testing.T) {
	suite.requireMode(t, store.ModeCreateExclusive)

	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	vol, err := driver.Open(ctx, store.Descriptor{Path: "/vol", Mode: store.ModeCreateExclusive})
	require.NoError(t, err)
	require.NoError(t, vol.Close())

	_, err = driver.Open(ctx, store.Descriptor{Path: "/vol", Mode: store.ModeCreateExclusive})
	AssertErrorCode(t, store.ErrAlreadyExists, err)
}

func (suite *DriverTestSuite) testOpenAppend(t *testing.T) {
	suite.requireMode(t, store.ModeAppend)

	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	// Append creates the volume when missing.
	vol, err := driver.Open(ctx, store.Descriptor{Path: "/vol", Mode: store.ModeAppend})
	require.NoError(t, err)

	_, err = vol.CreateGroup(ctx, "kept")
	require.NoError(t, err)
	require.NoError(t, vol.Close())

	// Reopening with append preserves existing content.
	again, err := driver.Open(ctx, store.Descriptor{Path: "/vol", Mode: store.ModeAppend})
	require.NoError(t, err)
	defer again.Close()

	_, err = again.Lookup(ctx, "kept")
	require.NoError(t, err, "append open should preserve existing content")
}

func (suite *DriverTestSuite) testOpenInvalidDescriptor(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	_, err := driver.Open(ctx, store.Descriptor{Path: "", Mode: store.ModeRead})
	AssertErrorCode(t, store.ErrInvalidDescriptor, err)

	_, err = driver.Open(ctx, store.Descriptor{Path: "/vol", Mode: store.Mode("bogus")})
	AssertErrorCode(t, store.ErrInvalidDescriptor, err)
}

func (suite *DriverTestSuite) testOpenReadOnlyRejectsMutation(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	vol := createTestVolume(t, driver, "/vol")
	seedTree(t, vol)
	require.NoError(t, vol.Close())

	readVol, err := driver.Open(ctx, store.Descriptor{Path: "/vol", Mode: store.ModeRead})
	require.NoError(t, err)
	defer readVol.Close()

	_, err = readVol.CreateGroup(ctx, "denied")
	AssertErrorCode(t, store.ErrReadOnly, err)

	err = readVol.SetAttr(ctx, "denied", 1)
	AssertErrorCode(t, store.ErrReadOnly, err)
}

func (suite *DriverTestSuite) testOpenDescriptorRoundTrip(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()

	desc := store.Descriptor{Path: "/vol", Mode: store.ModeCreate}
	vol, err := driver.Open(context.Background(), desc)
	require.NoError(t, err)
	defer vol.Close()

	require.True(t, desc.Equal(vol.Descriptor()), "volume should report the descriptor it was opened with")
}

func (suite *DriverTestSuite) testOpenSharedState(t *testing.T) {
	suite.requireMode(t, store.ModeAppend)

	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	first := createTestVolume(t, driver, "/vol")
	defer first.Close()

	second, err := driver.Open(ctx, store.Descriptor{Path: "/vol", Mode: store.ModeAppend})
	require.NoError(t, err)
	defer second.Close()

	_, err = first.CreateGroup(ctx, "from-first")
	require.NoError(t, err)

	_, err = second.Lookup(ctx, "from-first")
	require.NoError(t, err, "writes through one open should be visible through another")
}
