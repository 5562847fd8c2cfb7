package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grovedata/grove/pkg/store"
)

// RunAttributeTests executes all attribute operation tests.
func (suite *DriverTestSuite) RunAttributeTests(t *testing.T) {
	t.Run("SetAndGet", suite.testAttributeSetAndGet)
	t.Run("Missing", suite.testAttributeMissing)
	t.Run("Overwrite", suite.testAttributeOverwrite)
	t.Run("OnDataset", suite.testAttributeOnDataset)
	t.Run("AttrsCopy", suite.testAttributeAttrsCopy)
	t.Run("EmptyName", suite.testAttributeEmptyName)
}

func (suite *DriverTestSuite) testAttributeSetAndGet(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	vol := createTestVolume(t, driver, "/vol")
	defer vol.Close()

	require.NoError(t, vol.SetAttr(ctx, "experiment", "run-42"))

	value, found, err := vol.Attr(ctx, "experiment")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "run-42", value)
}

func (suite *DriverTestSuite) testAttributeMissing(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()

	vol := createTestVolume(t, driver, "/vol")
	defer vol.Close()

	_, found, err := vol.Attr(context.Background(), "absent")
	require.NoError(t, err)
	require.False(t, found, "missing attribute should report not found, not error")
}

func (suite *DriverTestSuite) testAttributeOverwrite(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	vol := createTestVolume(t, driver, "/vol")
	defer vol.Close()

	require.NoError(t, vol.SetAttr(ctx, "version", "1"))
	require.NoError(t, vol.SetAttr(ctx, "version", "2"))

	value, found, err := vol.Attr(ctx, "version")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "2", value)
}

func (suite *DriverTestSuite) testAttributeOnDataset(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	vol := createTestVolume(t, driver, "/vol")
	defer vol.Close()
	seedTree(t, vol)

	node, err := store.LookupPath(ctx, vol, "group1/dataset1")
	require.NoError(t, err)

	value, found, err := node.Attr(ctx, "units")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "volts", value)
}

func (suite *DriverTestSuite) testAttributeAttrsCopy(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	vol := createTestVolume(t, driver, "/vol")
	defer vol.Close()

	require.NoError(t, vol.SetAttr(ctx, "a", "1"))
	require.NoError(t, vol.SetAttr(ctx, "b", "2"))

	attrs, err := vol.Attrs(ctx)
	require.NoError(t, err)
	require.Len(t, attrs, 2)

	// Mutating the returned map must not leak into stored state.
	attrs["a"] = "tampered"

	value, _, err := vol.Attr(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "1", value)
}

func (suite *DriverTestSuite) testAttributeEmptyName(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()

	vol := createTestVolume(t, driver, "/vol")
	defer vol.Close()

	err := vol.SetAttr(context.Background(), "", "x")
	AssertErrorCode(t, store.ErrInvalidArgument, err)
}
