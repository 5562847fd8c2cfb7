package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grovedata/grove/pkg/store"
)

// RunGroupTests executes all group operation tests.
func (suite *DriverTestSuite) RunGroupTests(t *testing.T) {
	t.Run("LookupChild", suite.testGroupLookupChild)
	t.Run("LookupMissing", suite.testGroupLookupMissing)
	t.Run("LookupInvalidName", suite.testGroupLookupInvalidName)
	t.Run("List", suite.testGroupList)
	t.Run("CreateGroupDuplicate", suite.testGroupCreateDuplicate)
	t.Run("PathWalk", suite.testGroupPathWalk)
	t.Run("PathWalkThroughDataset", suite.testGroupPathWalkThroughDataset)
	t.Run("NodeIdentity", suite.testGroupNodeIdentity)
}

func (suite *DriverTestSuite) testGroupLookupChild(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	vol := createTestVolume(t, driver, "/vol")
	defer vol.Close()
	seedTree(t, vol)

	node, err := vol.Lookup(ctx, "group1")
	require.NoError(t, err)
	require.Equal(t, store.KindGroup, node.Kind())
	require.Equal(t, "group1", node.Name())

	group, ok := node.(store.Group)
	require.True(t, ok, "group node should satisfy store.Group")

	child, err := group.Lookup(ctx, "dataset1")
	require.NoError(t, err)
	require.Equal(t, store.KindDataset, child.Kind())
}

func (suite *DriverTestSuite) testGroupLookupMissing(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()

	vol := createTestVolume(t, driver, "/vol")
	defer vol.Close()

	_, err := vol.Lookup(context.Background(), "ghost")
	AssertErrorCode(t, store.ErrNotFound, err)
}

func (suite *DriverTestSuite) testGroupLookupInvalidName(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	vol := createTestVolume(t, driver, "/vol")
	defer vol.Close()

	for _, name := range []string{"", ".", "..", "a/b"} {
		_, err := vol.Lookup(ctx, name)
		AssertErrorCode(t, store.ErrInvalidArgument, err, "name %q", name)
	}
}

func (suite *DriverTestSuite) testGroupList(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	vol := createTestVolume(t, driver, "/vol")
	defer vol.Close()
	seedTree(t, vol)

	entries, err := vol.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Listings are sorted by name.
	require.Equal(t, "group1", entries[0].Name)
	require.Equal(t, store.KindGroup, entries[0].Kind)
	require.Equal(t, "rootset", entries[1].Name)
	require.Equal(t, store.KindDataset, entries[1].Kind)
}

func (suite *DriverTestSuite) testGroupCreateDuplicate(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	vol := createTestVolume(t, driver, "/vol")
	defer vol.Close()

	_, err := vol.CreateGroup(ctx, "dup")
	require.NoError(t, err)

	_, err = vol.CreateGroup(ctx, "dup")
	AssertErrorCode(t, store.ErrAlreadyExists, err)

	_, err = vol.CreateDataset(ctx, "dup", store.DatasetSpec{DType: store.DTypeInt8})
	AssertErrorCode(t, store.ErrAlreadyExists, err)
}

func (suite *DriverTestSuite) testGroupPathWalk(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	vol := createTestVolume(t, driver, "/vol")
	defer vol.Close()
	seedTree(t, vol)

	node, err := store.LookupPath(ctx, vol, "group1/nested")
	require.NoError(t, err)
	require.Equal(t, store.KindGroup, node.Kind())
	require.Equal(t, "/group1/nested", node.Path())

	// Root paths resolve to the starting group.
	self, err := store.LookupPath(ctx, vol, "/")
	require.NoError(t, err)
	require.Equal(t, "/", self.Path())
}

func (suite *DriverTestSuite) testGroupPathWalkThroughDataset(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	vol := createTestVolume(t, driver, "/vol")
	defer vol.Close()
	seedTree(t, vol)

	_, err := store.LookupPath(ctx, vol, "rootset/anything")
	AssertErrorCode(t, store.ErrNotGroup, err)
}

func (suite *DriverTestSuite) testGroupNodeIdentity(t *testing.T) {
	driver := suite.NewDriver()
	defer driver.Close()
	ctx := context.Background()

	vol := createTestVolume(t, driver, "/vol")
	defer vol.Close()
	seedTree(t, vol)

	node, err := store.LookupPath(ctx, vol, "group1/dataset1")
	require.NoError(t, err)
	require.Equal(t, "dataset1", node.Name())
	require.Equal(t, "/group1/dataset1", node.Path())
}
