package testing

import (
	"testing"

	"github.com/grovedata/grove/pkg/store"
)

// DriverTestSuite is a comprehensive test suite for store.Driver
// implementations. It tests the interface contract, not implementation
// details, making it reusable across different backends (memory, badger,
// object storage, etc.).
type DriverTestSuite struct {
	// NewDriver is a factory function that creates a fresh driver for each
	// test. This ensures test isolation.
	NewDriver func() store.Driver

	// SkipModes lists open modes the backend does not support. Tests
	// requiring one of these modes are skipped instead of failing.
	SkipModes []store.Mode
}

// Run executes all tests in the suite.
func (suite *DriverTestSuite) Run(test *testing.T) {
	test.Run("Open", suite.RunOpenTests)
	test.Run("Group", suite.RunGroupTests)
	test.Run("Dataset", suite.RunDatasetTests)
	test.Run("Attribute", suite.RunAttributeTests)
}

func (suite *DriverTestSuite) skips(mode store.Mode) bool {
	for _, m := range suite.SkipModes {
		if m == mode {
			return true
		}
	}
	return false
}

// requireMode skips the calling test when the backend does not support mode.
func (suite *DriverTestSuite) requireMode(t *testing.T, mode store.Mode) {
	t.Helper()
	if suite.skips(mode) {
		t.Skipf("backend does not support mode %q", mode)
	}
}
