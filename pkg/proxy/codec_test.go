package proxy

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovedata/grove/pkg/registry"
	"github.com/grovedata/grove/pkg/store"
	"github.com/grovedata/grove/pkg/store/memory"
)

func TestFileJSONRoundTrip(t *testing.T) {
	driver := newCountingDriver(memory.NewMemoryDriver())
	defer driver.Close()
	seedVolume(t, driver, "/data/run42")

	reg := registry.New(driver, registry.Config{Capacity: 8})
	defer reg.Close()

	file, err := Open(context.Background(), reg, store.Descriptor{
		Path:  "/data/run42",
		Mode:  store.ModeRead,
		Extra: []store.Param{store.BoolParam("swmr", true)},
	})
	require.NoError(t, err)

	data, err := json.Marshal(file)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"path":"/data/run42","mode":"r","extra":[{"name":"swmr","value":"true"}]}`,
		string(data))

	var decoded File
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Descriptor().Equal(file.Descriptor()))
	assert.False(t, decoded.SkipCache())

	entries, err := decoded.WithRegistry(reg).Root().Entries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestFileJSONCarriesSkipCache(t *testing.T) {
	driver := newCountingDriver(memory.NewMemoryDriver())
	defer driver.Close()
	seedVolume(t, driver, "/data/run42")

	reg := registry.New(driver, registry.Config{Capacity: 8})
	defer reg.Close()

	ctx := context.Background()
	file, err := OpenUncached(ctx, reg, readDescriptor("/data/run42"))
	require.NoError(t, err)

	data, err := json.Marshal(file)
	require.NoError(t, err)
	assert.JSONEq(t, `{"path":"/data/run42","mode":"r","skip_cache":true}`, string(data))

	var decoded File
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.True(t, decoded.SkipCache())

	// The reconstructed file opens its own unmanaged volume on first use
	// and stays invisible to the cache.
	opensBefore := driver.openCount()
	entries, err := decoded.WithRegistry(reg).Root().Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, opensBefore+1, driver.openCount())
	assert.Equal(t, 0, reg.CacheLen())

	require.NoError(t, file.Close())
	require.NoError(t, decoded.Close())
}

func TestDatasetGobRoundTripSharesHandle(t *testing.T) {
	driver := newCountingDriver(memory.NewMemoryDriver())
	defer driver.Close()
	seedVolume(t, driver, "/data/run42")

	reg := registry.New(driver, registry.Config{Capacity: 8})
	defer reg.Close()

	ctx := context.Background()
	file, err := Open(ctx, reg, readDescriptor("/data/run42"))
	require.NoError(t, err)

	dataset, err := file.Root().Dataset(ctx, "group1/dataset1")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(dataset))

	var decoded Dataset
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))

	assert.True(t, decoded.Equal(dataset))
	assert.Equal(t, "/group1/dataset1", decoded.Path())

	// Resolving through the same registry shares the live handle: no new
	// native open happens.
	opensBefore := driver.openCount()
	units, found, err := decoded.WithRegistry(reg).Attr(ctx, "units")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "volts", units)
	assert.Equal(t, opensBefore, driver.openCount())
	assert.Equal(t, 1, reg.CacheLen())
}

func TestDatasetDecodedIntoFreshRegistry(t *testing.T) {
	backing := memory.NewMemoryDriver()
	defer backing.Close()
	seedVolume(t, backing, "/data/run42")

	sourceDriver := newCountingDriver(backing)
	sourceReg := registry.New(sourceDriver, registry.Config{Capacity: 8})
	defer sourceReg.Close()

	ctx := context.Background()
	file, err := Open(ctx, sourceReg, readDescriptor("/data/run42"))
	require.NoError(t, err)

	dataset, err := file.Root().Dataset(ctx, "group1/dataset1")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(dataset))

	// A second registry over the same backing store models the receiving
	// process.
	targetDriver := newCountingDriver(backing)
	targetReg := registry.New(targetDriver, registry.Config{Capacity: 8})
	defer targetReg.Close()

	var decoded Dataset
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))
	decoded.WithRegistry(targetReg)

	// First access opens the root exactly once, then the lookup runs.
	units, found, err := decoded.Attr(ctx, "units")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "volts", units)
	assert.Equal(t, 1, targetDriver.openCount())
	assert.Equal(t, 1, targetReg.CacheLen())

	// Further operations reuse the reconstructed handle.
	shape, err := decoded.Shape(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, shape)
	assert.Equal(t, 1, targetDriver.openCount())
}

func TestGroupJSONRoundTrip(t *testing.T) {
	driver := newCountingDriver(memory.NewMemoryDriver())
	defer driver.Close()
	seedVolume(t, driver, "/data/run42")

	reg := registry.New(driver, registry.Config{Capacity: 8})
	defer reg.Close()

	ctx := context.Background()
	file, err := Open(ctx, reg, readDescriptor("/data/run42"))
	require.NoError(t, err)

	group, err := file.Root().Group(ctx, "group1")
	require.NoError(t, err)

	data, err := json.Marshal(group)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"root":{"path":"/data/run42","mode":"r"},"internal_path":"/group1"}`,
		string(data))

	var decoded Group
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Equal(group))

	entries, err := decoded.WithRegistry(reg).Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "dataset1", entries[0].Name)
	assert.Equal(t, "nested", entries[1].Name)
}

func TestGroupGobRoundTrip(t *testing.T) {
	driver := newCountingDriver(memory.NewMemoryDriver())
	defer driver.Close()
	seedVolume(t, driver, "/data/run42")

	reg := registry.New(driver, registry.Config{Capacity: 8})
	defer reg.Close()

	ctx := context.Background()
	file, err := Open(ctx, reg, readDescriptor("/data/run42"))
	require.NoError(t, err)

	group, err := file.Root().Group(ctx, "group1/nested")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(group))

	var decoded Group
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))

	assert.True(t, decoded.Equal(group))
	assert.Equal(t, "/group1/nested", decoded.Path())
	assert.Equal(t, "nested", decoded.Name())

	entries, err := decoded.WithRegistry(reg).Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBypassNotInheritedByChildren(t *testing.T) {
	driver := newCountingDriver(memory.NewMemoryDriver())
	defer driver.Close()
	seedVolume(t, driver, "/data/run42")

	reg := registry.New(driver, registry.Config{Capacity: 8})
	defer reg.Close()

	ctx := context.Background()
	file, err := OpenUncached(ctx, reg, readDescriptor("/data/run42"))
	require.NoError(t, err)

	dataset, err := file.Root().Dataset(ctx, "group1/dataset1")
	require.NoError(t, err)

	data, err := json.Marshal(dataset)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "skip_cache")

	var decoded Dataset
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.False(t, decoded.File().SkipCache())

	// The reconstructed proxy resolves through the cache, not through a
	// bypassed open.
	_, _, err = decoded.WithRegistry(reg).Attr(ctx, "units")
	require.NoError(t, err)
	assert.Equal(t, 1, reg.CacheLen())
}

func TestDecodedBindsToDefaultRegistry(t *testing.T) {
	driver := newCountingDriver(memory.NewMemoryDriver())
	defer driver.Close()
	seedVolume(t, driver, "/data/run42")

	reg := registry.New(driver, registry.Config{Capacity: 8})
	defer reg.Close()

	previous := registry.SetDefault(reg)
	defer registry.SetDefault(previous)

	ctx := context.Background()
	file, err := Open(ctx, reg, readDescriptor("/data/run42"))
	require.NoError(t, err)

	dataset, err := file.Root().Dataset(ctx, "group1/dataset1")
	require.NoError(t, err)

	data, err := json.Marshal(dataset)
	require.NoError(t, err)

	var decoded Dataset
	require.NoError(t, json.Unmarshal(data, &decoded))

	// No WithRegistry call: the proxy binds to the process default.
	shape, err := decoded.Shape(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, shape)
}

func TestDecodedWithoutRegistryFails(t *testing.T) {
	previous := registry.SetDefault(nil)
	defer registry.SetDefault(previous)

	var decoded Dataset
	payload := `{"root":{"path":"/data/run42","mode":"r"},"internal_path":"/group1/dataset1"}`
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))

	_, err := decoded.Shape(context.Background())
	require.Error(t, err)
	assert.True(t, store.IsCode(err, store.ErrNotSupported))
}

func TestDecodeRejectsInvalidPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "missing path", payload: `{"mode":"r"}`},
		{name: "unknown mode", payload: `{"path":"/data/run42","mode":"rw"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var file File
			err := json.Unmarshal([]byte(tt.payload), &file)
			require.Error(t, err)
			assert.True(t, store.IsCode(err, store.ErrInvalidDescriptor))
		})
	}

	var group Group
	err := json.Unmarshal([]byte(`{"root":{"path":"","mode":"r"},"internal_path":"/g"}`), &group)
	require.Error(t, err)
	assert.True(t, store.IsCode(err, store.ErrInvalidDescriptor))

	var dataset Dataset
	require.Error(t, dataset.GobDecode([]byte{0x01}))
}
