package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/google/uuid"

	"github.com/grovedata/grove/internal/logger"
	"github.com/grovedata/grove/pkg/store"
)

// BadgerDriver implements store.Driver on top of BadgerDB.
//
// One driver owns one database directory holding any number of volumes,
// each namespaced by a per-generation UUID (see keys.go). It is suitable
// for:
//   - Deployments where volumes must survive process restarts
//   - Descriptors serialized today and reconstructed weeks later
//   - Multi-GB dataset payloads on a single host
//
// Thread Safety:
// All operations are protected by a read-write mutex guarding the database
// handle; Badger transactions provide isolation between concurrent node
// operations. This coarse-grained locking is simple and correct.
//
// Truncation Semantics:
// A mode "w" open over an existing volume assigns a fresh volume ID and
// drops the old keyspace. Volumes opened before the truncation observe
// missing nodes afterwards instead of a detached tree; their next acquire
// through a registry lands on the new generation.
type BadgerDriver struct {
	mu     sync.RWMutex
	db     *badger.DB
	closed bool

	gcStop chan struct{}
	gcDone chan struct{}
}

// BadgerDriverConfig contains configuration for creating a Badger-backed
// driver.
type BadgerDriverConfig struct {
	// DBPath is the directory where BadgerDB will store its files.
	// BadgerDB creates multiple files in this directory (value log, LSM
	// tree, etc.)
	DBPath string

	// BadgerOptions allows customization of BadgerDB behavior.
	// If nil, sensible defaults are used.
	BadgerOptions *badger.Options

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 256).
	BlockCacheSizeMB int64

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 128).
	IndexCacheSizeMB int64

	// GCInterval is how often the value log garbage collector runs.
	// Zero disables the GC loop; dataset-heavy deployments should keep it
	// enabled since dropped volume generations live in the value log until
	// collected.
	GCInterval time.Duration

	// GCDiscardRatio is the rewrite threshold passed to Badger's value log
	// GC (default: 0.5).
	GCDiscardRatio float64
}

// NewBadgerDriver creates a Badger-backed driver with the given
// configuration.
//
// Parameters:
//   - ctx: Context for cancellation during database initialization
//   - config: Configuration including DB path and cache sizes
//
// Returns:
//   - *BadgerDriver: A driver ready for use, safe for concurrent access
//   - error: Error if database initialization fails or context is cancelled
func NewBadgerDriver(ctx context.Context, config BadgerDriverConfig) (*BadgerDriver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.BadgerOptions != nil {
		opts = *config.BadgerOptions
	} else {
		opts = badger.DefaultOptions(config.DBPath)
		opts = opts.WithLoggingLevel(badger.WARNING)
		opts = opts.WithCompression(options.None)

		blockCacheMB := config.BlockCacheSizeMB
		if blockCacheMB == 0 {
			blockCacheMB = 256
		}
		indexCacheMB := config.IndexCacheSizeMB
		if indexCacheMB == 0 {
			indexCacheMB = 128
		}

		opts = opts.WithBlockCacheSize(blockCacheMB << 20)
		opts = opts.WithIndexCacheSize(indexCacheMB << 20)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	driver := &BadgerDriver{db: db}

	if config.GCInterval > 0 {
		ratio := config.GCDiscardRatio
		if ratio == 0 {
			ratio = 0.5
		}
		driver.gcStop = make(chan struct{})
		driver.gcDone = make(chan struct{})
		go driver.runValueLogGC(config.GCInterval, ratio)
	}

	return driver, nil
}

// NewBadgerDriverWithDefaults creates a Badger-backed driver with sensible
// defaults: default cache sizes and a five-minute value log GC cycle.
func NewBadgerDriverWithDefaults(ctx context.Context, dbPath string) (*BadgerDriver, error) {
	return NewBadgerDriver(ctx, BadgerDriverConfig{
		DBPath:     dbPath,
		GCInterval: 5 * time.Minute,
	})
}

// Name returns the driver name.
func (d *BadgerDriver) Name() string {
	return "badger"
}

// Open opens or creates the volume named by desc.Path according to
// desc.Mode.
func (d *BadgerDriver) Open(ctx context.Context, desc store.Descriptor) (store.Volume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, driverClosedError()
	}

	var (
		volumeID  uuid.UUID
		dropOldID *uuid.UUID
	)

	err := d.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyVolume(desc.Path))
		switch {
		case err == badger.ErrKeyNotFound:
			if !desc.Mode.Creates() {
				return &store.StoreError{
					Code:    store.ErrNotFound,
					Message: "volume does not exist",
					Path:    desc.Path,
				}
			}
			volumeID, err = createVolume(txn, desc.Path)
			return err

		case err != nil:
			return fmt.Errorf("failed to read volume record: %w", err)
		}

		var existing *volumeData
		err = item.Value(func(val []byte) error {
			v, decodeErr := decodeVolumeData(val)
			if decodeErr != nil {
				return decodeErr
			}
			existing = v
			return nil
		})
		if err != nil {
			return err
		}

		switch desc.Mode {
		case store.ModeCreateExclusive:
			return &store.StoreError{
				Code:    store.ErrAlreadyExists,
				Message: "volume already exists",
				Path:    desc.Path,
			}
		case store.ModeCreate:
			// Truncate: new generation, old keyspace dropped below.
			oldID := existing.ID
			dropOldID = &oldID
			volumeID, err = createVolume(txn, desc.Path)
			return err
		default:
			volumeID = existing.ID
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	if dropOldID != nil {
		if err := d.db.DropPrefix(volumeKeyspacePrefixes(*dropOldID)...); err != nil {
			logger.Warn("Failed to drop stale keyspace of volume %s (generation %s): %v",
				desc.Path, dropOldID, err)
		}
	}

	vol := &badgerVolume{
		driver:   d,
		desc:     desc.Clone(),
		volumeID: volumeID,
		writable: desc.Mode.Writable(),
	}
	vol.groupNode = groupNode{vol: vol, path: "/"}
	return vol, nil
}

// Remove deletes a volume and its entire keyspace.
func (d *BadgerDriver) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return driverClosedError()
	}

	var volumeID uuid.UUID
	err := d.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyVolume(path))
		if err == badger.ErrKeyNotFound {
			return &store.StoreError{
				Code:    store.ErrNotFound,
				Message: "volume does not exist",
				Path:    path,
			}
		}
		if err != nil {
			return fmt.Errorf("failed to read volume record: %w", err)
		}

		err = item.Value(func(val []byte) error {
			v, err := decodeVolumeData(val)
			if err != nil {
				return err
			}
			volumeID = v.ID
			return nil
		})
		if err != nil {
			return err
		}

		return txn.Delete(keyVolume(path))
	})
	if err != nil {
		return err
	}

	if err := d.db.DropPrefix(volumeKeyspacePrefixes(volumeID)...); err != nil {
		return fmt.Errorf("failed to drop keyspace of volume %s: %w", path, err)
	}
	return nil
}

// Close stops the GC loop and closes the database. Volumes opened through
// this driver become unusable.
func (d *BadgerDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	if d.gcStop != nil {
		close(d.gcStop)
		<-d.gcDone
	}

	if err := d.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

// view runs a read-only transaction, guarding against driver shutdown.
func (d *BadgerDriver) view(fn func(txn *badger.Txn) error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return driverClosedError()
	}
	return d.db.View(fn)
}

// update runs a read-write transaction, guarding against driver shutdown.
func (d *BadgerDriver) update(fn func(txn *badger.Txn) error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return driverClosedError()
	}
	return d.db.Update(fn)
}

// createVolume writes a fresh volume record and its root group inside txn.
func createVolume(txn *badger.Txn, path string) (uuid.UUID, error) {
	record := &volumeData{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
	}

	recordBytes, err := encodeVolumeData(record)
	if err != nil {
		return uuid.Nil, err
	}
	if err := txn.Set(keyVolume(path), recordBytes); err != nil {
		return uuid.Nil, fmt.Errorf("failed to write volume record: %w", err)
	}

	rootBytes, err := encodeNodeData(&nodeData{Kind: store.KindGroup})
	if err != nil {
		return uuid.Nil, err
	}
	if err := txn.Set(keyNode(record.ID, "/"), rootBytes); err != nil {
		return uuid.Nil, fmt.Errorf("failed to write root group: %w", err)
	}

	return record.ID, nil
}

func driverClosedError() error {
	return &store.StoreError{
		Code:    store.ErrStaleHandle,
		Message: "badger driver is closed",
	}
}
