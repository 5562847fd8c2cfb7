// Package s3 implements volume storage on Amazon S3 or S3-compatible
// object stores.
//
// Node records and dataset payloads are plain objects under a per-volume
// key subtree (see keys.go), so buckets stay inspectable and one bucket
// can host many volumes. The bucket must already exist; the constructor
// verifies access but never creates it.
//
// S3 Characteristics:
//   - No transactions: concurrent writers to the same volume are
//     last-write-wins, and create races can both report success
//   - No prefix drop: truncation lists and batch-deletes the subtree
//   - Range of supported modes: "r", "w", "w-" and "a"; "r+" is rejected
//     with ErrNotSupported because read-write reopen semantics cannot be
//     made atomic on object storage
//
// Thread Safety: safe for concurrent use by multiple goroutines, with the
// last-write-wins caveat above.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/grovedata/grove/internal/logger"
	"github.com/grovedata/grove/pkg/store"
)

// S3Driver stores volumes in one S3 bucket.
type S3Driver struct {
	client    *s3.Client
	bucket    string
	keyPrefix string

	mu     sync.RWMutex
	closed bool
}

// S3DriverConfig contains configuration for creating an S3-backed driver.
type S3DriverConfig struct {
	// Client is the configured S3 client.
	Client *s3.Client

	// Bucket is the S3 bucket name.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys.
	// Example: "grove/" results in keys like "grove/run42/meta".
	KeyPrefix string
}

// NewS3Driver creates an S3-backed driver and verifies bucket access.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - config: S3 configuration
//
// Returns:
//   - *S3Driver: Initialized driver
//   - error: Returns error if bucket access fails or context is cancelled
func NewS3Driver(ctx context.Context, config S3DriverConfig) (*S3Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if config.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	_, err := config.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(config.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", config.Bucket, err)
	}

	return &S3Driver{
		client:    config.Client,
		bucket:    config.Bucket,
		keyPrefix: config.KeyPrefix,
	}, nil
}

// Name returns the driver name.
func (d *S3Driver) Name() string {
	return "s3"
}

// Open opens or creates the volume subtree identified by desc.
func (d *S3Driver) Open(ctx context.Context, desc store.Descriptor) (store.Volume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	if desc.Mode == store.ModeReadWrite {
		return nil, &store.StoreError{
			Code:    store.ErrNotSupported,
			Message: `s3 driver does not support mode "r+"`,
			Path:    desc.Path,
		}
	}

	base := volumeBase(d.keyPrefix, desc.Path)
	rootKey := metaKey(base, "/")

	exists, err := d.objectExists(ctx, rootKey)
	if err != nil {
		return nil, err
	}

	switch desc.Mode {
	case store.ModeRead:
		if !exists {
			return nil, &store.StoreError{
				Code:    store.ErrNotFound,
				Message: "volume does not exist",
				Path:    desc.Path,
			}
		}

	case store.ModeCreateExclusive:
		if exists {
			return nil, &store.StoreError{
				Code:    store.ErrAlreadyExists,
				Message: "volume already exists",
				Path:    desc.Path,
			}
		}
		if err := d.putRootRecord(ctx, rootKey); err != nil {
			return nil, err
		}

	case store.ModeCreate:
		if exists {
			if err := d.purgeVolume(ctx, base); err != nil {
				return nil, err
			}
		}
		if err := d.putRootRecord(ctx, rootKey); err != nil {
			return nil, err
		}

	case store.ModeAppend:
		if !exists {
			if err := d.putRootRecord(ctx, rootKey); err != nil {
				return nil, err
			}
		}
	}

	vol := &s3Volume{
		driver:   d,
		desc:     desc.Clone(),
		base:     base,
		writable: desc.Mode.Writable(),
	}
	vol.groupNode = groupNode{vol: vol, path: "/"}
	return vol, nil
}

// Remove deletes a volume's entire key subtree.
func (d *S3Driver) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.checkOpen(); err != nil {
		return err
	}

	base := volumeBase(d.keyPrefix, path)
	rootKey := metaKey(base, "/")

	exists, err := d.objectExists(ctx, rootKey)
	if err != nil {
		return err
	}
	if !exists {
		return &store.StoreError{
			Code:    store.ErrNotFound,
			Message: "volume does not exist",
			Path:    path,
		}
	}

	return d.purgeVolume(ctx, base)
}

// Close marks the driver closed. The S3 client itself holds no resources
// that need explicit shutdown. Safe to call multiple times.
func (d *S3Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	return nil
}

// checkOpen rejects operations on a closed driver.
func (d *S3Driver) checkOpen() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return &store.StoreError{
			Code:    store.ErrStaleHandle,
			Message: "s3 driver is closed",
		}
	}
	return nil
}

// putRootRecord writes a fresh, empty root group record.
func (d *S3Driver) putRootRecord(ctx context.Context, rootKey string) error {
	encoded, err := encodeNodeData(&nodeData{Kind: store.KindGroup})
	if err != nil {
		return err
	}
	return d.putObject(ctx, rootKey, encoded)
}

// getObject downloads an object. The second return is false when the
// object does not exist.
func (d *S3Driver) getObject(ctx context.Context, key string) ([]byte, bool, error) {
	result, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if objectMissing(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, true, nil
}

func (d *S3Driver) putObject(ctx context.Context, key string, data []byte) error {
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to write object to S3: %w", err)
	}
	return nil
}

func (d *S3Driver) objectExists(ctx context.Context, key string) (bool, error) {
	_, err := d.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if objectMissing(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

// purgeVolume lists and batch-deletes every object of a volume subtree,
// including the root record.
func (d *S3Driver) purgeVolume(ctx context.Context, base string) error {
	var keys []string
	for _, prefix := range purgeScanPrefixes(base) {
		paginator := s3.NewListObjectsV2Paginator(d.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(d.bucket),
			Prefix: aws.String(prefix),
		})

		for paginator.HasMorePages() {
			if err := ctx.Err(); err != nil {
				return err
			}

			page, err := paginator.NextPage(ctx)
			if err != nil {
				return fmt.Errorf("failed to list volume objects: %w", err)
			}

			for _, obj := range page.Contents {
				if obj.Key == nil {
					continue
				}
				keys = append(keys, *obj.Key)
			}
		}
	}
	keys = append(keys, metaKey(base, "/"))

	// S3 allows max 1000 objects per delete request.
	const maxBatchSize = 1000

	for i := 0; i < len(keys); i += maxBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := i + maxBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[i:end]

		objects := make([]types.ObjectIdentifier, len(batch))
		for j, key := range batch {
			objects[j] = types.ObjectIdentifier{Key: aws.String(key)}
		}

		result, err := d.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(d.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete volume objects: %w", err)
		}

		for _, deleteErr := range result.Errors {
			key := "unknown"
			if deleteErr.Key != nil {
				key = *deleteErr.Key
			}
			msg := "unknown error"
			if deleteErr.Code != nil && deleteErr.Message != nil {
				msg = fmt.Sprintf("%s: %s", *deleteErr.Code, *deleteErr.Message)
			}
			return fmt.Errorf("failed to delete object %s: %s", key, msg)
		}
	}

	logger.Debug("S3 volume purge: deleted %d objects under %s", len(keys), base)
	return nil
}

// objectMissing reports whether err is S3's way of saying the object does
// not exist. GetObject surfaces NoSuchKey while HeadObject surfaces the
// generic NotFound.
func objectMissing(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}
