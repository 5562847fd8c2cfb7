package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/grovedata/grove/internal/logger"
	"github.com/grovedata/grove/pkg/store"
	storeBadger "github.com/grovedata/grove/pkg/store/badger"
	storeMemory "github.com/grovedata/grove/pkg/store/memory"
	storeS3 "github.com/grovedata/grove/pkg/store/s3"
)

// CreateDriver creates a store driver based on configuration.
//
// This factory function uses the Type field to determine which driver to
// create, then decodes the driver-specific configuration from the
// corresponding map and passes it to the driver's constructor.
//
// Supported types:
//   - "memory": Uses pkg/store/memory (in-process storage, ephemeral)
//   - "badger": Uses pkg/store/badger (BadgerDB storage, persistent)
//   - "s3": Uses pkg/store/s3 (Amazon S3 or compatible storage)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Store driver configuration
//
// Returns:
//   - store.Driver: Initialized driver (caller owns Close)
//   - error: Configuration or initialization error
func CreateDriver(ctx context.Context, cfg *StoreConfig) (store.Driver, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryDriver(ctx)
	case "badger":
		return createBadgerDriver(ctx, cfg.Badger)
	case "s3":
		return createS3Driver(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown store driver type: %q (supported: memory, badger, s3)", cfg.Type)
	}
}

// createMemoryDriver creates an in-process memory driver.
func createMemoryDriver(ctx context.Context) (store.Driver, error) {
	// Check context before creating driver
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The memory driver has no configuration knobs
	return storeMemory.NewMemoryDriver(), nil
}

// createBadgerDriver creates a BadgerDB-based persistent driver.
func createBadgerDriver(ctx context.Context, options map[string]any) (store.Driver, error) {
	// Check context before creating driver
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Decode driver-specific options
	type BadgerDriverOptions struct {
		DBPath           string        `mapstructure:"db_path"`
		BlockCacheSizeMB int64         `mapstructure:"block_cache_mb"`
		IndexCacheSizeMB int64         `mapstructure:"index_cache_mb"`
		GCInterval       time.Duration `mapstructure:"gc_interval"`
		GCDiscardRatio   float64       `mapstructure:"gc_discard_ratio"`
	}

	var driverOpts BadgerDriverOptions
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     &driverOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode badger driver options: %w", err)
	}

	// Validate required fields
	if driverOpts.DBPath == "" {
		return nil, fmt.Errorf("badger driver: db_path is required")
	}

	driver, err := storeBadger.NewBadgerDriver(ctx, storeBadger.BadgerDriverConfig{
		DBPath:           driverOpts.DBPath,
		BlockCacheSizeMB: driverOpts.BlockCacheSizeMB,
		IndexCacheSizeMB: driverOpts.IndexCacheSizeMB,
		GCInterval:       driverOpts.GCInterval,
		GCDiscardRatio:   driverOpts.GCDiscardRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger driver: %w", err)
	}

	return driver, nil
}

// createS3Driver creates an S3-based driver.
func createS3Driver(ctx context.Context, options map[string]any) (store.Driver, error) {
	// Decode driver-specific options
	type S3DriverOptions struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var driverOpts S3DriverOptions
	if err := mapstructure.Decode(options, &driverOpts); err != nil {
		return nil, fmt.Errorf("failed to decode S3 driver options: %w", err)
	}

	// Validate required fields
	if driverOpts.Bucket == "" {
		return nil, fmt.Errorf("S3 driver: bucket is required")
	}

	if driverOpts.Region == "" {
		return nil, fmt.Errorf("S3 driver: region is required")
	}

	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	var configOptions []func(*awsConfig.LoadOptions) error

	// Set region
	configOptions = append(configOptions, awsConfig.WithRegion(driverOpts.Region))

	// Set custom endpoint if provided (for MinIO, Localstack, etc.)
	if driverOpts.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               driverOpts.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Set credentials if provided, otherwise use default credential chain
	if driverOpts.AccessKeyID != "" && driverOpts.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			driverOpts.AccessKeyID,
			driverOpts.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	// Configure retries for better resilience against temporary S3 failures
	// Default to 10 retries if not specified (increased from AWS default of 3)
	maxRetries := driverOpts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10 // Default: 10 attempts
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries // Retry for transient errors (502, 503, timeouts, etc.)
		})
	}))

	// Load AWS config
	cfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		// Force path-style addressing for compatibility with MinIO/Localstack
		if driverOpts.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	// ========================================================================
	// Step 3: Create S3 Driver
	// ========================================================================

	driver, err := storeS3.NewS3Driver(ctx, storeS3.S3DriverConfig{
		Client:    client,
		Bucket:    driverOpts.Bucket,
		KeyPrefix: driverOpts.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 driver: %w", err)
	}

	logger.Info("S3 driver initialized: bucket=%s, region=%s, prefix=%s",
		driverOpts.Bucket, driverOpts.Region, driverOpts.KeyPrefix)

	return driver, nil
}
