package config

import (
	"context"
	"fmt"

	"github.com/grovedata/grove/internal/logger"
	"github.com/grovedata/grove/pkg/registry"
)

// InitializeRegistry creates a fully configured handle registry from the
// provided configuration.
//
// This function orchestrates the complete initialization process:
//  1. Creates the store driver selected by cfg.Store.Type
//  2. Wraps it in a registry with the configured cache capacity
//
// The resulting Registry deduplicates volume opens across the process. The
// registry owns the cached handles; the driver remains reachable through
// Registry.Driver() and must be closed by the caller after the registry:
//
//	reg, err := config.InitializeRegistry(ctx, cfg, nil)
//	if err != nil {
//	    log.Fatalf("Failed to initialize registry: %v", err)
//	}
//	defer reg.Driver().Close()
//	defer reg.Close()
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: Complete configuration loaded from config file
//   - m: Registry metrics collector (nil = no metrics)
//
// Returns:
//   - *registry.Registry: Fully initialized registry
//   - error: If driver creation fails or configuration is invalid
func InitializeRegistry(ctx context.Context, cfg *Config, m registry.RegistryMetrics) (*registry.Registry, error) {
	logger.Debug("Initializing registry from configuration")

	if cfg == nil {
		return nil, fmt.Errorf("configuration is nil")
	}

	// Step 1: Create the configured store driver
	driver, err := CreateDriver(ctx, &cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to create store driver: %w", err)
	}
	logger.Debug("Created store driver %q", driver.Name())

	// Step 2: Wrap it in a handle registry
	reg := registry.New(driver, registry.Config{
		Capacity: cfg.Cache.Capacity,
		Metrics:  m,
	})
	logger.Debug("Registry initialized (driver: %s, cache capacity: %d)",
		driver.Name(), reg.CacheCapacity())

	return reg, nil
}
