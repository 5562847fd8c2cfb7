package config

import (
	"github.com/grovedata/grove/pkg/metrics"
	"github.com/grovedata/grove/pkg/registry"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// Registry is the metrics collector for the handle registry
	// (never nil, uses noop if disabled)
	Registry registry.RegistryMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns no-op metrics implementations (zero overhead)
//
// Parameters:
//   - cfg: The complete Grove configuration
//
// Returns:
//   - MetricsResult containing all metrics components
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		// Metrics disabled - return no-op implementations
		return &MetricsResult{
			Server:   nil,
			Registry: metrics.NewRegistryMetrics(),
		}
	}

	// Initialize global Prometheus registry
	metrics.InitRegistry()

	// Create metrics HTTP server
	server := metrics.NewServer(metrics.ServerConfig{
		Port: cfg.Metrics.Port,
	})

	// Create Prometheus-backed metrics for the handle registry
	registryMetrics := metrics.NewRegistryMetrics()

	return &MetricsResult{
		Server:   server,
		Registry: registryMetrics,
	}
}
