package config

import (
	"testing"

	"github.com/grovedata/grove/pkg/registry"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_NormalizesLogLevel(t *testing.T) {
	cfg := &Config{}
	cfg.Logging.Level = "debug"
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized log level 'DEBUG', got %q", cfg.Logging.Level)
	}
}

func TestApplyDefaults_Cache(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Cache.Capacity != registry.DefaultCacheCapacity {
		t.Errorf("Expected default cache capacity %d, got %d",
			registry.DefaultCacheCapacity, cfg.Cache.Capacity)
	}
}

func TestApplyDefaults_CachePreservesExplicitCapacity(t *testing.T) {
	cfg := &Config{}
	cfg.Cache.Capacity = 42
	ApplyDefaults(cfg)

	if cfg.Cache.Capacity != 42 {
		t.Errorf("Expected explicit cache capacity 42 to be preserved, got %d", cfg.Cache.Capacity)
	}
}

func TestApplyDefaults_Store(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Store.Type != "memory" {
		t.Errorf("Expected default store type 'memory', got %q", cfg.Store.Type)
	}

	// Check maps initialized
	if cfg.Store.Memory == nil {
		t.Fatal("Expected Memory map to be initialized")
	}
	if cfg.Store.Badger == nil {
		t.Fatal("Expected Badger map to be initialized")
	}
	if cfg.Store.S3 == nil {
		t.Fatal("Expected S3 map to be initialized")
	}

	// Check badger defaults
	if path, ok := cfg.Store.Badger["db_path"]; !ok || path != "/tmp/grove-badger" {
		t.Errorf("Expected default badger db_path '/tmp/grove-badger', got %v", path)
	}
	if interval, ok := cfg.Store.Badger["gc_interval"]; !ok || interval != "5m" {
		t.Errorf("Expected default badger gc_interval '5m', got %v", interval)
	}
}

func TestApplyDefaults_StorePreservesExplicitType(t *testing.T) {
	cfg := &Config{}
	cfg.Store.Type = "badger"
	ApplyDefaults(cfg)

	if cfg.Store.Type != "badger" {
		t.Errorf("Expected explicit store type 'badger' to be preserved, got %q", cfg.Store.Type)
	}
}

func TestApplyDefaults_Metrics(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Metrics.Enabled {
		t.Error("Expected metrics to default to disabled")
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", cfg.Metrics.Port)
	}
}

func TestGetDefaultConfig_PassesValidation(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected default config to pass validation, got error: %v", err)
	}
}
