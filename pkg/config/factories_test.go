package config

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateDriver_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := &StoreConfig{
		Type:   "memory",
		Memory: map[string]any{},
	}

	driver, err := CreateDriver(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create memory driver: %v", err)
	}
	defer func() { _ = driver.Close() }()

	if driver == nil {
		t.Fatal("Expected non-nil driver")
	}
	if driver.Name() != "memory" {
		t.Errorf("Expected driver name 'memory', got %q", driver.Name())
	}
}

func TestCreateDriver_UnknownType(t *testing.T) {
	ctx := context.Background()
	cfg := &StoreConfig{
		Type: "postgres",
	}

	_, err := CreateDriver(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for unknown driver type")
	}
	if !strings.Contains(err.Error(), "unknown store driver type") {
		t.Errorf("Expected 'unknown store driver type' error, got: %v", err)
	}
}

func TestCreateDriver_Badger(t *testing.T) {
	ctx := context.Background()
	cfg := &StoreConfig{
		Type: "badger",
		Badger: map[string]any{
			"db_path": filepath.Join(t.TempDir(), "badger"),
		},
	}

	driver, err := CreateDriver(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create badger driver: %v", err)
	}
	defer func() { _ = driver.Close() }()

	if driver.Name() != "badger" {
		t.Errorf("Expected driver name 'badger', got %q", driver.Name())
	}
}

func TestCreateDriver_BadgerMissingDBPath(t *testing.T) {
	ctx := context.Background()
	cfg := &StoreConfig{
		Type:   "badger",
		Badger: map[string]any{},
	}

	_, err := CreateDriver(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for missing db_path")
	}
	if !strings.Contains(err.Error(), "db_path is required") {
		t.Errorf("Expected 'db_path is required' error, got: %v", err)
	}
}

func TestCreateDriver_BadgerDurationString(t *testing.T) {
	ctx := context.Background()
	cfg := &StoreConfig{
		Type: "badger",
		Badger: map[string]any{
			"db_path":     filepath.Join(t.TempDir(), "badger"),
			"gc_interval": "50ms",
		},
	}

	// Duration strings from YAML must decode into time.Duration fields
	driver, err := CreateDriver(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create badger driver with duration string: %v", err)
	}
	if err := driver.Close(); err != nil {
		t.Fatalf("Failed to close badger driver: %v", err)
	}
}

func TestCreateDriver_S3MissingBucket(t *testing.T) {
	ctx := context.Background()
	cfg := &StoreConfig{
		Type: "s3",
		S3: map[string]any{
			"region": "us-east-1",
		},
	}

	_, err := CreateDriver(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for missing bucket")
	}
	if !strings.Contains(err.Error(), "bucket is required") {
		t.Errorf("Expected 'bucket is required' error, got: %v", err)
	}
}

func TestCreateDriver_S3MissingRegion(t *testing.T) {
	ctx := context.Background()
	cfg := &StoreConfig{
		Type: "s3",
		S3: map[string]any{
			"bucket": "grove-data",
		},
	}

	_, err := CreateDriver(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for missing region")
	}
	if !strings.Contains(err.Error(), "region is required") {
		t.Errorf("Expected 'region is required' error, got: %v", err)
	}
}

func TestCreateDriver_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	cfg := &StoreConfig{
		Type:   "memory",
		Memory: map[string]any{},
	}

	_, err := CreateDriver(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for canceled context")
	}
	if err != context.Canceled {
		t.Errorf("Expected context.Canceled error, got: %v", err)
	}
}

func TestInitializeRegistry_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := GetDefaultConfig()
	cfg.Cache.Capacity = 8

	reg, err := InitializeRegistry(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Failed to initialize registry: %v", err)
	}
	defer func() { _ = reg.Driver().Close() }()
	defer func() { _ = reg.Close() }()

	if reg.CacheCapacity() != 8 {
		t.Errorf("Expected cache capacity 8, got %d", reg.CacheCapacity())
	}
	if reg.Driver().Name() != "memory" {
		t.Errorf("Expected memory driver, got %q", reg.Driver().Name())
	}
}

func TestInitializeRegistry_NilConfig(t *testing.T) {
	ctx := context.Background()

	_, err := InitializeRegistry(ctx, nil, nil)
	if err == nil {
		t.Fatal("Expected error for nil configuration")
	}
}
