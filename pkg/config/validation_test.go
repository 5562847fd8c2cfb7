package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	err := Validate(cfg)
	if err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_LowercaseLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "warn"

	// Lowercase levels are accepted; normalization happens in ApplyDefaults
	err := Validate(cfg)
	if err != nil {
		t.Errorf("Expected lowercase log level to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidStoreType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "postgres"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for unsupported store type")
	}
}

func TestValidate_NegativeCacheCapacity(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Cache.Capacity = -1

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for negative cache capacity")
	}
}

func TestValidate_BadgerMissingDBPath(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "badger"
	cfg.Store.Badger = map[string]any{}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for badger store without db_path")
	}
	if !strings.Contains(err.Error(), "db_path is required") {
		t.Errorf("Expected 'db_path is required' error, got: %v", err)
	}
}

func TestValidate_S3MissingBucket(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "s3"
	cfg.Store.S3 = map[string]any{"region": "us-east-1"}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for s3 store without bucket")
	}
	if !strings.Contains(err.Error(), "bucket is required") {
		t.Errorf("Expected 'bucket is required' error, got: %v", err)
	}
}

func TestValidate_MetricsPortOutOfRange(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Port = 70000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for out-of-range metrics port")
	}
}
