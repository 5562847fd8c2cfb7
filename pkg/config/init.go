package config

import (
	"fmt"
	"os"
)

// InitConfig writes a commented sample configuration file to the default
// location ($XDG_CONFIG_HOME/grove/config.yaml or ~/.config/grove/config.yaml).
//
// Parameters:
//   - force: Overwrite an existing config file instead of failing
//
// Returns:
//   - string: Path of the written config file
//   - error: If the file already exists (without force) or cannot be written
func InitConfig(force bool) (string, error) {
	configDir := getConfigDir()
	configPath := GetDefaultConfigPath()

	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return "", fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
		}
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}

	content := generateConfigYAML(GetDefaultConfig())

	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return configPath, nil
}

// generateConfigYAML renders a commented sample config with the given
// defaults filled in.
func generateConfigYAML(cfg *Config) string {
	return fmt.Sprintf(`# Grove Configuration File
#
# Environment variables with the GROVE_ prefix override these values
# (example: GROVE_LOGGING_LEVEL=DEBUG).

logging:
  # Minimum level to log: DEBUG, INFO, WARN, ERROR
  level: %q
  # Output format: text or json
  format: %q
  # Where to write logs: stdout, stderr, or a file path
  output: %q

cache:
  # Maximum number of cached volume handles. The least recently used
  # handle is closed when the bound is exceeded.
  capacity: %d

store:
  # Store driver: memory, badger, or s3
  type: %q

  # BadgerDB driver settings (used when type is "badger")
  badger:
    db_path: %q
    gc_interval: %q

  # S3 driver settings (used when type is "s3")
  # s3:
  #   region: "us-east-1"
  #   bucket: "grove-data"
  #   key_prefix: ""
  #   endpoint: ""            # set for MinIO or Localstack
  #   access_key_id: ""
  #   secret_access_key: ""

metrics:
  # Expose Prometheus metrics over HTTP
  enabled: %t
  port: %d
`,
		cfg.Logging.Level,
		cfg.Logging.Format,
		cfg.Logging.Output,
		cfg.Cache.Capacity,
		cfg.Store.Type,
		cfg.Store.Badger["db_path"],
		cfg.Store.Badger["gc_interval"],
		cfg.Metrics.Enabled,
		cfg.Metrics.Port,
	)
}
