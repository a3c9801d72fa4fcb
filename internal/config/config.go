// Package config reads and writes the clipd configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/yiblet/clipd/internal/logger"
	"github.com/yiblet/clipd/internal/remfs"
	"github.com/yiblet/clipd/internal/retention"
)

const (
	BackendYAML   = "yaml"
	BackendSQLite = "sqlite"

	MaxHydrateLimit = 1000
)

// Keys lists the configuration keys in display order.
var Keys = []string{
	"storage_root",
	"index_backend",
	"hydrate_limit",
	"retention_window",
	"sweep_interval",
	"max_capture_size",
	"log_level",
	"log_pretty",
}

var ErrUnknownKey = errors.New("unknown configuration key")

// Config represents the clipd configuration
type Config struct {
	StorageRoot     string        `yaml:"storage_root,omitempty"`
	IndexBackend    string        `yaml:"index_backend"`
	HydrateLimit    int           `yaml:"hydrate_limit"`
	RetentionWindow time.Duration `yaml:"retention_window"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
	MaxCaptureSize  int64         `yaml:"max_capture_size"`
	LogLevel        string        `yaml:"log_level"`
	LogPretty       bool          `yaml:"log_pretty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		IndexBackend:    BackendYAML,
		HydrateLimit:    50,
		RetentionWindow: retention.DefaultWindow,
		SweepInterval:   time.Hour,
		MaxCaptureSize:  retention.MaxCaptureSize,
		LogLevel:        "info",
	}
}

// ConfigManager manages configuration persistence
type ConfigManager struct {
	configPath string
}

// NewConfigManager creates a manager for ~/.config/clipd/config.yaml.
func NewConfigManager() (*ConfigManager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	return &ConfigManager{
		configPath: filepath.Join(homeDir, remfs.ConfigDir, "config.yaml"),
	}, nil
}

// NewConfigManagerWithPath creates a config manager with custom config path
func NewConfigManagerWithPath(configPath string) *ConfigManager {
	return &ConfigManager{
		configPath: configPath,
	}
}

// Load reads the configuration from file, or returns the defaults if the file
// doesn't exist. Keys missing from the file keep their default values.
func (cm *ConfigManager) Load() (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(cm.configPath)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save writes the configuration to file
func (cm *ConfigManager) Save(config *Config) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cm.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := remfs.WriteFileAtomic(cm.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks every field and normalizes the backend and level names.
func (c *Config) Validate() error {
	c.IndexBackend = strings.ToLower(strings.TrimSpace(c.IndexBackend))
	if c.IndexBackend != BackendYAML && c.IndexBackend != BackendSQLite {
		return fmt.Errorf("index_backend must be %q or %q", BackendYAML, BackendSQLite)
	}

	if c.HydrateLimit <= 0 {
		return fmt.Errorf("hydrate_limit must be greater than 0")
	}
	if c.HydrateLimit > MaxHydrateLimit {
		return fmt.Errorf("hydrate_limit cannot exceed %d items", MaxHydrateLimit)
	}

	if c.RetentionWindow <= 0 {
		return fmt.Errorf("retention_window must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive")
	}

	if c.MaxCaptureSize <= 0 {
		return fmt.Errorf("max_capture_size must be positive")
	}
	if c.MaxCaptureSize > retention.MaxCaptureSize {
		return fmt.Errorf("max_capture_size cannot exceed %s", humanize.IBytes(uint64(retention.MaxCaptureSize)))
	}

	c.LogLevel = strings.ToLower(c.LogLevel)
	if !logger.ValidLevel(c.LogLevel) {
		return fmt.Errorf("log_level %q is not a valid level", c.LogLevel)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func (cm *ConfigManager) GetConfigPath() string {
	return cm.configPath
}

// Update modifies a specific configuration value and saves the file.
func (cm *ConfigManager) Update(key, value string) error {
	config, err := cm.Load()
	if err != nil {
		return err
	}

	if err := config.set(normalizeKey(key), strings.TrimSpace(value)); err != nil {
		return err
	}

	return cm.Save(config)
}

func (c *Config) set(key, value string) error {
	switch key {
	case "storage_root":
		c.StorageRoot = value
	case "index_backend":
		c.IndexBackend = value
	case "hydrate_limit":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for hydrate_limit: %s", value)
		}
		c.HydrateLimit = n
	case "retention_window", "sweep_interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %s", key, value)
		}
		if key == "retention_window" {
			c.RetentionWindow = d
		} else {
			c.SweepInterval = d
		}
	case "max_capture_size":
		n, err := humanize.ParseBytes(value)
		if err != nil {
			return fmt.Errorf("invalid size for max_capture_size: %s", value)
		}
		c.MaxCaptureSize = int64(n)
	case "log_level":
		c.LogLevel = value
	case "log_pretty":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for log_pretty: %s (must be 'true' or 'false')", value)
		}
		c.LogPretty = b
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}

// Get returns the value for a specific configuration key
func (cm *ConfigManager) Get(key string) (string, error) {
	config, err := cm.Load()
	if err != nil {
		return "", err
	}
	return config.get(normalizeKey(key))
}

func (c *Config) get(key string) (string, error) {
	switch key {
	case "storage_root":
		if c.StorageRoot == "" {
			return "[default]", nil
		}
		return c.StorageRoot, nil
	case "index_backend":
		return c.IndexBackend, nil
	case "hydrate_limit":
		return strconv.Itoa(c.HydrateLimit), nil
	case "retention_window":
		return c.RetentionWindow.String(), nil
	case "sweep_interval":
		return c.SweepInterval.String(), nil
	case "max_capture_size":
		return humanize.IBytes(uint64(c.MaxCaptureSize)), nil
	case "log_level":
		return c.LogLevel, nil
	case "log_pretty":
		return strconv.FormatBool(c.LogPretty), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
}

// List returns all configuration keys and values
func (cm *ConfigManager) List() (map[string]string, error) {
	config, err := cm.Load()
	if err != nil {
		return nil, err
	}

	result := make(map[string]string, len(Keys))
	for _, key := range Keys {
		v, err := config.get(key)
		if err != nil {
			return nil, err
		}
		result[key] = v
	}
	return result, nil
}

// normalizeKey accepts dashed spellings such as "hydrate-limit".
func normalizeKey(key string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "-", "_"))
}
