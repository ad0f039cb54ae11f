// Package config loads and saves the tree engine's tuning configuration as
// YAML, via LoadConfig/SaveConfig/GenerateSecureKey/BootstrapConfig over
// gopkg.in/yaml.v3.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the tree engine's persisted tuning configuration.
type Config struct {
	DataDir           string  `yaml:"data_dir"`
	MaxLeafByteSize   uint32  `yaml:"max_leaf_byte_size"`
	MaxBranchChildren int     `yaml:"max_branch_children"`
	HeapMemoryLimit   int64   `yaml:"heap_memory_limit"`
	HeapHashBuckets   int     `yaml:"heap_hash_buckets"`
	Logging           Logging `yaml:"logging"`
	// InstanceKey identifies this database instance to a commit manager or
	// diagnostics collector; generated once at bootstrap time.
	InstanceKey string `yaml:"instance_key"`
	// StoreBackend selects the area allocator: "file" (default, a single
	// append-only log) or "pebble" (an embedded LSM tree, for data
	// directories expected to outgrow one log's compaction story).
	StoreBackend string `yaml:"store_backend"`
}

// Backend names a storeio.Store implementation StoreBackend may select.
const (
	BackendFile   = "file"
	BackendPebble = "pebble"
)

// Logging contains logging configuration.
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir:           "./data",
		MaxLeafByteSize:   4096,
		MaxBranchChildren: 64,
		HeapMemoryLimit:   64 << 20,
		HeapHashBuckets:   4096,
		Logging:           Logging{Level: "info"},
		InstanceKey:       "auto",
		StoreBackend:      BackendFile,
	}
}

// LoadConfig loads configuration from the specified path.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// SaveConfig saves the configuration to the specified path with secure
// permissions.
func SaveConfig(cfg *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key.
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig creates a new configuration with a generated instance key
// and writes it to configPath.
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	instanceKey, err := GenerateSecureKey(16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate instance key: %w", err)
	}
	cfg.InstanceKey = instanceKey

	if err := SaveConfig(cfg, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return cfg, nil
}

// GetDefaultConfigPath returns the default configuration path for the
// current platform.
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./freyjatree.yaml"
	}
	configDir := filepath.Join(homeDir, ".config", "freyjatree")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists.
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
