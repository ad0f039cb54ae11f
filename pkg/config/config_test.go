package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, uint32(4096), cfg.MaxLeafByteSize)
	assert.Equal(t, 64, cfg.MaxBranchChildren)
	assert.Equal(t, int64(64<<20), cfg.HeapMemoryLimit)
	assert.Equal(t, 4096, cfg.HeapHashBuckets)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "auto", cfg.InstanceKey)
	assert.Equal(t, BackendFile, cfg.StoreBackend)
}

func TestGenerateSecureKey(t *testing.T) {
	key, err := GenerateSecureKey(16)
	require.NoError(t, err)
	assert.Len(t, key, 32)

	key2, err := GenerateSecureKey(16)
	require.NoError(t, err)
	assert.NotEqual(t, key, key2)
}

func TestLoadSaveConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	want := &Config{
		DataDir:           "/custom/data",
		MaxLeafByteSize:   8192,
		MaxBranchChildren: 128,
		HeapMemoryLimit:   1 << 30,
		HeapHashBuckets:   2048,
		Logging:           Logging{Level: "debug"},
		InstanceKey:       "test-instance",
		StoreBackend:      BackendPebble,
	}

	require.NoError(t, SaveConfig(want, configPath))

	got, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/non/existent/config.yaml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "config file does not exist")
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0o644))

	_, err := LoadConfig(configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestBootstrapConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg, err := BootstrapConfig(configPath, "/custom/data/dir")
	require.NoError(t, err)

	assert.Equal(t, "/custom/data/dir", cfg.DataDir)
	assert.NotEqual(t, "auto", cfg.InstanceKey)
	assert.True(t, ConfigExists(configPath))

	loaded, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestConfigYAMLMarshalling(t *testing.T) {
	cfg := &Config{
		DataDir:           "/test/data",
		MaxLeafByteSize:   2048,
		MaxBranchChildren: 32,
		HeapMemoryLimit:   1024,
		HeapHashBuckets:   512,
		Logging:           Logging{Level: "warn"},
		InstanceKey:       "k",
	}

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	var got Config
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, cfg, &got)
}

func TestConfigExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingPath := filepath.Join(tmpDir, "exists.yaml")
	require.NoError(t, os.WriteFile(existingPath, []byte("test"), 0o644))

	assert.True(t, ConfigExists(existingPath))
	assert.False(t, ConfigExists(filepath.Join(tmpDir, "missing.yaml")))
}
