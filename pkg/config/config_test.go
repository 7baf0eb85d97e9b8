package config

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "./data", config.DataDir)
	assert.Equal(t, "default", config.Name)
	assert.Equal(t, BackendFiles, config.Backend)
	assert.Equal(t, 8080, config.Port)
	assert.Equal(t, "127.0.0.1", config.Bind)
	assert.Empty(t, config.Security.APIKey)
	assert.False(t, config.Cache.Eager)
	assert.Equal(t, "binaryprefs:changes", config.Broadcast.Channel)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "text", config.Logging.Format)
}

func TestGenerateSecureKey(t *testing.T) {
	t.Run("generate 32 byte key", func(t *testing.T) {
		key, err := GenerateSecureKey(32)
		require.NoError(t, err)
		assert.Len(t, key, 64) // 32 bytes = 64 hex characters

		_, err = hex.DecodeString(key)
		assert.NoError(t, err)
	})

	t.Run("generate different keys", func(t *testing.T) {
		key1, err := GenerateSecureKey(16)
		require.NoError(t, err)
		key2, err := GenerateSecureKey(16)
		require.NoError(t, err)

		assert.NotEqual(t, key1, key2)
	})

	t.Run("zero length", func(t *testing.T) {
		key, err := GenerateSecureKey(0)
		require.NoError(t, err)
		assert.Empty(t, key)
	})
}

func sampleConfig() *Config {
	return &Config{
		DataDir: "/custom/data",
		Name:    "app",
		Backend: BackendPebble,
		Port:    9000,
		Bind:    "0.0.0.0",
		Security: Security{
			APIKey:       "test-api-key",
			ValueKey:     "00112233445566778899aabbccddeeff",
			KeyXorSecret: "ffeeddccbbaa99887766554433221100",
		},
		Cache:     Cache{Eager: true},
		Broadcast: Broadcast{RedisAddr: "localhost:6379", Channel: "changes"},
		Logging:   Logging{Level: "debug", Format: "json"},
	}
}

func TestLoadConfig(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.toml"} {
		t.Run("load existing "+name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), name)
			expectedConfig := sampleConfig()

			err := SaveConfig(expectedConfig, configPath)
			require.NoError(t, err)

			loadedConfig, err := LoadConfig(configPath)
			require.NoError(t, err)
			assert.Equal(t, expectedConfig, loadedConfig)
		})
	}

	t.Run("partial config keeps defaults", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "partial.toml")
		err := os.WriteFile(configPath, []byte("name = \"mobile\"\n[cache]\neager = true\n"), 0600)
		require.NoError(t, err)

		config, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, "mobile", config.Name)
		assert.True(t, config.Cache.Eager)
		assert.Equal(t, 8080, config.Port)
		assert.Equal(t, BackendFiles, config.Backend)
	})

	t.Run("load non-existent config", func(t *testing.T) {
		_, err := LoadConfig("/non/existent/config.yaml")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "config file does not exist")
	})

	t.Run("load invalid yaml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "invalid.yaml")
		err := os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0644)
		require.NoError(t, err)

		_, err = LoadConfig(configPath)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("load invalid toml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "invalid.toml")
		err := os.WriteFile(configPath, []byte("port = [unclosed"), 0644)
		require.NoError(t, err)

		_, err = LoadConfig(configPath)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})
}

func TestSaveConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	config := DefaultConfig()

	err := SaveConfig(config, configPath)
	require.NoError(t, err)

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loadedConfig, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, config, loadedConfig)
}

func TestBootstrapConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	dataDir := "/custom/data/dir"

	config, err := BootstrapConfig(configPath, dataDir)
	require.NoError(t, err)

	assert.Equal(t, dataDir, config.DataDir)
	assert.Equal(t, 8080, config.Port)
	assert.Equal(t, "info", config.Logging.Level)

	valueKey, err := DecodeKey(config.Security.ValueKey)
	require.NoError(t, err)
	assert.Len(t, valueKey, 32)

	xorSecret, err := DecodeKey(config.Security.KeyXorSecret)
	require.NoError(t, err)
	assert.Len(t, xorSecret, 16)

	assert.Len(t, config.Security.APIKey, 64)

	assert.True(t, ConfigExists(configPath))

	loadedConfig, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, config, loadedConfig)
}

func TestDecodeKey(t *testing.T) {
	key, err := DecodeKey("")
	require.NoError(t, err)
	assert.Nil(t, key)

	_, err = DecodeKey("zz")
	assert.Error(t, err)
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()
	assert.NotEmpty(t, path)
	assert.Contains(t, path, "binprefs")
}

func TestConfigExists(t *testing.T) {
	tmpDir := t.TempDir()

	existingPath := filepath.Join(tmpDir, "exists.yaml")
	nonExistentPath := filepath.Join(tmpDir, "does-not-exist.yaml")

	err := os.WriteFile(existingPath, []byte("test"), 0644)
	require.NoError(t, err)

	assert.True(t, ConfigExists(existingPath))
	assert.False(t, ConfigExists(nonExistentPath))
}

func TestConfigYAMLMarshalling(t *testing.T) {
	config := sampleConfig()

	data, err := yaml.Marshal(config)
	require.NoError(t, err)

	var unmarshalled Config
	err = yaml.Unmarshal(data, &unmarshalled)
	require.NoError(t, err)

	assert.Equal(t, config, &unmarshalled)
}

func TestSaveConfigErrorHandling(t *testing.T) {
	config := DefaultConfig()

	// A regular file where the config directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))
	invalidPath := filepath.Join(blocker, "sub", "config.yaml")

	err := SaveConfig(config, invalidPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create config directory")
}
