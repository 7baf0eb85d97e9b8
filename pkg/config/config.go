/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the binprefs configuration
type Config struct {
	DataDir   string    `yaml:"data_dir" toml:"data_dir"`
	Name      string    `yaml:"name" toml:"name"`
	Backend   string    `yaml:"backend" toml:"backend"`
	Port      int       `yaml:"port" toml:"port"`
	Bind      string    `yaml:"bind" toml:"bind"`
	Security  Security  `yaml:"security" toml:"security"`
	Cache     Cache     `yaml:"cache" toml:"cache"`
	Broadcast Broadcast `yaml:"broadcast" toml:"broadcast"`
	Logging   Logging   `yaml:"logging" toml:"logging"`
}

// Security contains security-related configuration. Empty keys disable the
// matching feature.
type Security struct {
	APIKey       string `yaml:"api_key" toml:"api_key"`
	ValueKey     string `yaml:"value_key" toml:"value_key"`
	KeyXorSecret string `yaml:"key_xor_secret" toml:"key_xor_secret"`
}

// Cache contains fetch strategy configuration
type Cache struct {
	Eager bool `yaml:"eager" toml:"eager"`
}

// Broadcast configures cross-process change notification
type Broadcast struct {
	RedisAddr string `yaml:"redis_addr" toml:"redis_addr"`
	Channel   string `yaml:"channel" toml:"channel"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

const (
	BackendFiles  = "files"
	BackendPebble = "pebble"
)

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Name:    "default",
		Backend: BackendFiles,
		Port:    8080,
		Bind:    "127.0.0.1",
		Broadcast: Broadcast{
			Channel: "binaryprefs:changes",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadConfig loads configuration from the specified path. Files ending in
// .toml are parsed as TOML, everything else as YAML. Unset fields keep
// their defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	// Validate path to prevent directory traversal
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

	config := DefaultConfig()
	if isTOML(configPath) {
		err = toml.Unmarshal(data, config)
	} else {
		err = yaml.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	if isTOML(configPath) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(config); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(config); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	}

	// Write with secure permissions (0600)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig creates a new configuration with generated keys
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Security.APIKey = apiKey

	valueKey, err := GenerateSecureKey(32) // AES-256
	if err != nil {
		return nil, fmt.Errorf("failed to generate value key: %w", err)
	}
	config.Security.ValueKey = valueKey

	xorSecret, err := GenerateSecureKey(16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key secret: %w", err)
	}
	config.Security.KeyXorSecret = xorSecret

	// Save the configuration
	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// DecodeKey turns a hex key from the configuration into bytes. An empty
// key yields nil.
func DecodeKey(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("invalid hex key: %w", err)
	}
	return b, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./binprefs.yaml"
	}

	// For Linux/macOS, use ~/.config/binprefs/config.yaml
	configDir := filepath.Join(homeDir, ".config", "binprefs")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
