// Package config loads and validates the claude-approve configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lizzy-schoen/claude-approve/internal/api"
	"github.com/lizzy-schoen/claude-approve/internal/logging"
	"github.com/lizzy-schoen/claude-approve/internal/notify"
	"github.com/lizzy-schoen/claude-approve/internal/relay"
)

// EnvConfigPath overrides the default config file location when set.
const EnvConfigPath = "CLAUDE_APPROVE_CONFIG"

// Config represents the main configuration
type Config struct {
	Version string          `yaml:"version"`
	Logging *logging.Config `yaml:"logging"`
	Store   *StoreConfig    `yaml:"store"`
	API     *api.Config     `yaml:"api"`
	Relay   *relay.Config   `yaml:"relay"`
	Notify  *notify.Config  `yaml:"notify"`
}

// StoreConfig holds database settings
type StoreConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Version: "1.0",
		Logging: logging.DefaultConfig(),
		Store: &StoreConfig{
			Path: filepath.Join(homeDir, ".claude-approve", "data"),
		},
		API:    api.DefaultConfig(),
		Relay:  relay.DefaultConfig(),
		Notify: notify.DefaultConfig(),
	}
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil // Return defaults if no config file
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if config.Store != nil {
		config.Store.Path = expandPath(config.Store.Path)
	}
	if config.Relay != nil {
		config.Relay.ProjectDir = expandPath(config.Relay.ProjectDir)
	}

	return config, nil
}

// Save saves configuration to a file
func Save(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the configuration path, honoring EnvConfigPath.
func DefaultConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".claude-approve", "config.yaml")
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.API == nil {
		return fmt.Errorf("api configuration is required")
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api port: %d", c.API.Port)
	}
	if c.Store == nil || c.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}
	if c.Notify != nil && c.Notify.ClientID != "" && c.Notify.ClientSecret == "" {
		return fmt.Errorf("notify client secret is required when client id is set")
	}
	return nil
}
