// Package config provides configuration loading and management for ironloop.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete ironloop configuration.
type Config struct {
	NATS    NATSConfig    `yaml:"nats"`
	Session SessionConfig `yaml:"session"`
	Roles   RolesConfig   `yaml:"roles"`
	HTTP    HTTPConfig    `yaml:"http"`
}

// NATSConfig configures the NATS connection.
type NATSConfig struct {
	// URL is the NATS server URL.
	URL string `yaml:"url"`
	// Stream is the JetStream stream carrying advance requests and events.
	Stream string `yaml:"stream"`
}

// SessionConfig configures session persistence.
type SessionConfig struct {
	// TTL expires sessions with no activity (store policy, the core never
	// deletes sessions).
	TTL time.Duration `yaml:"ttl"`
}

// RolesConfig configures role selection.
type RolesConfig struct {
	// CatalogPath points to an optional YAML keyword-catalog override.
	CatalogPath string `yaml:"catalog_path"`
	// Watch hot-reloads the catalog file on change.
	Watch bool `yaml:"watch"`
}

// HTTPConfig configures the service HTTP surface (health, metrics).
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		NATS: NATSConfig{
			URL:    "nats://localhost:4222",
			Stream: "SESSIONS",
		},
		Session: SessionConfig{
			TTL: 24 * time.Hour,
		},
		Roles: RolesConfig{
			CatalogPath: "",
			Watch:       false,
		},
		HTTP: HTTPConfig{
			Port: 8080,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required")
	}
	if c.NATS.Stream == "" {
		return fmt.Errorf("nats.stream is required")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	if c.Roles.Watch && c.Roles.CatalogPath == "" {
		return fmt.Errorf("roles.watch requires roles.catalog_path")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be a valid port")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file, layered over defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Stream != "" {
		c.NATS.Stream = other.NATS.Stream
	}

	if other.Session.TTL != 0 {
		c.Session.TTL = other.Session.TTL
	}

	if other.Roles.CatalogPath != "" {
		c.Roles.CatalogPath = other.Roles.CatalogPath
	}
	if other.Roles.Watch {
		c.Roles.Watch = true
	}

	if other.HTTP.Port != 0 {
		c.HTTP.Port = other.HTTP.Port
	}
}
