package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, "SESSIONS", cfg.NATS.Stream)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.False(t, cfg.Roles.Watch)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing nats url",
			mutate:  func(c *Config) { c.NATS.URL = "" },
			wantErr: "nats.url",
		},
		{
			name:    "missing stream",
			mutate:  func(c *Config) { c.NATS.Stream = "" },
			wantErr: "nats.stream",
		},
		{
			name:    "non-positive ttl",
			mutate:  func(c *Config) { c.Session.TTL = 0 },
			wantErr: "session.ttl",
		},
		{
			name:    "watch without catalog path",
			mutate:  func(c *Config) { c.Roles.Watch = true },
			wantErr: "catalog_path",
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.HTTP.Port = 70000 },
			wantErr: "http.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ironloop.yaml")

	content := `nats:
  url: nats://nats.internal:4222
session:
  ttl: 1h
roles:
  catalog_path: /etc/ironloop/roles.yaml
  watch: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "nats://nats.internal:4222", cfg.NATS.URL)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, "/etc/ironloop/roles.yaml", cfg.Roles.CatalogPath)
	assert.True(t, cfg.Roles.Watch)

	// Unspecified fields keep their defaults.
	assert.Equal(t, "SESSIONS", cfg.NATS.Stream)
	assert.Equal(t, 8080, cfg.HTTP.Port)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadFromFile_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nats: ["), 0644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
}

func TestConfig_Merge(t *testing.T) {
	base := DefaultConfig()
	base.Merge(&Config{
		NATS:    NATSConfig{URL: "nats://other:4222"},
		Session: SessionConfig{TTL: 2 * time.Hour},
		HTTP:    HTTPConfig{Port: 9090},
	})

	assert.Equal(t, "nats://other:4222", base.NATS.URL)
	assert.Equal(t, "SESSIONS", base.NATS.Stream, "zero values must not override")
	assert.Equal(t, 2*time.Hour, base.Session.TTL)
	assert.Equal(t, 9090, base.HTTP.Port)

	base.Merge(nil)
	assert.Equal(t, 9090, base.HTTP.Port)
}

func TestConfig_SaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.NATS.URL = "nats://saved:4222"
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "nats://saved:4222", loaded.NATS.URL)
}
