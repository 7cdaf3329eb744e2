package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	d := DefaultConfig()
	assert.Equal(t, d.Server, cfg.Server)
	assert.Equal(t, d.Dispatch, cfg.Dispatch)
	assert.Equal(t, d.Scheduler, cfg.Scheduler)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, "pushnotify:", cfg.Redis.KeyPrefix)
	assert.Empty(t, cfg.Events.Brokers)
}

func TestLoadConfig_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: "9090"
storage:
  type: postgres
  postgres_dsn: postgres://localhost/push
dispatch:
  concurrency: 20
scheduler:
  spec: "@every 30s"
events:
  brokers: ["kafka-1:9092", "kafka-2:9092"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("PUSHNOTIFY_DISPATCH_CONCURRENCY", "50")
	t.Setenv("PUSHNOTIFY_DISPATCH_SEND_TIMEOUT", "3s")
	t.Setenv("PUSHNOTIFY_AUTH_JWT_SECRET", "s3cret")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Storage.Type)
	assert.Equal(t, 50, cfg.Dispatch.Concurrency, "environment overrides the file")
	assert.Equal(t, 3*time.Second, cfg.Dispatch.SendTimeout)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "@every 30s", cfg.Scheduler.Spec)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Events.Brokers)
	assert.Equal(t, 15*time.Minute, cfg.Server.RateWindow, "unset keys keep their defaults")
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown storage", func(c *Config) { c.Storage.Type = "mongo" }},
		{"postgres without dsn", func(c *Config) { c.Storage.Type = "postgres" }},
		{"zero concurrency", func(c *Config) { c.Dispatch.Concurrency = 0 }},
		{"negative rate limit", func(c *Config) { c.Server.RateLimit = -1 }},
		{"scheduler without spec", func(c *Config) { c.Scheduler.Spec = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, DefaultConfig().Validate())
}
