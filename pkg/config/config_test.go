package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadWithPath_Defaults(t *testing.T) {
	cfg, err := LoadWithPath(writeEnvFile(t, "APP_NAME=queueme\n"))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 50, cfg.Queue.DefaultDailyLimit)
	assert.Equal(t, 15, cfg.Queue.MinutesPerCustomer)
	assert.Equal(t, 30, cfg.Queue.DefaultRetentionDays)
	assert.Equal(t, "inprocess", cfg.Notification.Transport)
	assert.True(t, cfg.Notification.DLQEnabled)
	assert.Equal(t, ".dlq", cfg.Notification.DLQSuffix)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 10*time.Minute, cfg.Idempotency.TTL)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadWithPath_FileValues(t *testing.T) {
	cfg, err := LoadWithPath(writeEnvFile(t, `
APP_TIMEZONE=Asia/Bangkok
STORE_DRIVER=MEMORY
QUEUE_MINUTES_PER_CUSTOMER=20
KAFKA_BROKERS=k1:9092, k2:9092
NOTIFICATION_TRANSPORT=kafka
`))
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 20, cfg.Queue.MinutesPerCustomer)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "Asia/Bangkok", cfg.Location().String())
}

func TestLoadWithPath_EnvOverridesFile(t *testing.T) {
	t.Setenv("SERVER_PORT", "8088")

	cfg, err := LoadWithPath(writeEnvFile(t, "SERVER_PORT=9000\n"))
	require.NoError(t, err)
	assert.Equal(t, 8088, cfg.Server.Port)
}

func TestLoadWithPath_MissingFile(t *testing.T) {
	_, err := LoadWithPath(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadWithPath(writeEnvFile(t, "APP_NAME=queueme\n"))
	require.NoError(t, err)
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad timezone", func(c *Config) { c.App.Timezone = "Mars/Olympus" }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad store", func(c *Config) { c.Store.Driver = "sqlite" }},
		{"bad transport", func(c *Config) { c.Notification.Transport = "pigeon" }},
		{"kafka without brokers", func(c *Config) {
			c.Notification.Transport = "kafka"
			c.Kafka.Brokers = nil
		}},
		{"zero daily limit", func(c *Config) { c.Queue.DefaultDailyLimit = 0 }},
		{"zero minutes", func(c *Config) { c.Queue.MinutesPerCustomer = 0 }},
		{"empty secret", func(c *Config) { c.JWT.Secret = "" }},
		{"default secret in production", func(c *Config) { c.App.Environment = "production" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_ProductionWithSecret(t *testing.T) {
	cfg := validConfig(t)
	cfg.App.Environment = "production"
	cfg.JWT.Secret = "a-real-secret"

	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDevelopment())
}
