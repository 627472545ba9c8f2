package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvDefaults(t *testing.T) {
	t.Setenv("LOW_STOCK_THRESHOLD", "")
	cfg := LoadEnv()

	assert.Equal(t, 50, cfg.Inventory.LowStockThreshold)
	assert.Equal(t, 30, cfg.Inventory.ExpiringDays)
	assert.Equal(t, 5*time.Second, cfg.Inventory.LockTTL)
	assert.Equal(t, "orders.events", cfg.Kafka.OrdersTopic)
	require.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LOW_STOCK_THRESHOLD", "20")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("INVENTORY_LOCK_TTL", "2s")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("JWT_ALLOW_ANONYMOUS", "true")

	cfg := LoadEnv()

	assert.Equal(t, 20, cfg.Inventory.LowStockThreshold)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2*time.Second, cfg.Inventory.LockTTL)
	assert.Empty(t, cfg.Redis.Addr)
	assert.True(t, cfg.JWT.AllowAnonymous)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.JWT.SecretKey = "" }, wantErr: true},
		{name: "kafka without brokers", mutate: func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }, wantErr: true},
		{name: "kafka disabled without brokers", mutate: func(c *Config) { c.Kafka.Enabled = false; c.Kafka.Brokers = nil }},
		{name: "negative threshold", mutate: func(c *Config) { c.Inventory.LowStockThreshold = -1 }, wantErr: true},
		{name: "zero lock retries", mutate: func(c *Config) { c.Inventory.LockRetries = 0 }, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := LoadEnv()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
