package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.False(t, cfg.Custody.AllowTransferFromCreated)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CHAINGUARD_ADDR", ":9000")
	t.Setenv("LEDGER_BACKEND", BackendRedis)
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("CUSTODY_ALLOW_TRANSFER_FROM_CREATED", "true")
	t.Setenv("REDIS_READ_TIMEOUT", "750ms")
	t.Setenv("REDIS_POOL_SIZE", "not-a-number")

	cfg := FromEnv()
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, BackendRedis, cfg.Backend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Custody.AllowTransferFromCreated)
	assert.Equal(t, 750*time.Millisecond, cfg.Redis.ReadTimeout)
	assert.Equal(t, 10, cfg.Redis.PoolSize, "invalid values fall back to defaults")
}
