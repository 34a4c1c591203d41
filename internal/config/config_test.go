package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCacheConfig_Defaults(t *testing.T) {
	t.Setenv("CACHE_ENABLED", "")
	t.Setenv("CACHE_METHODS", "")
	t.Setenv("CACHE_TTL", "")

	cfg := LoadCacheConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, map[string]bool{"GET": true}, cfg.Methods)
	assert.Equal(t, 30*time.Second, cfg.TTL)
	assert.Equal(t, "wbcache", cfg.Prefix)
	assert.True(t, cfg.PurgeOnWrite)
	assert.True(t, cfg.MemoryFallback)
}

func TestLoadCacheConfig_Overrides(t *testing.T) {
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("CACHE_METHODS", " get, head ,")
	t.Setenv("CACHE_TTL", "not-a-duration")
	t.Setenv("CACHE_PURGE_ON_WRITE", "off")

	cfg := LoadCacheConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
	assert.Equal(t, time.Second, cfg.TTL, "invalid durations fall back to one second")
	assert.False(t, cfg.PurgeOnWrite)
}

func TestLoadRateLimitConfig_Normalizes(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.TTL, "ttl is raised to five refill intervals")
}

func TestLoadRedisConfig(t *testing.T) {
	t.Run("host and port win over addr", func(t *testing.T) {
		t.Setenv("REDIS_ADDR", "cache:6380")
		t.Setenv("REDIS_HOST", "redis")
		t.Setenv("REDIS_PORT", "6379")
		t.Setenv("REDIS_TLS", "1")
		cfg := LoadRedisConfig()
		assert.Equal(t, "redis:6379", cfg.Addr)
		assert.True(t, cfg.TLS)
	})
	t.Run("defaults to localhost", func(t *testing.T) {
		t.Setenv("REDIS_ADDR", "")
		t.Setenv("REDIS_HOST", "")
		t.Setenv("REDIS_PORT", "")
		cfg := LoadRedisConfig()
		assert.Equal(t, "localhost:6379", cfg.Addr)
		assert.True(t, cfg.Enabled)
	})
}

func TestLoadQueueConfig_LegacyURL(t *testing.T) {
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://u:p@mq:5672/")
	cfg := LoadQueueConfig()
	assert.Equal(t, "amqp://u:p@mq:5672/", cfg.URL)
	assert.Equal(t, "billing.events", cfg.Queue)
	assert.False(t, cfg.Enabled)
}

func TestEnvFloat(t *testing.T) {
	t.Setenv("PRICE", "7.25")
	assert.Equal(t, 7.25, envFloat("PRICE", 5))
	t.Setenv("PRICE", "abc")
	assert.Equal(t, 5.0, envFloat("PRICE", 5))
	t.Setenv("PRICE", "-1")
	assert.Equal(t, 5.0, envFloat("PRICE", 5))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("WB_DOTENV_PROBE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("WB_DOTENV_PROBE") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("WB_DOTENV_PROBE"))
}
