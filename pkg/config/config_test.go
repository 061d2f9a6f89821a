package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("backend:\n  base_url: http://backend:8000//\n"))
	require.NoError(t, err)

	assert.Equal(t, "http://backend:8000", c.Backend.BaseURL)
	assert.Equal(t, 3*time.Second, c.Chart.PollInterval)
	assert.Equal(t, []string{"5m", "15m"}, c.Chart.Timeframes)
	assert.Equal(t, StorageMemory, c.Storage.Type)
	assert.Equal(t, 600, c.Chart.SignalLimit)
	assert.Equal(t, 30*time.Second, c.ForwardTest.StatusInterval)
	assert.Equal(t, []string{"*"}, c.Server.AllowedOrigins)
	assert.Equal(t, 1000, c.Storage.MemorySize)
	assert.Equal(t, 5*time.Minute, c.Storage.CleanupInterval)
	assert.Equal(t, 10, c.Redis.PoolSize)
	assert.Equal(t, 30*time.Second, c.Redis.PoolTimeout)
}

func TestParseOverridesNestedField(t *testing.T) {
	c, err := Parse([]byte("backend:\n  base_url: http://b\nchart:\n  poll_interval: 5s\n"))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, c.Chart.PollInterval)
	// sibling fields keep their defaults
	assert.Equal(t, 500, c.Chart.OHLCVLimit)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"missing backend":  "environment: test\n",
		"fast poll":        "backend:\n  base_url: http://b\nchart:\n  poll_interval: 500ms\n",
		"memory size":      "backend:\n  base_url: http://b\nstorage:\n  memory_size: -1\n",
		"bad timeframe":    "backend:\n  base_url: http://b\nchart:\n  timeframes: [\"1h\"]\n",
		"bad storage":      "backend:\n  base_url: http://b\nstorage:\n  type: etcd\n",
		"kafka no brokers": "backend:\n  base_url: http://b\nkafka:\n  enabled: true\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnvMissingFile(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://env-backend:9000/")
	t.Setenv("REDIS_ADDR", "redis.local:6380")
	t.Setenv("STORAGE_TYPE", "redis")

	c, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://env-backend:9000", c.Backend.BaseURL)
	assert.Equal(t, "redis.local", c.Redis.Host)
	assert.Equal(t, 6380, c.Redis.Port)
	assert.Equal(t, StorageRedis, c.Storage.Type)
}

func TestLoadWithEnvFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  base_url: http://file\nlog:\n  level: warn\n"), 0o644))
	t.Setenv("LOG_LEVEL", "debug")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "http://file", c.Backend.BaseURL)
	assert.Equal(t, "debug", c.Log.Level)
}
