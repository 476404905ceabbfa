package redis

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecovalue/internal/platform/config"
)

func TestNewWithoutURLIsDisabled(t *testing.T) {
	c, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNewRejectsMalformedURL(t *testing.T) {
	_, err := New(context.Background(), config.RedisConfig{URL: "http://not-redis"})
	require.Error(t, err)
}

func TestApplyPoolConfig(t *testing.T) {
	t.Run("zero values keep url options", func(t *testing.T) {
		opts, err := redis.ParseURL("redis://localhost:6379/2?pool_size=7&dial_timeout=2s")
		require.NoError(t, err)

		applyPoolConfig(opts, config.RedisConfig{})

		assert.Equal(t, 7, opts.PoolSize)
		assert.Equal(t, 2*time.Second, opts.DialTimeout)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, clientName, opts.ClientName)
	})

	t.Run("config overrides", func(t *testing.T) {
		opts, err := redis.ParseURL("redis://localhost:6379/0")
		require.NoError(t, err)

		applyPoolConfig(opts, config.RedisConfig{
			PoolSize:     20,
			MinIdleConns: 3,
			ReadTimeout:  time.Second,
			WriteTimeout: 2 * time.Second,
		})

		assert.Equal(t, 20, opts.PoolSize)
		assert.Equal(t, 3, opts.MinIdleConns)
		assert.Equal(t, time.Second, opts.ReadTimeout)
		assert.Equal(t, 2*time.Second, opts.WriteTimeout)
	})
}

func TestRegisterPoolMetrics(t *testing.T) {
	c := &Client{Client: redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})}
	t.Cleanup(func() { _ = c.Close() })

	reg := prometheus.NewRegistry()
	require.NoError(t, c.RegisterPoolMetrics(reg))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	assert.Error(t, c.RegisterPoolMetrics(reg), "duplicate registration must fail")
}
