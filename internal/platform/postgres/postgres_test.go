package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecovalue/internal/platform/config"
)

func TestConnectBackOff(t *testing.T) {
	t.Run("no limit tries once", func(t *testing.T) {
		assert.Equal(t, backoff.Stop, connectBackOff(0).NextBackOff())
	})

	t.Run("bounded exponential", func(t *testing.T) {
		b, ok := connectBackOff(time.Minute).(*backoff.ExponentialBackOff)
		require.True(t, ok)
		assert.Equal(t, time.Minute, b.MaxElapsedTime)
		assert.Equal(t, 200*time.Millisecond, b.InitialInterval)
	})
}

func TestOpenGivesUpWhenUnreachable(t *testing.T) {
	start := time.Now()
	_, err := Open(context.Background(), config.DatabaseConfig{
		URL:            "postgres://ecovalue@127.0.0.1:1/ecovalue?sslmode=disable&connect_timeout=1",
		ConnectTimeout: 500 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}
