package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"migitrader/internal/adapters/config"
	"migitrader/pkg/errors"
)

func unreachableConfig(attempts int) config.RedisConfig {
	// Port 1 refuses connections immediately
	return config.RedisConfig{
		Host:            "127.0.0.1",
		Port:            1,
		ConnectAttempts: attempts,
	}
}

func TestConnect_GivesUpAfterBoundedAttempts(t *testing.T) {
	client := NewClient(unreachableConfig(2))

	start := time.Now()
	err := client.Connect(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCacheUnavailable))
	assert.Contains(t, err.Error(), "2 attempts")

	// One inter-attempt delay of 100ms
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestConnect_SafeForConcurrentCallers(t *testing.T) {
	client := NewClient(unreachableConfig(1))

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.Connect(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.Error(t, err)
	}
}

func TestConnect_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(unreachableConfig(5))
	err := client.Connect(ctx)

	require.Error(t, err)
}

func TestOperationsSurfaceConnectFailure(t *testing.T) {
	client := NewClient(unreachableConfig(1))
	ctx := context.Background()

	_, err := client.Get(ctx, "key")
	assert.True(t, errors.Is(err, errors.ErrCacheUnavailable))

	err = client.Set(ctx, "key", "value", time.Minute)
	assert.True(t, errors.Is(err, errors.ErrCacheUnavailable))

	_, err = client.Exists(ctx, "key")
	assert.True(t, errors.Is(err, errors.ErrCacheUnavailable))
}
