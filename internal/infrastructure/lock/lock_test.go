package lock

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryLocker_AcquireRelease(t *testing.T) {
	l := NewInMemoryLocker()
	defer l.Close()
	ctx := context.Background()

	token, err := l.Acquire(ctx, "import:people", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = l.Acquire(ctx, "import:people", time.Hour)
	assert.ErrorIs(t, err, shared.ErrLockHeld)

	other, err := l.Acquire(ctx, "import:groups", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)

	assert.ErrorIs(t, l.Release(ctx, "import:people", "wrong-token"), shared.ErrLockHeld)
	require.NoError(t, l.Release(ctx, "import:people", token))

	_, err = l.Acquire(ctx, "import:people", time.Hour)
	require.NoError(t, err)
}

func TestInMemoryLocker_Expiry(t *testing.T) {
	l := NewInMemoryLocker()
	defer l.Close()
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	_, err := l.Acquire(ctx, "export", time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = l.Acquire(ctx, "export", time.Minute)
	require.NoError(t, err, "expired lock can be taken over")

	now = now.Add(2 * time.Minute)
	l.cleanup()
	assert.Equal(t, 0, l.Size())
}

func TestInMemoryLocker_ConcurrentAcquire(t *testing.T) {
	l := NewInMemoryLocker()
	defer l.Close()

	var wg sync.WaitGroup
	var mu sync.Mutex
	won := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Acquire(context.Background(), "import:memberships", time.Hour); err == nil {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, won)
}

func TestInMemoryLocker_CloseIsIdempotent(t *testing.T) {
	l := NewInMemoryLocker()
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
}

func TestFactory_WithoutRedis(t *testing.T) {
	l, err := NewFactory(config.RedisConfig{}).Create()
	require.NoError(t, err)
	defer l.Close()
	assert.IsType(t, &InMemoryLocker{}, l)
}

func TestFactory_UnreachableRedis(t *testing.T) {
	cfg := config.RedisConfig{Host: "127.0.0.1", Port: 1}

	l, err := NewFactory(cfg).Create()
	require.NoError(t, err)
	defer l.Close()
	assert.IsType(t, &InMemoryLocker{}, l)

	_, err = NewFactory(cfg, WithInMemoryFallback(false)).Create()
	assert.Error(t, err)
}

func TestRedisLocker_Integration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "1" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=1 and run Redis on localhost:6379 to enable.")
	}
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	l := NewRedisLockerWithClient(client, "sac:test:lock:")
	defer l.Close()
	ctx := context.Background()

	token, err := l.Acquire(ctx, "import:people", time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "import:people", time.Minute)
	assert.ErrorIs(t, err, shared.ErrLockHeld)

	assert.ErrorIs(t, l.Release(ctx, "import:people", "other"), shared.ErrLockHeld)
	require.NoError(t, l.Release(ctx, "import:people", token))
}
