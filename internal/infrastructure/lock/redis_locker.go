// Package lock provides named expiring locks used to keep two runs of the
// same importer or export job apart.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/config"
)

const defaultKeyPrefix = "sac:lock:"

// releaseScript deletes the key only when it still holds the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements shared.Locker with Redis so that several processes
// share the same locks
type RedisLocker struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisLocker connects to Redis and checks the connection
func NewRedisLocker(cfg config.RedisConfig) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisLockerWithClient(client, ""), nil
}

// NewRedisLockerWithClient creates a locker on an existing client
func NewRedisLockerWithClient(client *redis.Client, keyPrefix string) *RedisLocker {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisLocker{client: client, keyPrefix: keyPrefix}
}

// Acquire sets the lock key with SETNX and a TTL
func (l *RedisLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.keyPrefix+name, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	if !ok {
		return "", shared.ErrLockHeld
	}
	return token, nil
}

// Release deletes the lock if the token still owns it
func (l *RedisLocker) Release(ctx context.Context, name, token string) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.keyPrefix + name}, token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}
	if n == 0 {
		return shared.ErrLockHeld
	}
	return nil
}

// Close closes the Redis client
func (l *RedisLocker) Close() error {
	return l.client.Close()
}

// Client returns the underlying Redis client
func (l *RedisLocker) Client() *redis.Client {
	return l.client
}

var _ shared.Locker = (*RedisLocker)(nil)
