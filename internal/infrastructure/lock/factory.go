package lock

import (
	"fmt"

	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Factory creates the locker matching the Redis configuration
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// an in-process locker. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns a Redis locker when Redis is configured and reachable,
// an in-memory locker otherwise
func (f *Factory) Create() (shared.Locker, error) {
	if !f.redisConfig.Enabled() {
		f.logger.Debug("Redis not configured, using in-memory run locks")
		return NewInMemoryLocker(), nil
	}

	l, err := NewRedisLocker(f.redisConfig)
	if err == nil {
		f.logger.Info("Using Redis run locks", zap.String("addr", f.redisConfig.Addr()))
		return l, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for run locks but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory run locks. "+
		"Runs started from other processes are not excluded.",
		zap.Error(err),
	)
	return NewInMemoryLocker(), nil
}
