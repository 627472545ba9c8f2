package lock

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the lock primitive Redis builds on; *cache.RedisClient implements it.
type Store interface {
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
}

type RedisConfig struct {
	TTL        time.Duration
	Retries    int
	RetryDelay time.Duration
}

// Redis is a lock shared by every service instance using the same Redis.
type Redis struct {
	store  Store
	cfg    RedisConfig
	logger logger.ZapLogger
}

func NewRedis(store Store, cfg RedisConfig, log logger.ZapLogger) *Redis {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Second
	}
	if cfg.Retries < 1 {
		cfg.Retries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 100 * time.Millisecond
	}
	return &Redis{store: store, cfg: cfg, logger: log}
}

func (l *Redis) Lock(ctx context.Context, key string) (func(), error) {
	value := uuid.New().String()

	for i := 0; i < l.cfg.Retries; i++ {
		ok, err := l.store.AcquireLock(ctx, key, value, l.cfg.TTL)
		if err != nil {
			l.logger.Error("failed to acquire lock redis error", zap.String("key", key), zap.Error(err))
		}
		if ok {
			return func() {
				// the request context may already be cancelled
				if err := l.store.ReleaseLock(context.Background(), key, value); err != nil {
					l.logger.Error("failed to release lock", zap.String("key", key), zap.Error(err))
				}
			}, nil
		}
		if i == l.cfg.Retries-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.cfg.RetryDelay):
		}
	}
	return nil, model.ErrBusy
}
