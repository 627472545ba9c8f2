// Package cli holds the inventoryctl subcommands.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-inventory-service/config"
	"github.com/fekuna/omnipos-inventory-service/internal/cache"
	"github.com/fekuna/omnipos-inventory-service/internal/category"
	catRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/category/repository"
	catUCPkg "github.com/fekuna/omnipos-inventory-service/internal/category/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	invRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/inventory/repository"
	invUCPkg "github.com/fekuna/omnipos-inventory-service/internal/inventory/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/lock"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/product"
	prodRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/product/repository"
	prodUCPkg "github.com/fekuna/omnipos-inventory-service/internal/product/usecase"
	"github.com/google/subcommands"
	"github.com/jmoiron/sqlx"
)

// Commands lists every inventoryctl subcommand.
var Commands = []subcommands.Command{
	&migrateCmd{},
	&seedCmd{},
	&reconcileCmd{},
	&tokenCmd{},
}

type services struct {
	categories category.UseCase
	products   product.UseCase
	inventory  inventory.UseCase
	close      func()
}

func openDB(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	return database.NewPostgres(ctx, &database.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
}

// openServices builds the usecases against the configured database. When
// Redis is configured the CLI takes the same product locks as the servers.
func openServices(ctx context.Context) (*services, error) {
	cfg := config.LoadEnv()
	log := logger.NewZapLogger(&logger.ZapLoggerConfig{
		IsDevelopment:     true,
		Encoding:          "console",
		Level:             cfg.Logger.Level,
		DisableStacktrace: true,
	})

	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	closers := []func(){func() { db.Close() }}

	var locker inventory.Locker = lock.NewLocal()
	var listCache product.ListCache
	var opts []invUCPkg.Option
	if cfg.Redis.Addr != "" {
		redisClient, err := cache.NewRedisClient(ctx, &cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, func() { redisClient.Close() })
		locker = lock.NewRedis(redisClient, lock.RedisConfig{
			TTL:     cfg.Inventory.LockTTL,
			Retries: cfg.Inventory.LockRetries,
		}, log)
		listCache = redisClient
		opts = append(opts, invUCPkg.WithPublisher(prodUCPkg.NewListInvalidator(redisClient)))
	}

	inv := invUCPkg.NewInventoryUseCase(invRepoPkg.NewPGRepository(db), locker, log, opts...)
	return &services{
		categories: catUCPkg.NewCategoryUseCase(catRepoPkg.NewPGRepository(db), log),
		products:   prodUCPkg.NewProductUseCase(prodRepoPkg.NewPGRepository(db), inv, listCache, nil, log),
		inventory:  inv,
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
			_ = log.Sync()
		},
	}, nil
}
