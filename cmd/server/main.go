package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-inventory-service/config"
	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/broker"
	"github.com/fekuna/omnipos-inventory-service/internal/cache"
	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/fekuna/omnipos-inventory-service/internal/discovery"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/lock"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/product"
	"github.com/fekuna/omnipos-inventory-service/internal/search"
	"github.com/fekuna/omnipos-inventory-service/internal/web"

	catH "github.com/fekuna/omnipos-inventory-service/internal/category/handler"
	catRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/category/repository"
	catUCPkg "github.com/fekuna/omnipos-inventory-service/internal/category/usecase"

	invH "github.com/fekuna/omnipos-inventory-service/internal/inventory/handler"
	invRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/inventory/repository"
	invUCPkg "github.com/fekuna/omnipos-inventory-service/internal/inventory/usecase"

	orderH "github.com/fekuna/omnipos-inventory-service/internal/order/handler"
	orderListenerPkg "github.com/fekuna/omnipos-inventory-service/internal/order/listener"
	orderRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/order/repository"
	orderUCPkg "github.com/fekuna/omnipos-inventory-service/internal/order/usecase"

	prodH "github.com/fekuna/omnipos-inventory-service/internal/product/handler"
	prodRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/product/repository"
	prodUCPkg "github.com/fekuna/omnipos-inventory-service/internal/product/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	appLogger := logger.NewZapLogger(&logger.ZapLoggerConfig{
		IsDevelopment:     cfg.IsDevelopment(),
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	})
	defer appLogger.Sync()

	if err := cfg.Validate(); err != nil {
		appLogger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Connect to Database
	db, err := database.NewPostgres(ctx, &database.Config{
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
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		appLogger.Fatal("Could not apply schema", zap.Error(err))
	}
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	// 4. Initialize Repositories
	catRepo := catRepoPkg.NewPGRepository(db)
	prodRepo := prodRepoPkg.NewPGRepository(db)
	invRepo := invRepoPkg.NewPGRepository(db)
	orderRepo := orderRepoPkg.NewPGRepository(db)

	// 5. Initialize Redis: shared product locks and the product list cache.
	// Without it locks stay in process, which is only safe for one instance.
	var (
		locker    inventory.Locker = lock.NewLocal()
		listCache product.ListCache
		invOpts   []invUCPkg.Option
	)
	if cfg.Redis.Addr != "" {
		redisClient, err := cache.NewRedisClient(ctx, &cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			appLogger.Fatal("Could not connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()

		locker = lock.NewRedis(redisClient, lock.RedisConfig{
			TTL:     cfg.Inventory.LockTTL,
			Retries: cfg.Inventory.LockRetries,
		}, appLogger)
		listCache = redisClient
		invOpts = append(invOpts, invUCPkg.WithPublisher(prodUCPkg.NewListInvalidator(redisClient)))
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		appLogger.Warn("REDIS_ADDR not set, using in-process locks")
	}

	// 6. Initialize Kafka Producer
	if cfg.Kafka.Enabled {
		producer := broker.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.MovementsTopic)
		defer producer.Close()
		invOpts = append(invOpts, invUCPkg.WithPublisher(producer))
		appLogger.Info("Kafka producer ready", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.MovementsTopic))
	}

	// 7. Initialize Elasticsearch
	var index product.SearchIndex
	if len(cfg.Elastic.Addresses) > 0 {
		esClient, err := search.NewClient(ctx, &search.Config{
			Addresses: cfg.Elastic.Addresses,
			Username:  cfg.Elastic.Username,
			Password:  cfg.Elastic.Password,
		})
		if err != nil {
			// search falls back to SQL
			appLogger.Warn("Could not connect to Elasticsearch", zap.Error(err))
		} else {
			index = esClient
			appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
		}
	}

	// 8. Initialize UseCases
	invUC := invUCPkg.NewInventoryUseCase(invRepo, locker, appLogger, invOpts...)
	catUC := catUCPkg.NewCategoryUseCase(catRepo, appLogger)
	prodUC := prodUCPkg.NewProductUseCase(prodRepo, invUC, listCache, index, appLogger)
	orderUC := orderUCPkg.NewOrderUseCase(orderRepo, prodUC, invUC, appLogger)

	if drifts, err := invUC.Reconcile(ctx); err != nil {
		appLogger.Error("Startup stock reconciliation failed", zap.Error(err))
	} else if len(drifts) > 0 {
		appLogger.Warn("Startup stock reconciliation corrected products", zap.Int("count", len(drifts)))
	}

	// 9. Start Listener
	if cfg.Kafka.Enabled {
		consumer := broker.NewKafkaConsumer(&broker.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.OrdersTopic,
			GroupID: cfg.Kafka.GroupID,
		})
		defer consumer.Close()
		go orderListenerPkg.NewOrderListener(consumer, orderUC, appLogger, cfg.JWT.SystemUserID).Start(ctx)
		appLogger.Info("Connected to Kafka consumer", zap.String("topic", cfg.Kafka.OrdersTopic))
	}

	// 10. Initialize Handlers
	router := web.NewRouter(web.RouterConfig{
		Development: cfg.IsDevelopment(),
		CORSOrigins: cfg.Server.CORSOrigins,
		Auth: auth.MiddlewareConfig{
			SecretKey:      cfg.JWT.SecretKey,
			AllowAnonymous: cfg.JWT.AllowAnonymous,
			SystemUserID:   cfg.JWT.SystemUserID,
		},
	}, appLogger,
		catH.NewCategoryHandler(catUC, appLogger),
		prodH.NewProductHandler(prodUC, appLogger),
		invH.NewInventoryHandler(invUC, appLogger, invH.Defaults{
			LowStockThreshold: cfg.Inventory.LowStockThreshold,
			ExpiringDays:      cfg.Inventory.ExpiringDays,
		}),
		orderH.NewOrderHandler(orderUC, appLogger),
	)

	httpServer := &http.Server{
		Addr:              withColon(cfg.Server.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("port", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("failed to serve HTTP", zap.Error(err))
		}
	}()

	// 11. Start gRPC health server
	lis, err := net.Listen("tcp", withColon(cfg.Server.GRPCPort))
	if err != nil {
		appLogger.Fatal("failed to listen", zap.Error(err))
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	go func() {
		appLogger.Info("Starting gRPC server", zap.String("port", cfg.Server.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve gRPC", zap.Error(err))
		}
	}()

	// 12. Register with Consul
	var consul *discovery.ConsulClient
	serviceID := cfg.Consul.ServiceID
	if cfg.Consul.Addr != "" {
		if serviceID == "" {
			hostname, _ := os.Hostname()
			serviceID = cfg.Consul.ServiceName + "-" + hostname
		}
		consul, err = discovery.NewConsulClient(cfg.Consul.Addr)
		if err == nil {
			err = consul.RegisterService(serviceID, cfg.Consul.ServiceName, cfg.Consul.ServiceHost, cfg.Server.HTTPPort)
		}
		if err != nil {
			appLogger.Warn("Could not register with Consul", zap.Error(err))
			consul = nil
		} else {
			appLogger.Info("Registered with Consul", zap.String("service_id", serviceID))
		}
	}

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	if consul != nil {
		if err := consul.DeregisterService(serviceID); err != nil {
			appLogger.Warn("Could not deregister from Consul", zap.Error(err))
		}
	}
	healthServer.Shutdown()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	grpcServer.GracefulStop()
	appLogger.Info("Server stopped")
}

func withColon(port string) string {
	if !strings.HasPrefix(port, ":") {
		return ":" + port
	}
	return port
}
