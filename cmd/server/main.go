package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/condo-water-billing/internal/config"
	"github.com/iliyamo/condo-water-billing/internal/database"
	"github.com/iliyamo/condo-water-billing/internal/handler"
	"github.com/iliyamo/condo-water-billing/internal/lock"
	"github.com/iliyamo/condo-water-billing/internal/logging"
	"github.com/iliyamo/condo-water-billing/internal/middleware"
	"github.com/iliyamo/condo-water-billing/internal/queue"
	"github.com/iliyamo/condo-water-billing/internal/repository"
	"github.com/iliyamo/condo-water-billing/internal/router"
	"github.com/iliyamo/condo-water-billing/internal/service"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg := config.Load()

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	db, err := database.Open(ctx, database.Options{
		User:     cfg.DBUser,
		Password: cfg.DBPass,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.DBName,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		logger.Info("schema ready")
	}

	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()
	queueCfg := config.LoadQueueConfig()

	rdb := connectRedis(config.LoadRedisConfig(), logger)
	if rdb != nil {
		defer rdb.Close()
	}

	store, closeStore := cacheStore(ctx, cacheCfg, rdb, logger)
	defer closeStore()

	var locker lock.Locker = lock.NewLocal()
	if rdb != nil {
		locker = lock.NewRedis(rdb, "wblock")
	}

	var pub service.Publisher = service.NopPublisher{}
	if queueCfg.Enabled {
		pub = &service.AMQPPublisher{URL: queueCfg.URL, Queue: queueCfg.Queue, Log: logger}
		if queueCfg.Consume {
			go func() {
				if err := queue.StartAuditConsumer(ctx, queueCfg, logger); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("audit consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	rooms := repository.NewRoomRepo(db)
	readingRepo := repository.NewReadingRepo(db)
	readings := service.NewReadings(rooms, readingRepo, pub, logger, cfg.DefaultPricePerUnit)
	rollover := service.NewRollover(readingRepo, locker, pub, logger)
	h := handler.NewBillingHandler(rooms, readings, rollover, logger)

	e := newEcho(cfg, cacheCfg, rlCfg, rdb, store, h, db, logger)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newEcho(cfg config.Config, cacheCfg config.CacheConfig, rlCfg config.RateLimitConfig, rdb *redis.Client,
	store middleware.CacheStore, h *handler.BillingHandler, db *sql.DB, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.NewTokenBucket(rlCfg, rdb, logger))

	var cache, purge echo.MiddlewareFunc
	if store != nil {
		cache = middleware.NewResponseCache(cacheCfg, store)
		purge = middleware.PurgeOnWrite(cacheCfg, store, logger)
	}

	router.RegisterRoutes(e, db)
	if cache != nil {
		router.RegisterPublic(e, h, cache)
	} else {
		router.RegisterPublic(e, h)
	}
	router.RegisterAdmin(e, h, cfg.JWTSecret, purge, cache)
	return e
}

// connectRedis returns nil when Redis is disabled or unreachable; callers
// then fall back to in-process implementations.
func connectRedis(cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	if !cfg.Enabled {
		return nil
	}
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("redis unavailable, using in-process cache and locks", zap.String("addr", cfg.Addr), zap.Error(err))
		return nil
	}
	return rdb
}

func cacheStore(ctx context.Context, cfg config.CacheConfig, rdb *redis.Client, logger *zap.Logger) (middleware.CacheStore, func()) {
	noop := func() {}
	switch {
	case !cfg.Enabled:
		return nil, noop
	case rdb != nil:
		return middleware.NewRedisStore(rdb, cfg.Prefix), noop
	case cfg.MemoryFallback:
		mem, err := middleware.NewMemoryStore(ctx, cfg.TTL, cfg.MemoryMaxMB)
		if err != nil {
			logger.Warn("memory cache disabled", zap.Error(err))
			return nil, noop
		}
		return mem, func() { _ = mem.Close() }
	}
	return nil, noop
}
