package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/storefront/internal/adapter/events"
	"github.com/rl1809/storefront/internal/adapter/handler"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
	"github.com/rl1809/storefront/pkg/config"
	"github.com/rl1809/storefront/pkg/logger"
	"github.com/rl1809/storefront/pkg/shutdown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logg := logger.New(logger.Options{
		Service: "storefront-checkout",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
	})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	// Database
	repo, closeDB, err := openRepository(ctx, cfg)
	if err != nil {
		logg.Error("failed to connect database", "driver", cfg.DBDriver, "error", err)
		return
	}
	defer closeDB()
	logg.Info("connected to database", "driver", cfg.DBDriver)

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logg.Error("failed to connect redis", "error", err)
		return
	}
	defer rdb.Close()
	logg.Info("connected to redis", "addr", cfg.RedisAddr)

	cache := storage.NewRedisAdapter(rdb)

	// Kafka
	publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()

	// Services
	stockService := service.NewStockService(repo, cfg.StockMaxAttempts, cfg.StockRetryJitter)
	checkoutService := service.NewCheckoutService(repo, cache, stockService, cfg.CheckoutStaleAfter, cfg.QueueSize, logg)
	lifecycleService := service.NewLifecycleService(repo, publisher, logg)

	// Publish workers drain the purchased-event queue
	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			publishLoop(id, checkoutService.PurchasedEvents(), publisher, logg)
		}(i)
	}
	logg.Info("started publish workers", "count", cfg.WorkerCount)

	// HTTP server
	httpHandler := handler.NewHTTPHandler(logg, stockService, checkoutService, lifecycleService)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: httpHandler.Routes(),
	}

	go func() {
		logg.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logg.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logg.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logg.Info("HTTP server stopped")

	// Close the event queue and wait for workers to drain it
	checkoutService.Close()
	wg.Wait()
	logg.Info("publish workers stopped")
}

func openRepository(ctx context.Context, cfg config.Config) (port.DatabaseRepository, func(), error) {
	switch cfg.DBDriver {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return storage.NewPostgresAdapter(pool), pool.Close, nil

	default:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return storage.NewMySQLAdapter(db), func() { db.Close() }, nil
	}
}

func publishLoop(id int, queue <-chan domain.CartPurchased, publisher port.EventPublisher, logg *slog.Logger) {
	for event := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		if err := publisher.PublishCartPurchased(ctx, event); err != nil {
			logg.Error("failed to publish purchased event",
				"worker", id,
				"cart_id", event.CartID,
				"error", err,
			)
		} else {
			logg.Info("published purchased event", "worker", id, "cart_id", event.CartID)
		}

		cancel()
	}
}
