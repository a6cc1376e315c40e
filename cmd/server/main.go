package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/rl1809/book-exchange/internal/adapter/cache"
	"github.com/rl1809/book-exchange/internal/adapter/handler"
	"github.com/rl1809/book-exchange/internal/adapter/storage"
	"github.com/rl1809/book-exchange/internal/config"
	"github.com/rl1809/book-exchange/internal/core/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize store
	store, err := storage.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("connected to store", "driver", cfg.DBDriver)

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithStoreTimeout(cfg.StoreTimeout),
	}

	// Initialize Redis request guard
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		defer rdb.Close()
		opts = append(opts, service.WithRequestGuard(storage.NewRedisAdapter(rdb, cfg.RequestGuardTTL)))
		logger.Info("connected to redis", "addr", cfg.RedisAddr)
	} else {
		logger.Warn("BX_REDIS_ADDR not set, duplicate request guard disabled")
	}

	// Initialize services
	lookups := cache.NewLookupCache(store, store, cfg.LookupCacheTTL)
	dispatcher := service.NewNotificationDispatcher(store, lookups, lookups, cfg.StoreTimeout, logger)
	queue := service.NewNotificationQueue(dispatcher, cfg.QueueSize, cfg.WorkerCount, 2*cfg.StoreTimeout, logger)
	logger.Info("started notification workers", "workers", cfg.WorkerCount, "queue_size", cfg.QueueSize)

	transfer := service.NewOwnershipTransfer(store, cfg.StoreTimeout, logger)
	exchanges := service.NewExchangeService(store, transfer, lookups, queue, opts...)
	notifications := service.NewNotificationService(store, cfg.StoreTimeout)

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterExchangeServer(grpcServer, handler.NewGRPCHandler(exchanges, logger))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	go func() {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", "error", err)
		}
	}()

	// Initialize HTTP server
	mux := http.NewServeMux()
	handler.NewHTTPHandler(exchanges, notifications, logger).RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", "error", err)
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	// Drain queued notifications before the store closes
	queue.Close()
	logger.Info("notification workers stopped")

	return nil
}
