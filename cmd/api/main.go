package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paywave/paywave/internal/config"
	"github.com/paywave/paywave/internal/infra"
	"github.com/paywave/paywave/internal/logging"
	"github.com/paywave/paywave/internal/notification"
	"github.com/paywave/paywave/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppName)

	ctx := context.Background()

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.DBAutomigrate)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
	}

	redisURL := cfg.RedisURL
	if redisURL == "" {
		// Only reachable in development; Load rejects it elsewhere.
		mr, err := miniredis.Run()
		if err != nil {
			logger.Error("start embedded redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer mr.Close()
		redisURL = "redis://" + mr.Addr()
		logger.Warn("REDIS_URL not set, using embedded redis", slog.String("addr", mr.Addr()))
	}
	cache, err := infra.NewRedisClient(ctx, redisURL)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Warn("close redis", slog.Any("error", err))
		}
	}()

	var notifier notification.Dispatcher = notification.NewLoggerDispatcher(logger)
	if cfg.KafkaBrokers != "" {
		kafka, err := notification.NewKafkaDispatcher(cfg.KafkaBrokers, cfg.Notifications.Topic, logger)
		if err != nil {
			logger.Error("connect kafka", slog.Any("error", err))
			os.Exit(1)
		}
		defer kafka.Close()
		notifier = kafka
	}

	srv, err := server.New(cfg, db, cache, notifier, logger)
	if err != nil {
		logger.Error("build server", slog.Any("error", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
