// Command worker consumes queued notifications and delivers them by email.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/paywave/paywave/internal/config"
	"github.com/paywave/paywave/internal/logging"
	"github.com/paywave/paywave/internal/notification"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppName+"-worker")

	if cfg.KafkaBrokers == "" {
		logger.Error("KAFKA_BROKERS must be set for the notification worker")
		os.Exit(1)
	}

	sender, err := notification.NewMailSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	if err != nil {
		logger.Error("configure mailer", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := notification.NewWorker(cfg.KafkaBrokers, cfg.Notifications.Topic, sender, logger)
	if err != nil {
		logger.Error("connect kafka", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("notification worker started", slog.String("topic", cfg.Notifications.Topic))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker exited cleanly")
}
