package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/paywave/paywave/internal/config"
	"github.com/paywave/paywave/internal/notification"
	"github.com/paywave/paywave/internal/response"
	"github.com/paywave/paywave/internal/routes"
)

// Server wraps the Fiber application and the background work it owns.
type Server struct {
	app        *fiber.App
	cfg        config.Config
	background *routes.Background
	logger     *slog.Logger
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, notifier notification.Dispatcher, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: response.ErrorHandler(logger),
	})

	background, err := routes.Setup(app, routes.Deps{Cfg: cfg, DB: db, Cache: cache, Notifier: notifier, Logger: logger})
	if err != nil {
		return nil, err
	}
	return &Server{app: app, cfg: cfg, background: background, logger: logger}, nil
}

// App exposes the Fiber application for in-process tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen starts background workers and then the HTTP server.
func (s *Server) Listen() error {
	s.background.Start()
	return s.app.Listen(s.cfg.Address())
}

// Shutdown stops accepting requests first, then drains queued webhook events.
func (s *Server) Shutdown(ctx context.Context) error {
	httpErr := s.app.ShutdownWithContext(ctx)
	bgErr := s.background.Shutdown(ctx)
	if bgErr != nil {
		s.logger.Warn("webhook queue not fully drained", slog.Any("error", bgErr))
	}
	return errors.Join(httpErr, bgErr)
}
