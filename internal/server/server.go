package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog/log"

	"github.com/mrab54/football-ingestor/internal/config"
	"github.com/mrab54/football-ingestor/internal/scheduler"
	"github.com/mrab54/football-ingestor/internal/storage"
)

// Server is the minimal ops HTTP surface: liveness, readiness, and
// Prometheus-style metrics. All data-plane work happens in the scheduler
// and live loop, not behind HTTP routes.
type Server struct {
	app       *fiber.App
	config    *config.Config
	db        *storage.DB
	scheduler *scheduler.Scheduler
	startedAt time.Time
}

// New creates a new server instance.
func New(cfg *config.Config, db *storage.DB, sched *scheduler.Scheduler) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:               "Football Ingestor",
		DisableStartupMessage: cfg.Server.Environment == "production",
		ServerHeader:          "football-ingestor",
		StrictRouting:         true,
		CaseSensitive:         true,
		UnescapePath:          true,
		BodyLimit:             1 * 1024 * 1024,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		ErrorHandler:          customErrorHandler,
	})

	setupMiddleware(app, cfg)

	s := &Server{
		app:       app,
		config:    cfg,
		db:        db,
		scheduler: sched,
		startedAt: time.Now(),
	}
	s.setupRoutes()
	return s, nil
}

func setupMiddleware(app *fiber.App, cfg *config.Config) {
	app.Use(recover.New(recover.Config{
		EnableStackTrace: cfg.Server.Environment == "development",
	}))
	app.Use(requestid.New())
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
}

func (s *Server) setupRoutes() {
	s.app.Get("/healthz", s.handleHealthz)
	s.app.Get("/readyz", s.handleReadyz)
	s.app.Get("/metrics", s.handleMetrics)
}

// Start starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	log.Info().Str("address", addr).Str("environment", s.config.Server.Environment).Msg("starting ops server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.app.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down ops server")
	return s.app.ShutdownWithContext(ctx)
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	log.Error().Err(err).Str("request_id", fmt.Sprint(c.Locals("requestid"))).Str("method", c.Method()).Str("path", c.Path()).Int("status", code).Msg("request error")

	return c.Status(code).JSON(fiber.Map{
		"error":      fiber.Map{"message": message, "code": code},
		"request_id": c.Locals("requestid"),
	})
}
