package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// HTTPService runs a fiber app as a supervised service.
type HTTPService struct {
	app             *fiber.App
	addr            string
	shutdownTimeout time.Duration
	logger          *zap.Logger
}

// NewHTTPService wraps app so it can be added to a suture supervisor.
func NewHTTPService(app *fiber.App, cfg Config, logger *zap.Logger) *HTTPService {
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPService{
		app:             app,
		addr:            ":" + cfg.Port,
		shutdownTimeout: timeout,
		logger:          logger,
	}
}

// Serve blocks until ctx is cancelled or the listener fails.
func (s *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.String("addr", s.addr))
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("Shutting down server...")
		if err := s.app.ShutdownWithTimeout(s.shutdownTimeout); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

// String identifies the service in supervisor logs.
func (s *HTTPService) String() string {
	return "http-server"
}
