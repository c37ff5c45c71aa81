// Package server wraps echo with the middlewares, error handler and health
// endpoint every facetq binary serving HTTP uses.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	mw "github.com/DjordjeVuckovic/facetq/pkg/middleware"
	pkgserver "github.com/DjordjeVuckovic/facetq/pkg/server"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const GracefulShutdownTimeout = 10 * time.Second

const healthPath = "/health"

type Server struct {
	Echo *echo.Echo

	cfg      *Config
	health   pkgserver.HealthChecker
	ctx      context.Context
	stop     context.CancelFunc
	shutdown chan struct{}
}

func New(cfg *Config, health pkgserver.HealthChecker) *Server {
	e := echo.New()
	e.HideBanner = true
	e.DisableHTTP2 = !cfg.UseHttp2
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return &Server{
		Echo:     e,
		cfg:      cfg,
		health:   health,
		ctx:      ctx,
		stop:     stop,
		shutdown: make(chan struct{}),
	}
}

// Context is cancelled when the process receives an interrupt.
func (s *Server) Context() context.Context { return s.ctx }

// ShutdownSignal is closed once the server has stopped accepting requests.
func (s *Server) ShutdownSignal() <-chan struct{} { return s.shutdown }

// WithHealthChecker replaces the checker behind the health endpoint.
func (s *Server) WithHealthChecker(h pkgserver.HealthChecker) *Server {
	s.health = h
	return s
}

func (s *Server) SetupMiddlewares() *Server {
	s.Echo.Use(middleware.RequestID())
	s.Echo.Use(mw.Logger(
		mw.WithLogger(slog.Default().With("component", "http")),
		mw.WithSkipper(func(c echo.Context) bool { return c.Path() == healthPath }),
	))
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.BodyLimit(s.cfg.BodyLimit))
	s.Echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.cfg.CorsOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete},
	}))
	return s
}

func (s *Server) SetupErrorHandler() *Server {
	s.Echo.HTTPErrorHandler = apperr.GlobalErrorHandler()
	return s
}

// SetupHealthChecks serves the checker on /health; requests to it are not logged.
func (s *Server) SetupHealthChecks() *Server {
	s.Echo.GET(healthPath, func(c echo.Context) error {
		if !s.health.Healthy(c.Request().Context()) {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	return s
}

// Start serves until the server context is cancelled, then shuts down
// gracefully.
func (s *Server) Start() error {
	defer s.stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "port", s.cfg.Port, "http2", s.cfg.UseHttp2)
		if err := s.Echo.Start(":" + s.cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		close(s.shutdown)
		return err
	case <-s.ctx.Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), GracefulShutdownTimeout)
	defer cancel()
	err := s.Echo.Shutdown(ctx)
	close(s.shutdown)
	if err != nil {
		slog.Error("Server shutdown failed", "error", err)
		return err
	}
	slog.Info("Server stopped")
	return nil
}
