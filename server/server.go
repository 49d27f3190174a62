package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/newstrove/newstrove/internal/profile"
	"github.com/newstrove/newstrove/server/internal/observability"
	"github.com/newstrove/newstrove/server/middleware"
	apiv1 "github.com/newstrove/newstrove/server/router/api/v1"
	"github.com/newstrove/newstrove/server/search"
	"github.com/newstrove/newstrove/store"
)

// Server is the HTTP front of the article store and search engine.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	metrics    *observability.Metrics
}

func NewServer(ctx context.Context, profile *profile.Profile, st *store.Store, engine *search.Engine) (*Server, error) {
	echoServer := echo.New()
	echoServer.Debug = true
	echoServer.HideBanner = true
	echoServer.HidePort = true

	s := &Server{
		Profile:    profile,
		Store:      st,
		echoServer: echoServer,
		metrics:    observability.NewMetrics(),
	}

	echoServer.Use(echomw.Recover())
	echoServer.Use(echomw.CORS())
	echoServer.Use(s.metricsMiddleware())

	// 10 sustained requests per second per client; every search request costs
	// an embedding call.
	rateLimiter := middleware.NewRateLimiter(10, 20)
	echoServer.Use(rateLimiter.Middleware())

	echoServer.GET("/healthz", s.healthz)
	echoServer.GET("/metricsz", s.metricsz)

	apiV1Service := apiv1.NewAPIV1Service(profile, st, engine)
	apiV1Service.Register(echoServer)

	return s, nil
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.InfoContext(ctx, "starting server", "address", address, "mode", s.Profile.Mode)
	if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to shutdown server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.ErrorContext(ctx, "failed to close store", "error", err)
	}
	slog.InfoContext(ctx, "server shutdown complete")
}

func (s *Server) healthz(c echo.Context) error {
	return c.String(http.StatusOK, "Service ready.")
}

func (s *Server) metricsz(c echo.Context) error {
	return c.JSON(http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			failed := err != nil || c.Response().Status >= http.StatusInternalServerError
			s.metrics.RecordRequest(c.Path(), time.Since(start), failed)
			return err
		}
	}
}
