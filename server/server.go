// Package server exposes the fact-checking application over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	claimcheck "github.com/nocaplabs/claimcheck"
)

// Server wraps the HTTP layer around an App.
type Server struct {
	app    *claimcheck.App
	echo   *echo.Echo
	logger *slog.Logger
}

// Option is a functional option for configuring a Server.
type Option func(*Server)

// WithLogger sets the logger used by the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an HTTP server over the application and registers every
// route.
func New(app *claimcheck.App, opts ...Option) (*Server, error) {
	if app == nil {
		return nil, fmt.Errorf("app must not be nil")
	}

	s := &Server{
		app:    app,
		logger: slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = s.errorHandler

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	api := e.Group("/api")
	api.POST("/ask", s.ask)
	api.POST("/ingest/web", s.ingestWeb)
	api.POST("/ingest/document", s.ingestDocument)
	api.GET("/stats", s.stats)
	api.GET("/history", s.recentHistory)
	api.GET("/trending", s.trending)
	api.GET("/sessions", s.sessions)
	api.GET("/sessions/:id/history", s.sessionHistory)

	s.echo = e
	return s, nil
}

// Start serves requests on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("http server starting", "addr", addr)
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// errorHandler renders every error as a structured JSON body.
func (s *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}

	req := c.Request()
	s.logger.Warn("request failed", "status", code, "method", req.Method, "path", req.URL.Path, "err", err)
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}
