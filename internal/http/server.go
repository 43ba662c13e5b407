// Package http provides the HTTP API for protocold.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/protocold/internal/selector"
)

// Config holds HTTP server configuration.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server exposes the selector service over HTTP.
type Server struct {
	echo    *echo.Echo
	service *selector.Service
	logger  *zap.Logger
	config  *Config
}

// NewServer creates the API server and registers its routes.
func NewServer(service *selector.Service, logger *zap.Logger, cfg *Config) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("selector service cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "127.0.0.1", Port: 8420}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:    e,
		service: service,
		logger:  logger,
		config:  cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/select", s.handleSelect)
	v1.POST("/feedback", s.handleFeedback)
	v1.GET("/protocols", s.handleProtocols)
	v1.DELETE("/protocols/:name", s.handleDeregister)
	v1.POST("/cycles/improvement", s.handleImprovementCycle)
	v1.POST("/cycles/evolution", s.handleEvolutionCycle)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleSelect(c echo.Context) error {
	var req SelectRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid select request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	outcome, err := s.service.Handle(c.Request().Context(), req.Context())
	switch {
	case errors.Is(err, selector.ErrNoMatch):
		return echo.NewHTTPError(http.StatusNotFound, "no protocol matches the context")
	case errors.Is(err, selector.ErrServiceClosed):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "service is shutting down")
	case err != nil:
		s.logger.Error("select failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "protocol execution failed")
	}
	return c.JSON(http.StatusOK, outcome)
}

func (s *Server) handleFeedback(c echo.Context) error {
	var req FeedbackRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid feedback request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Protocol == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "protocol field is required")
	}
	if req.Score == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "score field is required")
	}

	result, err := s.service.Feedback(req.Protocol, *req.Score)
	switch {
	case errors.Is(err, selector.ErrUnknownProtocol):
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("unknown protocol %q", req.Protocol))
	case errors.Is(err, selector.ErrServiceClosed):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "service is shutting down")
	case err != nil:
		s.logger.Error("feedback failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "feedback failed")
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleProtocols(c echo.Context) error {
	stats, strategy := s.service.Snapshot()

	rows := make([]ProtocolStats, 0, len(stats))
	for name, st := range stats {
		rows = append(rows, ProtocolStats{
			Name:       name,
			Reward:     st.Reward,
			Executions: st.Executions,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	return c.JSON(http.StatusOK, ProtocolsResponse{
		Strategy:  strategy,
		Protocols: rows,
	})
}

func (s *Server) handleDeregister(c echo.Context) error {
	name := c.Param("name")
	if !s.service.Registry().Deregister(name) {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("unknown protocol %q", name))
	}
	s.logger.Info("protocol deregistered via API", zap.String("protocol", name))
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleImprovementCycle(c echo.Context) error {
	reports := s.service.RunImprovementCycle(c.Request().Context())
	return c.JSON(http.StatusOK, reports)
}

func (s *Server) handleEvolutionCycle(c echo.Context) error {
	registered, err := s.service.RunEvolutionCycle(c.Request().Context())
	if err != nil {
		s.logger.Error("evolution cycle failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "evolution cycle failed")
	}
	return c.JSON(http.StatusOK, EvolutionResponse{Registered: registered})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
