package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/api_gateway/handler"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/api_gateway/service"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/config"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/platform/metrics"
)

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
	serverCfg  config.ServerConfig
}

// Services bundles what the HTTP layer calls into.
type Services struct {
	Accounts  service.AccountService
	Transfers service.TransferService
	Audit     service.AuditService
}

// NewServer creates and configures a new HTTP server with the given services
func NewServer(log *slog.Logger, cfg *config.Config, services Services, m *metrics.Metrics) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	setupRouter(log, httpRouter, routes{
		accounts:  handler.NewAccountHandler(log, services.Accounts),
		transfers: handler.NewTransferHandler(log, services.Transfers),
		ledger:    handler.NewLedgerHandler(log, services.Audit),
		auth:      cfg.Auth,
		metrics:   m,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
		serverCfg:  cfg.Server,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests, waiting at most ShutdownTimeout.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	timeout := s.serverCfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = s.serverCfg.WriteTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
