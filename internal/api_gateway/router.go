package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/api_gateway/handler"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/api_gateway/middleware"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/config"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/platform/metrics"
)

type routes struct {
	accounts  *handler.AccountHandler
	transfers *handler.TransferHandler
	ledger    *handler.LedgerHandler
	auth      config.AuthConfig
	metrics   *metrics.Metrics
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, rt routes) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Metrics(rt.metrics))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.ServiceAuth(rt.auth.JWTSecret, rt.auth.JWTIssuer, logger))
	{
		accounts := v1.Group("/accounts")
		{
			accounts.POST("", rt.accounts.Open)
			accounts.GET("/:id", rt.accounts.GetByID)
			accounts.GET("/:id/entries", rt.accounts.ListEntries)
			accounts.GET("/:id/statement", rt.accounts.ListStatement)
		}

		transfers := v1.Group("/transfers")
		{
			transfers.POST("", rt.transfers.Create)
			transfers.POST("/split", rt.transfers.Split)
			transfers.GET("/:id", rt.transfers.GetByID)
			transfers.POST("/:id/reverse", rt.transfers.Reverse)
		}

		v1.POST("/commands", rt.transfers.EnqueueCommand)
		v1.GET("/ledger/invariant", rt.ledger.Invariant)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
	r.GET("/metrics", gin.WrapH(rt.metrics.Handler()))
}
