package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/api_gateway"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/api_gateway/service"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/config"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/data/mongo"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/data/postgres"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/ledger/components"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/logger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/platform/messaging/producers"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/platform/metrics"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// The command producer is optional; without it POST /commands answers 503.
	var commandPublisher producers.MessagePublisher
	commandProducer, err := producers.NewCommandProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Warn("Command producer unavailable, asynchronous commands disabled", "error", err)
	} else {
		commandPublisher = commandProducer
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	repos := components.Repositories{
		Accounts:  postgres.NewAccountRepository(log, postgresDB),
		Transfers: postgres.NewTransferRepository(log, postgresDB),
		Entries:   postgres.NewEntryRepository(log, postgresDB),
		Outbox:    postgres.NewOutboxRepository(log, postgresDB),
	}
	statementRepo := mongo.NewStatementRepository(log, mongoDB.Database())

	ledgerCore := components.CreateLedger(postgresDB, repos, m, log)

	server := api_gateway.NewServer(log, cfg, api_gateway.Services{
		Accounts:  service.NewAccountService(ledgerCore.Accounts, ledgerCore.Balances, statementRepo),
		Transfers: service.NewTransferService(log, ledgerCore.Engine, repos.Transfers, repos.Entries, commandPublisher),
		Audit:     service.NewAuditService(ledgerCore.Verifier),
	}, m)
	log.Info("REST server initialized")

	errChan := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Drain requests before closing the pools they use.
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if commandProducer != nil {
		if err = commandProducer.Close(); err != nil {
			log.Error("Error closing Kafka producer", "error", err)
		}
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
		os.Exit(1)
	}
	log.Info("Server shutdown completed")
}
