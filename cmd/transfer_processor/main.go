package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/config"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/data/mongo"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/data/postgres"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/ledger/audit"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/ledger/components"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/ledger/consumer"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/ledger/outbox_poller"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/ledger/service"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/logger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/platform/messaging/consumers"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/platform/messaging/producers"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/platform/metrics"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("transfer_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Transfer Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	if err := persistence.RunMigrations(cfg.Postgres.URL, cfg.Postgres.MigrationsPath); err != nil {
		log.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

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
	if err := mongoDB.EnsureIndexes(appCtx, mongo.StatementCollectionName, mongo.StatementIndexes...); err != nil {
		log.Error("Failed to ensure statement indexes", "error", err)
		os.Exit(1)
	}
	if err := mongoDB.EnsureIndexes(appCtx, mongo.RejectionCollectionName, mongo.RejectionIndexes...); err != nil {
		log.Error("Failed to ensure rejection indexes", "error", err)
		os.Exit(1)
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
	rejectionRepo := mongo.NewRejectionRepository(log, mongoDB.Database())

	ledgerCore := components.CreateLedger(postgresDB, repos, m, log)
	processor := components.CreateCommandProcessor(ledgerCore.Engine, rejectionRepo, cfg, log)

	eventProducer, err := producers.NewEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize event producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// A typed nil inside the interface would hide the missing topic from the handler.
	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	commandHandler := consumer.NewCommandHandler(log, processor, deadLetters)
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	publisher := outbox_poller.NewEventPublisher(repos.Outbox, statementRepo, eventProducer, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, repos.Outbox, publisher, m, log)

	scheduler := audit.NewScheduler(ledgerCore.Verifier, cfg.Audit.Schedule, log)
	if err := scheduler.Start(); err != nil {
		log.Error("Failed to start invariant audit", "error", err)
		os.Exit(1)
	}

	opsServer := newOpsServer(cfg, m, postgresDB)

	errChan := make(chan error, 2)
	var wg sync.WaitGroup

	if err := kafkaConsumer.Subscribe(appCtx, commandHandler.HandleMessage); err != nil {
		log.Error("Failed to subscribe to command topic", "error", err)
		os.Exit(1)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	go func() {
		log.Info("Starting ops HTTP server", "port", cfg.Server.Port)
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("ops HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	case <-kafkaConsumer.Done():
		log.Error("Kafka consumer stopped unexpectedly")
		serviceErr = errors.New("kafka consumer stopped")
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	<-scheduler.Stop().Done()

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		<-kafkaConsumer.Done()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// In-flight commands finish before the stores close.
	if pooled, ok := processor.(*service.WorkerPoolCommandProcessor); ok {
		log.Info("Shutting down worker pool", "running_workers", pooled.Running())
		pooled.Shutdown()
	}

	if err = opsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Error stopping ops HTTP server", "error", err)
	}
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}
	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing event producer", "error", err)
	}
	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Transfer Processor shutdown with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("Transfer Processor shutdown completed")
}

// newOpsServer serves /health and /metrics for the processor, which has no public API.
func newOpsServer(cfg *config.Config, m *metrics.Metrics, db *persistence.PostgresDB) *http.Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}
