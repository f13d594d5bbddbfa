package components

import (
	"log/slog"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/config"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/account"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/outbox"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/rejection"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/ledger/service"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/platform/metrics"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/platform/persistence"
)

// Repositories are the Postgres-backed stores the ledger core writes to.
type Repositories struct {
	Accounts  account.Repository
	Transfers ledger.TransferRepository
	Entries   ledger.EntryRepository
	Outbox    outbox.Repository
}

// Ledger groups the public faces of the ledger core.
type Ledger struct {
	Engine   service.TransferEngine
	Accounts service.AccountRegistry
	Balances service.BalanceReader
	Verifier service.InvariantVerifier
}

// CreateLedger wires the transfer engine and its readers over one set of repositories.
func CreateLedger(txRunner persistence.TxRunner, repos Repositories, m *metrics.Metrics, logger *slog.Logger) *Ledger {
	engine := service.NewTransferEngine(
		txRunner,
		repos.Transfers,
		repos.Entries,
		NewAccountManager(repos.Accounts, logger),
		NewIdempotencyChecker(repos.Transfers, repos.Entries, logger),
		NewOutboxManager(repos.Outbox, logger),
		m,
		logger.With("component", "transfer_engine"),
	)

	return &Ledger{
		Engine:   engine,
		Accounts: NewAccountRegistry(repos.Accounts, logger),
		Balances: NewBalanceReader(repos.Accounts, repos.Entries, logger),
		Verifier: NewInvariantVerifier(repos.Entries, m, logger.With("component", "invariant_verifier")),
	}
}

// CreateCommandProcessor builds the Kafka command processor. It runs on an
// ants worker pool unless the pool is disabled or cannot be created.
func CreateCommandProcessor(
	engine service.TransferEngine,
	rejectionRepo rejection.Repository,
	cfg *config.Config,
	logger *slog.Logger,
) service.CommandProcessor {
	base := service.NewCommandProcessor(engine, NewRejectionRecorder(rejectionRepo, logger), logger)

	if cfg.WorkerPool.Size <= 0 {
		logger.Info("Worker pool disabled, processing commands inline")
		return base
	}

	pooled, err := service.NewWorkerPoolCommandProcessor(
		base,
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool, falling back to inline processing", "error", err)
		return base
	}

	logger.Info("Created worker pool command processor", "pool_size", cfg.WorkerPool.Size)
	return pooled
}
