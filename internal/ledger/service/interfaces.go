package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/account"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/shared"
)

// TransferEngine is the only component that writes transfers and entries.
// Every call is atomic and idempotent on the request's idempotency key.
type TransferEngine interface {
	Transfer(ctx context.Context, req ledger.TransferRequest) (*ledger.TransferResult, error)
	ReverseTransfer(ctx context.Context, req ledger.ReverseRequest) (*ledger.TransferResult, error)
	SplitTransfer(ctx context.Context, req ledger.SplitRequest) (*ledger.SplitResult, error)
}

// AccountRegistry resolves accounts by identity, creating them on first use.
type AccountRegistry interface {
	GetOrCreateAccount(ctx context.Context, ownerID *uuid.UUID, kind account.Kind, currency string) (*account.Account, error)
	GetPlatformRevenueAccount(ctx context.Context, currency string) (*account.Account, error)
	GetInstructorAccount(ctx context.Context, instructorID uuid.UUID, currency string) (*account.Account, error)
	GetUserAccount(ctx context.Context, userID uuid.UUID, currency string) (*account.Account, error)
	GetTransientAccount(ctx context.Context, ownerID uuid.UUID, currency string) (*account.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error)
}

// BalanceReader derives balances from entries. Nothing is cached.
type BalanceReader interface {
	GetBalanceCents(ctx context.Context, accountID uuid.UUID) (int64, error)
	GetAccountWithBalance(ctx context.Context, accountID uuid.UUID) (*account.WithBalance, error)
	ListEntries(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Entry, error)
	CountEntries(ctx context.Context, accountID uuid.UUID) (int64, error)
}

// InvariantVerifier audits the whole entry store.
type InvariantVerifier interface {
	VerifyLedgerInvariant(ctx context.Context) (bool, error)
	Verify(ctx context.Context) (*ledger.InvariantReport, error)

	// Audit runs Verify and returns ErrLedgerInvariantViolation alongside the report when it fails.
	Audit(ctx context.Context) (*ledger.InvariantReport, error)
}

// CommandProcessor applies ledger commands received from Kafka.
type CommandProcessor interface {
	ProcessCommand(ctx context.Context, cmd *shared.LedgerCommand) error
}

// AccountManager share-locks the accounts a posting touches and checks they hold its currency.
type AccountManager interface {
	LockAccounts(ctx context.Context, tx pgx.Tx, currency string, ids ...uuid.UUID) (map[uuid.UUID]*account.Account, error)
}

// IdempotencyChecker looks up transfers already recorded under the given keys,
// with their entries. A nil tx reads outside any transaction.
type IdempotencyChecker interface {
	FindExisting(ctx context.Context, tx pgx.Tx, keys ...string) ([]*ledger.Transfer, []*ledger.Entry, error)
}

// OutboxManager stores the event for a posting in the posting's transaction.
type OutboxManager interface {
	CreateOutboxEntry(ctx context.Context, tx pgx.Tx, event *ledger.TransferPostedEvent) error
}

// RejectionRecorder keeps a record of commands that were rejected for good.
type RejectionRecorder interface {
	RecordRejection(ctx context.Context, cmd *shared.LedgerCommand, reason shared.RejectionReason, cause error) error
}
