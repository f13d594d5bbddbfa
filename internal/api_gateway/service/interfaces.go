package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/account"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/shared"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/statement"
)

// AccountService is the HTTP-facing view of accounts and their history.
type AccountService interface {
	// OpenAccount returns the account for the identity, creating it on first use.
	OpenAccount(ctx context.Context, ownerID *uuid.UUID, kind account.Kind, currency string) (*account.Account, error)

	// GetAccount returns the account and its entry-derived balance.
	// Returns ErrAccountNotFound if the account doesn't exist.
	GetAccount(ctx context.Context, id uuid.UUID) (*account.WithBalance, error)

	// ListEntries pages through the account's entries, newest first, with the total count.
	ListEntries(ctx context.Context, id uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error)

	// ListStatement pages through the projected statement lines with the total count.
	ListStatement(ctx context.Context, id uuid.UUID, page, perPage int) ([]*statement.Line, int64, error)
}

// TransferService posts transfers synchronously and enqueues commands for the processor.
type TransferService interface {
	Transfer(ctx context.Context, req ledger.TransferRequest) (*ledger.TransferResult, error)
	Split(ctx context.Context, req ledger.SplitRequest) (*ledger.SplitResult, error)
	Reverse(ctx context.Context, req ledger.ReverseRequest) (*ledger.TransferResult, error)

	// GetTransfer returns the transfer and its entries.
	// Returns ErrTransferNotFound if the transfer doesn't exist.
	GetTransfer(ctx context.Context, id uuid.UUID) (*ledger.Transfer, []*ledger.Entry, error)

	// EnqueueCommand publishes the command to the command topic for asynchronous processing.
	EnqueueCommand(ctx context.Context, cmd *shared.LedgerCommand) error
}

// AuditService runs the ledger invariant check on demand.
type AuditService interface {
	Audit(ctx context.Context) (*ledger.InvariantReport, error)
}
