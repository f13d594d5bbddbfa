package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransferRepository manages transfer rows.
type TransferRepository interface {
	// Create inserts t unless its idempotency key is already taken.
	// inserted is false when another transfer owns the key.
	Create(ctx context.Context, t *Transfer) (inserted bool, err error)
	GetByID(ctx context.Context, id uuid.UUID) (*Transfer, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Transfer, error)
	GetByIdempotencyKeys(ctx context.Context, keys ...string) ([]*Transfer, error)

	// LockForUpdate row-locks the transfer for the rest of the transaction.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Transfer, error)

	// MarkReversed sets the one-time reversal link. It fails with
	// ErrAlreadyReversed if the link is already present.
	MarkReversed(ctx context.Context, id, reversalID uuid.UUID) error
	WithTx(tx pgx.Tx) TransferRepository
}

// EntryRepository manages the append-only entry store.
type EntryRepository interface {
	CreateBatch(ctx context.Context, entries []*Entry) error
	ListByTransfer(ctx context.Context, transferIDs ...uuid.UUID) ([]*Entry, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)

	// SumByAccount returns Σcredit − Σdebit for the account's entries in currency.
	SumByAccount(ctx context.Context, accountID uuid.UUID, currency string) (int64, error)

	// TotalsByCurrency aggregates every entry grouped by currency.
	TotalsByCurrency(ctx context.Context) ([]CurrencyTotal, error)

	// TransfersWithoutEntries lists up to limit transfers with no entry bound to them.
	TransfersWithoutEntries(ctx context.Context, limit int) ([]uuid.UUID, error)
	WithTx(tx pgx.Tx) EntryRepository
}
