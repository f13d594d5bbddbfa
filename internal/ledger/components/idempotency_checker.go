package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/ledger/service"
)

type IdempotencyCheckerImpl struct {
	transferRepo ledger.TransferRepository
	entryRepo    ledger.EntryRepository
	logger       *slog.Logger
}

func NewIdempotencyChecker(transferRepo ledger.TransferRepository, entryRepo ledger.EntryRepository, logger *slog.Logger) service.IdempotencyChecker {
	return &IdempotencyCheckerImpl{
		transferRepo: transferRepo,
		entryRepo:    entryRepo,
		logger:       logger,
	}
}

// FindExisting returns the transfers already stored under keys, with their
// entries. Both slices are empty when no key has been used.
func (c *IdempotencyCheckerImpl) FindExisting(ctx context.Context, tx pgx.Tx, keys ...string) ([]*ledger.Transfer, []*ledger.Entry, error) {
	transferRepo, entryRepo := c.transferRepo, c.entryRepo
	if tx != nil {
		transferRepo, entryRepo = transferRepo.WithTx(tx), entryRepo.WithTx(tx)
	}

	transfers, err := transferRepo.GetByIdempotencyKeys(ctx, keys...)
	if err != nil {
		c.logger.Error("Failed to check idempotency keys", "keys", keys, "error", err)
		return nil, nil, fmt.Errorf("idempotency check failed: %w", err)
	}
	if len(transfers) == 0 {
		return nil, nil, nil
	}

	ids := make([]uuid.UUID, 0, len(transfers))
	for _, t := range transfers {
		ids = append(ids, t.ID)
	}
	entries, err := entryRepo.ListByTransfer(ctx, ids...)
	if err != nil {
		return nil, nil, fmt.Errorf("idempotency check failed: %w", err)
	}

	c.logger.Info("Idempotency key already used, returning stored result", "keys", keys, "transfers", len(transfers))
	return transfers, entries, nil
}
