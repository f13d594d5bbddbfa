package components

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/account"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/ledger/service"
)

type BalanceReaderImpl struct {
	accountRepo account.Repository
	entryRepo   ledger.EntryRepository
	logger      *slog.Logger
}

func NewBalanceReader(accountRepo account.Repository, entryRepo ledger.EntryRepository, logger *slog.Logger) service.BalanceReader {
	return &BalanceReaderImpl{
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		logger:      logger,
	}
}

// GetBalanceCents sums the account's entries in its own currency.
// An account with no entries has balance 0.
func (r *BalanceReaderImpl) GetBalanceCents(ctx context.Context, accountID uuid.UUID) (int64, error) {
	acc, err := r.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return r.entryRepo.SumByAccount(ctx, acc.ID, acc.Currency)
}

func (r *BalanceReaderImpl) GetAccountWithBalance(ctx context.Context, accountID uuid.UUID) (*account.WithBalance, error) {
	acc, err := r.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	balance, err := r.entryRepo.SumByAccount(ctx, acc.ID, acc.Currency)
	if err != nil {
		r.logger.Error("Failed to derive balance", "account_id", accountID.String(), "error", err)
		return nil, err
	}
	return &account.WithBalance{Account: acc, BalanceCents: balance}, nil
}

// ListEntries pages through the account's entries, newest first.
func (r *BalanceReaderImpl) ListEntries(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	if _, err := r.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	return r.entryRepo.ListByAccount(ctx, accountID, limit, offset)
}

func (r *BalanceReaderImpl) CountEntries(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return r.entryRepo.CountByAccount(ctx, accountID)
}
