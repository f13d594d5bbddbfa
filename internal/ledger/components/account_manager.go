package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/account"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/ledger/service"
)

// AccountManagerImpl implements the AccountManager interface
type AccountManagerImpl struct {
	accountRepo account.Repository
	logger      *slog.Logger
}

// NewAccountManager creates a new AccountManagerImpl
func NewAccountManager(accountRepo account.Repository, logger *slog.Logger) service.AccountManager {
	return &AccountManagerImpl{
		accountRepo: accountRepo,
		logger:      logger,
	}
}

// LockAccounts share-locks every account a posting touches and checks that
// each one is denominated in currency. Accounts are only read, never updated.
func (m *AccountManagerImpl) LockAccounts(ctx context.Context, tx pgx.Tx, currency string, ids ...uuid.UUID) (map[uuid.UUID]*account.Account, error) {
	accountRepoTx := m.accountRepo.WithTx(tx)

	locked, err := accountRepoTx.LockForShare(ctx, ids...)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			m.logger.Warn("Account not found for lock", "error", err)
			return nil, err
		}
		m.logger.Error("Failed to lock accounts", "count", len(ids), "error", err)
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}

	for _, id := range ids {
		acc := locked[id]
		if acc.Currency != currency {
			m.logger.Warn("Currency mismatch",
				"acc_id", id.String(),
				"req_curr", currency,
				"acc_curr", acc.Currency,
			)
			return nil, fmt.Errorf("account %s holds %s, request is in %s: %w",
				id.String(), acc.Currency, currency, ledger.ErrCurrencyMismatch)
		}
	}

	return locked, nil
}
