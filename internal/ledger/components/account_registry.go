package components

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/account"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/ledger/service"
)

// AccountRegistryImpl hands out the single account for each (owner, kind, currency).
type AccountRegistryImpl struct {
	accountRepo account.Repository
	logger      *slog.Logger
}

func NewAccountRegistry(accountRepo account.Repository, logger *slog.Logger) service.AccountRegistry {
	return &AccountRegistryImpl{
		accountRepo: accountRepo,
		logger:      logger,
	}
}

// GetOrCreateAccount returns the account for the identity, creating it on
// first use. Concurrent callers with the same identity get the same row.
func (r *AccountRegistryImpl) GetOrCreateAccount(ctx context.Context, ownerID *uuid.UUID, kind account.Kind, currency string) (*account.Account, error) {
	candidate, err := account.NewAccount(ownerID, kind, currency)
	if err != nil {
		return nil, err
	}

	stored, created, err := r.accountRepo.GetOrCreate(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if created {
		r.logger.Info("Account created",
			"account_id", stored.ID.String(),
			"kind", string(stored.Kind),
			"currency", stored.Currency,
		)
	}
	return stored, nil
}

func (r *AccountRegistryImpl) GetPlatformRevenueAccount(ctx context.Context, currency string) (*account.Account, error) {
	return r.GetOrCreateAccount(ctx, nil, account.KindPlatform, currency)
}

func (r *AccountRegistryImpl) GetInstructorAccount(ctx context.Context, instructorID uuid.UUID, currency string) (*account.Account, error) {
	return r.GetOrCreateAccount(ctx, &instructorID, account.KindInstructor, currency)
}

func (r *AccountRegistryImpl) GetUserAccount(ctx context.Context, userID uuid.UUID, currency string) (*account.Account, error) {
	return r.GetOrCreateAccount(ctx, &userID, account.KindUser, currency)
}

func (r *AccountRegistryImpl) GetTransientAccount(ctx context.Context, ownerID uuid.UUID, currency string) (*account.Account, error) {
	return r.GetOrCreateAccount(ctx, &ownerID, account.KindTransient, currency)
}

func (r *AccountRegistryImpl) GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return r.accountRepo.GetByID(ctx, id)
}
