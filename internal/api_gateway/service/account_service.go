package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/account"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/statement"
	ledgersvc "github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/ledger/service"
)

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	registry   ledgersvc.AccountRegistry
	balances   ledgersvc.BalanceReader
	statements statement.Repository
}

func NewAccountService(registry ledgersvc.AccountRegistry, balances ledgersvc.BalanceReader, statements statement.Repository) AccountService {
	return &AccountServiceImpl{
		registry:   registry,
		balances:   balances,
		statements: statements,
	}
}

func (s *AccountServiceImpl) OpenAccount(ctx context.Context, ownerID *uuid.UUID, kind account.Kind, currency string) (*account.Account, error) {
	return s.registry.GetOrCreateAccount(ctx, ownerID, kind, currency)
}

func (s *AccountServiceImpl) GetAccount(ctx context.Context, id uuid.UUID) (*account.WithBalance, error) {
	return s.balances.GetAccountWithBalance(ctx, id)
}

func (s *AccountServiceImpl) ListEntries(ctx context.Context, id uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error) {
	entries, err := s.balances.ListEntries(ctx, id, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.balances.CountEntries(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListStatement reads the Mongo projection. It can trail the entry store by
// one outbox poll, so balances are never computed from it.
func (s *AccountServiceImpl) ListStatement(ctx context.Context, id uuid.UUID, page, perPage int) ([]*statement.Line, int64, error) {
	if _, err := s.registry.GetAccount(ctx, id); err != nil {
		return nil, 0, err
	}
	lines, err := s.statements.ListByAccount(ctx, id, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list statement for %s: %w", id, err)
	}
	total, err := s.statements.CountByAccount(ctx, id)
	if err != nil {
		return nil, 0, fmt.Errorf("count statement for %s: %w", id, err)
	}
	return lines, total, nil
}
