package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/account"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
)

// The fakes below stand in for a database where another writer commits the
// same idempotency key between our read and our insert.

type runTx struct {
	err error
}

func (r runTx) ExecuteTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	if err := fn(nil); err != nil {
		return err
	}
	return r.err
}

type openAccounts struct{}

func (openAccounts) LockAccounts(_ context.Context, _ pgx.Tx, _ string, ids ...uuid.UUID) (map[uuid.UUID]*account.Account, error) {
	return map[uuid.UUID]*account.Account{}, nil
}

// lateWinner reports nothing on its first lookup and the winner afterwards.
type lateWinner struct {
	calls  int
	winner *ledger.Transfer
}

func (l *lateWinner) FindExisting(_ context.Context, _ pgx.Tx, _ ...string) ([]*ledger.Transfer, []*ledger.Entry, error) {
	l.calls++
	if l.calls == 1 || l.winner == nil {
		return nil, nil, nil
	}
	return []*ledger.Transfer{l.winner}, nil, nil
}

type keyTakenTransfers struct {
	ledger.TransferRepository
	createErr error
}

func (k *keyTakenTransfers) WithTx(pgx.Tx) ledger.TransferRepository { return k }

func (k *keyTakenTransfers) Create(context.Context, *ledger.Transfer) (bool, error) {
	if k.createErr != nil {
		return false, k.createErr
	}
	return false, nil
}

type unusedEntries struct {
	ledger.EntryRepository
}

func (u unusedEntries) WithTx(pgx.Tx) ledger.EntryRepository { return u }

type noopOutbox struct{}

func (noopOutbox) CreateOutboxEntry(context.Context, pgx.Tx, *ledger.TransferPostedEvent) error {
	return nil
}

func newConflictEngine(runner runTx, transfers *keyTakenTransfers, idem *lateWinner) *TransferEngineImpl {
	return NewTransferEngine(runner, transfers, unusedEntries{}, openAccounts{}, idem, noopOutbox{}, nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func conflictRequest() ledger.TransferRequest {
	return ledger.TransferRequest{
		FromAccountID:  uuid.New(),
		ToAccountID:    uuid.New(),
		AmountCents:    100,
		Currency:       "USD",
		IdempotencyKey: "race",
	}
}

func TestTransferEngine_ResolvesLostInsertToWinner(t *testing.T) {
	winner := &ledger.Transfer{ID: uuid.New(), IdempotencyKey: "race", CreatedAt: time.Now()}
	idem := &lateWinner{winner: winner}
	engine := newConflictEngine(runTx{}, &keyTakenTransfers{}, idem)

	result, err := engine.Transfer(context.Background(), conflictRequest())
	require.NoError(t, err)
	assert.Equal(t, ledger.OutcomeExisting, result.Outcome)
	assert.Equal(t, winner.ID, result.Transfer.ID)
	assert.Equal(t, 2, idem.calls)
}

func TestTransferEngine_ResolvesUniqueViolationToWinner(t *testing.T) {
	winner := &ledger.Transfer{ID: uuid.New(), IdempotencyKey: "race"}
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: transferKeyConstraint}
	engine := newConflictEngine(runTx{}, &keyTakenTransfers{createErr: pgErr}, &lateWinner{winner: winner})

	result, err := engine.Transfer(context.Background(), conflictRequest())
	require.NoError(t, err)
	assert.Equal(t, winner.ID, result.Transfer.ID)
}

func TestTransferEngine_SerializationFailureWithoutWinnerIsTransient(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "40001"}
	engine := newConflictEngine(runTx{}, &keyTakenTransfers{createErr: pgErr}, &lateWinner{})

	_, err := engine.Transfer(context.Background(), conflictRequest())
	assert.ErrorIs(t, err, ledger.ErrTransientConflict)
	assert.False(t, ledger.IsPermanent(err))
	assert.Equal(t, "transient", ErrorKind(err))
}

func TestTransferEngine_OtherErrorsPassThrough(t *testing.T) {
	other := &pgconn.PgError{Code: "23505", ConstraintName: "entries_pkey"}
	idem := &lateWinner{winner: &ledger.Transfer{ID: uuid.New()}}
	engine := newConflictEngine(runTx{}, &keyTakenTransfers{createErr: other}, idem)

	_, err := engine.Transfer(context.Background(), conflictRequest())
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "entries_pkey", pgErr.ConstraintName)
	assert.NotErrorIs(t, err, ledger.ErrTransientConflict)
	assert.Equal(t, 1, idem.calls)
}

func TestTransferEngine_SplitResolvesLegsByKey(t *testing.T) {
	req := ledger.SplitRequest{
		BuyerAccountID:      uuid.New(),
		InstructorAccountID: uuid.New(),
		PlatformAccountID:   uuid.New(),
		GrossAmountCents:    10000,
		PlatformFeeCents:    2500,
		Currency:            "USD",
		IdempotencyKey:      "sale",
	}
	fee := &ledger.Transfer{ID: uuid.New(), IdempotencyKey: req.FeeKey()}
	net := &ledger.Transfer{ID: uuid.New(), IdempotencyKey: req.NetKey()}

	result := splitResult(req, []*ledger.Transfer{net, fee}, nil, ledger.OutcomeExisting)
	assert.Equal(t, fee.ID, result.FeeTransfer.ID)
	assert.Equal(t, net.ID, result.NetTransfer.ID)
	assert.Equal(t, []*ledger.Transfer{fee, net}, result.Transfers())
}
