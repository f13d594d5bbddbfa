package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/account"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
)

func seedAccounts(t *testing.T, s *Store, currency string) (*account.Account, *account.Account) {
	t.Helper()
	ownerA, ownerB := uuid.New(), uuid.New()
	a, err := account.NewAccount(&ownerA, account.KindUser, currency)
	require.NoError(t, err)
	b, err := account.NewAccount(&ownerB, account.KindInstructor, currency)
	require.NoError(t, err)

	_, _, err = s.Accounts().GetOrCreate(context.Background(), a)
	require.NoError(t, err)
	_, _, err = s.Accounts().GetOrCreate(context.Background(), b)
	require.NoError(t, err)
	return a, b
}

func TestStore_ExecuteTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, b := seedAccounts(t, s, "USD")

	posting := ledger.NewTransferPosting(ledger.TransferRequest{
		FromAccountID: a.ID, ToAccountID: b.ID, AmountCents: 100, Currency: "USD", IdempotencyKey: "k1",
	}, time.Now())

	boom := errors.New("boom")
	err := s.ExecuteTx(ctx, func(tx pgx.Tx) error {
		inserted, err := s.Transfers().WithTx(tx).Create(ctx, posting.Transfers[0])
		require.NoError(t, err)
		require.True(t, inserted)
		require.NoError(t, s.Entries().WithTx(tx).CreateBatch(ctx, posting.Entries))
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Zero(t, s.TransferCount())
	assert.Zero(t, s.EntryCount())

	found, err := s.Transfers().GetByIdempotencyKey(ctx, "k1")
	assert.NoError(t, err)
	assert.Nil(t, found)
}

func TestStore_CommitFault(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, b := seedAccounts(t, s, "USD")
	s.FailNext(OpCommit, nil)

	posting := ledger.NewTransferPosting(ledger.TransferRequest{
		FromAccountID: a.ID, ToAccountID: b.ID, AmountCents: 100, Currency: "USD", IdempotencyKey: "k1",
	}, time.Now())

	err := s.ExecuteTx(ctx, func(tx pgx.Tx) error {
		_, err := s.Transfers().WithTx(tx).Create(ctx, posting.Transfers[0])
		return err
	})
	assert.ErrorIs(t, err, ErrInjected)
	assert.Zero(t, s.TransferCount())
}

func TestStore_RollbackKeepsWritesOutsideTx(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, b := seedAccounts(t, s, "USD")

	posting := ledger.NewTransferPosting(ledger.TransferRequest{
		FromAccountID: a.ID, ToAccountID: b.ID, AmountCents: 100, Currency: "USD", IdempotencyKey: "k1",
	}, time.Now())

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.ExecuteTx(ctx, func(tx pgx.Tx) error {
			if _, err := s.Transfers().WithTx(tx).Create(ctx, posting.Transfers[0]); err != nil {
				return err
			}
			close(started)
			<-release
			return errors.New("boom")
		})
	}()
	<-started

	owner := uuid.New()
	acc, err := account.NewAccount(&owner, account.KindInstructor, "USD")
	require.NoError(t, err)
	stored, created, err := s.Accounts().GetOrCreate(ctx, acc)
	require.NoError(t, err)
	require.True(t, created)

	close(release)
	require.Error(t, <-done)

	got, err := s.Accounts().GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)

	again, created, err := s.Accounts().GetOrCreate(ctx, acc)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, stored.ID, again.ID)
	assert.Zero(t, s.TransferCount())
}

func TestStore_RollbackRestoresReversalLink(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, b := seedAccounts(t, s, "USD")

	posting := ledger.NewTransferPosting(ledger.TransferRequest{
		FromAccountID: a.ID, ToAccountID: b.ID, AmountCents: 100, Currency: "USD", IdempotencyKey: "k1",
	}, time.Now())
	original := posting.Transfers[0]
	require.NoError(t, s.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.Transfers().WithTx(tx).Create(ctx, original); err != nil {
			return err
		}
		return s.Entries().WithTx(tx).CreateBatch(ctx, posting.Entries)
	}))

	err := s.ExecuteTx(ctx, func(tx pgx.Tx) error {
		require.NoError(t, s.Transfers().WithTx(tx).MarkReversed(ctx, original.ID, uuid.New()))
		return errors.New("boom")
	})
	require.Error(t, err)

	got, err := s.Transfers().GetByID(ctx, original.ID)
	require.NoError(t, err)
	assert.False(t, got.IsReversed())
	assert.Equal(t, 2, s.EntryCount())
}

func TestAccountRepository_GetOrCreateConverges(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := uuid.New()

	first, err := account.NewAccount(&owner, account.KindUser, "USD")
	require.NoError(t, err)
	second, err := account.NewAccount(&owner, account.KindUser, "USD")
	require.NoError(t, err)

	stored1, created1, err := s.Accounts().GetOrCreate(ctx, first)
	require.NoError(t, err)
	stored2, created2, err := s.Accounts().GetOrCreate(ctx, second)
	require.NoError(t, err)

	assert.True(t, created1)
	assert.False(t, created2)
	assert.Equal(t, stored1.ID, stored2.ID)

	platform1, _ := account.NewAccount(nil, account.KindPlatform, "USD")
	platform2, _ := account.NewAccount(nil, account.KindPlatform, "USD")
	p1, _, err := s.Accounts().GetOrCreate(ctx, platform1)
	require.NoError(t, err)
	p2, _, err := s.Accounts().GetOrCreate(ctx, platform2)
	require.NoError(t, err)
	assert.Equal(t, p1.ID, p2.ID)
}

func TestTransferRepository_MarkReversedOnce(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, b := seedAccounts(t, s, "EUR")

	posting := ledger.NewTransferPosting(ledger.TransferRequest{
		FromAccountID: a.ID, ToAccountID: b.ID, AmountCents: 100, Currency: "EUR", IdempotencyKey: "k1",
	}, time.Now())
	_, err := s.Transfers().Create(ctx, posting.Transfers[0])
	require.NoError(t, err)

	id := posting.Transfers[0].ID
	require.NoError(t, s.Transfers().MarkReversed(ctx, id, uuid.New()))
	assert.ErrorIs(t, s.Transfers().MarkReversed(ctx, id, uuid.New()), ledger.ErrAlreadyReversed)
}

func TestEntryRepository_RejectsDanglingEntries(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, b := seedAccounts(t, s, "USD")

	posting := ledger.NewTransferPosting(ledger.TransferRequest{
		FromAccountID: a.ID, ToAccountID: b.ID, AmountCents: 100, Currency: "USD", IdempotencyKey: "k1",
	}, time.Now())

	err := s.Entries().CreateBatch(ctx, posting.Entries)
	assert.ErrorIs(t, err, ledger.ErrTransferNotFound{})
	assert.Zero(t, s.EntryCount())
}

func TestEntryRepository_Aggregates(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, b := seedAccounts(t, s, "USD")

	for i, amount := range []int64{300, 200} {
		posting := ledger.NewTransferPosting(ledger.TransferRequest{
			FromAccountID: a.ID, ToAccountID: b.ID, AmountCents: amount, Currency: "USD",
			IdempotencyKey: uuid.NewString(),
		}, time.Now().Add(time.Duration(i)*time.Second))
		_, err := s.Transfers().Create(ctx, posting.Transfers[0])
		require.NoError(t, err)
		require.NoError(t, s.Entries().CreateBatch(ctx, posting.Entries))
	}

	balance, err := s.Entries().SumByAccount(ctx, b.ID, "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(500), balance)

	latest, err := s.Entries().ListByAccount(ctx, a.ID, 1, 0)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, int64(200), latest[0].AmountCents)

	totals, err := s.Entries().TotalsByCurrency(ctx)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Zero(t, totals[0].NetCents())
	assert.Equal(t, int64(4), totals[0].EntryCount)
}
