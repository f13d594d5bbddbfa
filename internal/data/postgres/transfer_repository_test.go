package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/platform/persistence"
)

var transferRowColumns = []string{
	"id", "from_account_id", "to_account_id", "amount_cents", "currency", "reason", "ref_type", "ref_id",
	"idempotency_key", "status", "created_at", "reversed_by_transfer_id",
}

func newTransferFixture(key string) *ledger.Transfer {
	return &ledger.Transfer{
		ID:             uuid.New(),
		FromAccountID:  uuid.New(),
		ToAccountID:    uuid.New(),
		AmountCents:    10000,
		Currency:       "USD",
		Reason:         "course purchase",
		RefType:        "order",
		RefID:          "ord-7",
		IdempotencyKey: key,
		Status:         ledger.TransferStatusPosted,
		CreatedAt:      time.Now().UTC(),
	}
}

func addTransferRow(rows *pgxmock.Rows, t *ledger.Transfer) *pgxmock.Rows {
	return rows.AddRow(t.ID, t.FromAccountID, t.ToAccountID, t.AmountCents, t.Currency, t.Reason, t.RefType, t.RefID,
		t.IdempotencyKey, t.Status, t.CreatedAt, t.ReversedByTransferID)
}

func newTransferRepo(t *testing.T) (*TransferRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &TransferRepository{querier: mock, logger: newTestLogger()}, mock
}

func TestTransferRepository_Create(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta("INSERT INTO transfers") + ".*" + regexp.QuoteMeta("ON CONFLICT (idempotency_key) DO NOTHING")
	tr := newTransferFixture("order-1")
	args := []interface{}{tr.ID, tr.FromAccountID, tr.ToAccountID, tr.AmountCents, tr.Currency, tr.Reason, tr.RefType,
		tr.RefID, tr.IdempotencyKey, tr.Status, tr.CreatedAt}

	t.Run("Inserted", func(t *testing.T) {
		repo, mock := newTransferRepo(t)
		mock.ExpectExec(query).WithArgs(args...).WillReturnResult(pgxmock.NewResult("INSERT", 1))

		inserted, err := repo.Create(ctx, tr)
		require.NoError(t, err)
		assert.True(t, inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("KeyAlreadyTaken", func(t *testing.T) {
		repo, mock := newTransferRepo(t)
		mock.ExpectExec(query).WithArgs(args...).WillReturnResult(pgxmock.NewResult("INSERT", 0))

		inserted, err := repo.Create(ctx, tr)
		require.NoError(t, err)
		assert.False(t, inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SerializationFailureIsWrapped", func(t *testing.T) {
		repo, mock := newTransferRepo(t)
		mock.ExpectExec(query).WithArgs(args...).WillReturnError(&pgconn.PgError{Code: "40001"})

		inserted, err := repo.Create(ctx, tr)
		assert.False(t, inserted)
		assert.True(t, persistence.IsSerializationFailure(err))
		assert.Contains(t, err.Error(), "failed to create transfer")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransferRepository_GetByIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta("FROM transfers WHERE idempotency_key = $1")

	t.Run("Found", func(t *testing.T) {
		repo, mock := newTransferRepo(t)
		tr := newTransferFixture("order-2")
		mock.ExpectQuery(query).WithArgs("order-2").
			WillReturnRows(addTransferRow(pgxmock.NewRows(transferRowColumns), tr))

		found, err := repo.GetByIdempotencyKey(ctx, "order-2")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, tr.ID, found.ID)
		assert.Equal(t, int64(10000), found.AmountCents)
		assert.False(t, found.IsReversed())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AbsentIsNilNil", func(t *testing.T) {
		repo, mock := newTransferRepo(t)
		mock.ExpectQuery(query).WithArgs("unknown").WillReturnRows(pgxmock.NewRows(transferRowColumns))

		found, err := repo.GetByIdempotencyKey(ctx, "unknown")
		assert.NoError(t, err)
		assert.Nil(t, found)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransferRepository_GetByIdempotencyKeys(t *testing.T) {
	ctx := context.Background()
	repo, mock := newTransferRepo(t)

	fee := newTransferFixture("chk-1:fee")
	net := newTransferFixture("chk-1:net")
	rows := addTransferRow(addTransferRow(pgxmock.NewRows(transferRowColumns), fee), net)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE idempotency_key = ANY($1)")).
		WithArgs([]string{"chk-1:fee", "chk-1:net"}).
		WillReturnRows(rows)

	found, err := repo.GetByIdempotencyKeys(ctx, "chk-1:fee", "chk-1:net")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, fee.ID, found[0].ID)
	assert.Equal(t, net.ID, found[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta("FROM transfers WHERE id = $1 FOR UPDATE")

	t.Run("Reversed", func(t *testing.T) {
		repo, mock := newTransferRepo(t)
		tr := newTransferFixture("order-3")
		reversal := uuid.New()
		tr.ReversedByTransferID = &reversal
		mock.ExpectQuery(query).WithArgs(tr.ID).WillReturnRows(addTransferRow(pgxmock.NewRows(transferRowColumns), tr))

		locked, err := repo.LockForUpdate(ctx, tr.ID)
		require.NoError(t, err)
		assert.True(t, locked.IsReversed())
		assert.Equal(t, reversal, *locked.ReversedByTransferID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mock := newTransferRepo(t)
		id := uuid.New()
		mock.ExpectQuery(query).WithArgs(id).WillReturnRows(pgxmock.NewRows(transferRowColumns))

		locked, err := repo.LockForUpdate(ctx, id)
		assert.Nil(t, locked)
		assert.ErrorIs(t, err, ledger.ErrTransferNotFound{TransferID: id})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransferRepository_MarkReversed(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta("UPDATE transfers SET reversed_by_transfer_id = $1 WHERE id = $2 AND reversed_by_transfer_id IS NULL")
	id, reversal := uuid.New(), uuid.New()

	t.Run("Linked", func(t *testing.T) {
		repo, mock := newTransferRepo(t)
		mock.ExpectExec(query).WithArgs(reversal, id).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.MarkReversed(ctx, id, reversal))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AlreadyLinked", func(t *testing.T) {
		repo, mock := newTransferRepo(t)
		mock.ExpectExec(query).WithArgs(reversal, id).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, repo.MarkReversed(ctx, id, reversal), ledger.ErrAlreadyReversed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DatabaseError", func(t *testing.T) {
		repo, mock := newTransferRepo(t)
		dbErr := errors.New("trigger rejected update")
		mock.ExpectExec(query).WithArgs(reversal, id).WillReturnError(dbErr)

		err := repo.MarkReversed(ctx, id, reversal)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
