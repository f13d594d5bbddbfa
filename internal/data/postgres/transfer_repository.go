package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/platform/persistence"
)

const transferColumns = `id, from_account_id, to_account_id, amount_cents, currency, reason, ref_type, ref_id,
		idempotency_key, status, created_at, reversed_by_transfer_id`

// TransferRepository implements the ledger.TransferRepository interface for PostgreSQL
type TransferRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransferRepository creates a new PostgreSQL transfer repository
func NewTransferRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.TransferRepository {
	return &TransferRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *TransferRepository) WithTx(tx pgx.Tx) ledger.TransferRepository {
	return &TransferRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanTransfer(row pgx.Row) (*ledger.Transfer, error) {
	var t ledger.Transfer
	err := row.Scan(
		&t.ID,
		&t.FromAccountID,
		&t.ToAccountID,
		&t.AmountCents,
		&t.Currency,
		&t.Reason,
		&t.RefType,
		&t.RefID,
		&t.IdempotencyKey,
		&t.Status,
		&t.CreatedAt,
		&t.ReversedByTransferID,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts the transfer. A taken idempotency key is not an error:
// inserted comes back false and nothing is written.
func (r *TransferRepository) Create(ctx context.Context, t *ledger.Transfer) (bool, error) {
	query := `
		INSERT INTO transfers (id, from_account_id, to_account_id, amount_cents, currency, reason, ref_type, ref_id,
			idempotency_key, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (idempotency_key) DO NOTHING
	`

	result, err := r.querier.Exec(ctx, query,
		t.ID,
		t.FromAccountID,
		t.ToAccountID,
		t.AmountCents,
		t.Currency,
		t.Reason,
		t.RefType,
		t.RefID,
		t.IdempotencyKey,
		t.Status,
		t.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create transfer",
			"transfer_id", t.ID.String(),
			"idempotency_key", t.IdempotencyKey,
			"error", err,
		)
		return false, fmt.Errorf("failed to create transfer: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// GetByID retrieves a transfer by its ID
func (r *TransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Transfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE id = $1
	`

	t, err := scanTransfer(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrTransferNotFound{TransferID: id}
		}
		r.logger.Error("Failed to get transfer", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}
	return t, nil
}

// GetByIdempotencyKey returns (nil, nil) when no transfer holds the key.
func (r *TransferRepository) GetByIdempotencyKey(ctx context.Context, key string) (*ledger.Transfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE idempotency_key = $1
	`

	t, err := scanTransfer(r.querier.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get transfer by idempotency key", "idempotency_key", key, "error", err)
		return nil, fmt.Errorf("failed to get transfer by idempotency key: %w", err)
	}
	return t, nil
}

// GetByIdempotencyKeys returns every transfer holding one of keys, in key order.
func (r *TransferRepository) GetByIdempotencyKeys(ctx context.Context, keys ...string) ([]*ledger.Transfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE idempotency_key = ANY($1)
		ORDER BY idempotency_key
	`

	rows, err := r.querier.Query(ctx, query, keys)
	if err != nil {
		r.logger.Error("Failed to get transfers by idempotency keys", "keys", keys, "error", err)
		return nil, fmt.Errorf("failed to get transfers by idempotency keys: %w", err)
	}
	defer rows.Close()

	var transfers []*ledger.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			r.logger.Error("Failed to scan transfer", "error", err)
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over transfers", "error", err)
		return nil, fmt.Errorf("error iterating over transfers: %w", err)
	}
	return transfers, nil
}

// LockForUpdate row-locks a transfer for the rest of the transaction.
func (r *TransferRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Transfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE id = $1
		FOR UPDATE
	`

	t, err := scanTransfer(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrTransferNotFound{TransferID: id}
		}
		r.logger.Error("Failed to lock transfer for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock transfer for update: %w", err)
	}
	return t, nil
}

// MarkReversed sets reversed_by_transfer_id once. Zero affected rows means the
// link was already set, which is ErrAlreadyReversed.
func (r *TransferRepository) MarkReversed(ctx context.Context, id, reversalID uuid.UUID) error {
	query := `
		UPDATE transfers
		SET reversed_by_transfer_id = $1
		WHERE id = $2 AND reversed_by_transfer_id IS NULL
	`

	result, err := r.querier.Exec(ctx, query, reversalID, id)
	if err != nil {
		r.logger.Error("Failed to mark transfer reversed",
			"id", id.String(),
			"reversal_id", reversalID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to mark transfer reversed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ledger.ErrAlreadyReversed
	}
	return nil
}
