// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every repository can be bound to a transaction with WithTx so the transfer
// engine writes transfers, entries and outbox rows atomically.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/account"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/platform/persistence"
)

const accountColumns = `id, owner_id, kind, currency, created_at`

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be the pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository.
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository that runs every statement on tx.
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanAccount(row pgx.Row) (*account.Account, error) {
	var acc account.Account
	if err := row.Scan(&acc.ID, &acc.OwnerID, &acc.Kind, &acc.Currency, &acc.CreatedAt); err != nil {
		return nil, err
	}
	return &acc, nil
}

// GetOrCreate inserts acc unless an account with the same (owner, kind, currency)
// exists. The conflict path re-reads in a separate statement so a caller that lost
// the race sees the winner's committed row. Call it on the pool, not inside a
// serializable transaction.
func (r *AccountRepository) GetOrCreate(ctx context.Context, acc *account.Account) (*account.Account, bool, error) {
	query := `
		INSERT INTO accounts (id, owner_id, kind, currency, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT accounts_identity_key DO NOTHING
		RETURNING ` + accountColumns

	stored, err := scanAccount(r.querier.QueryRow(ctx, query,
		acc.ID,
		acc.OwnerID,
		acc.Kind,
		acc.Currency,
		acc.CreatedAt,
	))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to create account",
			"kind", string(acc.Kind),
			"currency", acc.Currency,
			"error", err,
		)
		return nil, false, fmt.Errorf("failed to create account: %w", err)
	}

	existing, err := r.GetByIdentity(ctx, acc.OwnerID, acc.Kind, acc.Currency)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acc, nil
}

// GetByIdentity looks an account up by owner, kind and currency. A nil owner
// matches the platform account of that currency.
func (r *AccountRepository) GetByIdentity(ctx context.Context, ownerID *uuid.UUID, kind account.Kind, currency string) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE owner_id IS NOT DISTINCT FROM $1 AND kind = $2 AND currency = $3
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, ownerID, kind, currency))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{}
		}
		r.logger.Error("Failed to get account by identity",
			"kind", string(kind),
			"currency", currency,
			"error", err,
		)
		return nil, fmt.Errorf("failed to get account by identity: %w", err)
	}

	return acc, nil
}

// LockForShare takes FOR SHARE locks on the accounts in ascending id order so
// concurrent transfers touching the same pair cannot deadlock on each other.
func (r *AccountRepository) LockForShare(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = ANY($1::uuid[])
		ORDER BY id
		FOR SHARE
	`

	keys := sortedUniqueIDs(ids)
	rows, err := r.querier.Query(ctx, query, keys)
	if err != nil {
		r.logger.Error("Failed to lock accounts", "count", len(keys), "error", err)
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}
	defer rows.Close()

	locked := make(map[uuid.UUID]*account.Account, len(keys))
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			r.logger.Error("Failed to scan account", "error", err)
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		locked[acc.ID] = acc
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over locked accounts", "error", err)
		return nil, fmt.Errorf("error iterating over locked accounts: %w", err)
	}

	for _, id := range ids {
		if _, ok := locked[id]; !ok {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
	}
	return locked, nil
}

// sortedUniqueIDs returns the distinct ids as strings in the order Postgres sorts uuids.
func sortedUniqueIDs(ids []uuid.UUID) []string {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id.String())
	}
	sort.Strings(out)
	return out
}
