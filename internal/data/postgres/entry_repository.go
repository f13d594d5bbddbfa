package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/platform/persistence"
)

const entryColumns = `id, account_id, transfer_id, direction, amount_cents, currency, created_at`

// EntryRepository implements the ledger.EntryRepository interface for PostgreSQL.
// The entries table only ever receives INSERTs; a trigger rejects UPDATE and DELETE.
type EntryRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewEntryRepository creates a new PostgreSQL entry repository
func NewEntryRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.EntryRepository {
	return &EntryRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *EntryRepository) WithTx(tx pgx.Tx) ledger.EntryRepository {
	return &EntryRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanEntry(row pgx.Row) (*ledger.Entry, error) {
	var e ledger.Entry
	if err := row.Scan(&e.ID, &e.AccountID, &e.TransferID, &e.Direction, &e.AmountCents, &e.Currency, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EntryRepository) collect(rows pgx.Rows) ([]*ledger.Entry, error) {
	defer rows.Close()

	entries := []*ledger.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			r.logger.Error("Failed to scan entry", "error", err)
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over entries", "error", err)
		return nil, fmt.Errorf("error iterating over entries: %w", err)
	}
	return entries, nil
}

// CreateBatch appends all entries with one multi-row INSERT.
func (r *EntryRepository) CreateBatch(ctx context.Context, entries []*ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	const width = 7
	values := make([]string, 0, len(entries))
	args := make([]interface{}, 0, len(entries)*width)
	for i, e := range entries {
		n := i * width
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6, n+7))
		args = append(args, e.ID, e.AccountID, e.TransferID, e.Direction, e.AmountCents, e.Currency, e.CreatedAt)
	}

	query := `
		INSERT INTO entries (` + entryColumns + `)
		VALUES ` + strings.Join(values, ", ")

	if _, err := r.querier.Exec(ctx, query, args...); err != nil {
		r.logger.Error("Failed to create entries",
			"transfer_id", entries[0].TransferID.String(),
			"count", len(entries),
			"error", err,
		)
		return fmt.Errorf("failed to create entries: %w", err)
	}
	return nil
}

// ListByTransfer returns every entry bound to the given transfers.
func (r *EntryRepository) ListByTransfer(ctx context.Context, transferIDs ...uuid.UUID) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM entries
		WHERE transfer_id = ANY($1::uuid[])
		ORDER BY created_at ASC, direction DESC, id ASC
	`

	ids := make([]string, 0, len(transferIDs))
	for _, id := range transferIDs {
		ids = append(ids, id.String())
	}

	rows, err := r.querier.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error("Failed to list entries by transfer", "error", err)
		return nil, fmt.Errorf("failed to list entries by transfer: %w", err)
	}
	return r.collect(rows)
}

// ListByAccount pages through an account's entries, newest first.
func (r *EntryRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list entries by account", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list entries by account: %w", err)
	}
	return r.collect(rows)
}

func (r *EntryRepository) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM entries
		WHERE account_id = $1
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		r.logger.Error("Failed to count entries", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// SumByAccount folds the account's entries into a signed balance. There is no
// stored balance to read; this query is the only source of truth.
func (r *EntryRepository) SumByAccount(ctx context.Context, accountID uuid.UUID, currency string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN direction = 'credit' THEN amount_cents ELSE -amount_cents END), 0)::BIGINT
		FROM entries
		WHERE account_id = $1 AND currency = $2
	`

	var balance int64
	if err := r.querier.QueryRow(ctx, query, accountID, currency).Scan(&balance); err != nil {
		r.logger.Error("Failed to sum entries", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to sum entries: %w", err)
	}
	return balance, nil
}

// TotalsByCurrency aggregates the whole entry store per currency.
func (r *EntryRepository) TotalsByCurrency(ctx context.Context) ([]ledger.CurrencyTotal, error) {
	query := `
		SELECT currency,
			COALESCE(SUM(amount_cents) FILTER (WHERE direction = 'credit'), 0)::BIGINT,
			COALESCE(SUM(amount_cents) FILTER (WHERE direction = 'debit'), 0)::BIGINT,
			COUNT(*)
		FROM entries
		GROUP BY currency
		ORDER BY currency
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to aggregate entries by currency", "error", err)
		return nil, fmt.Errorf("failed to aggregate entries by currency: %w", err)
	}
	defer rows.Close()

	totals := []ledger.CurrencyTotal{}
	for rows.Next() {
		var t ledger.CurrencyTotal
		if err := rows.Scan(&t.Currency, &t.CreditCents, &t.DebitCents, &t.EntryCount); err != nil {
			r.logger.Error("Failed to scan currency total", "error", err)
			return nil, fmt.Errorf("failed to scan currency total: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over currency totals", "error", err)
		return nil, fmt.Errorf("error iterating over currency totals: %w", err)
	}
	return totals, nil
}

func (r *EntryRepository) TransfersWithoutEntries(ctx context.Context, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT t.id
		FROM transfers t
		WHERE NOT EXISTS (SELECT 1 FROM entries e WHERE e.transfer_id = t.id)
		ORDER BY t.created_at
		LIMIT $1
	`

	rows, err := r.querier.Query(ctx, query, limit)
	if err != nil {
		r.logger.Error("Failed to find transfers without entries", "error", err)
		return nil, fmt.Errorf("failed to find transfers without entries: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan transfer id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transfer ids: %w", err)
	}
	return ids, nil
}
