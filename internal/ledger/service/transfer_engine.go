package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/account"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/platform/metrics"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/platform/persistence"
)

const transferKeyConstraint = "transfers_idempotency_key_key"

// errKeyTaken is returned inside the transaction when an insert finds its
// idempotency key already owned by another writer. It never leaves the engine.
var errKeyTaken = errors.New("idempotency key taken by a concurrent writer")

type TransferEngineImpl struct {
	txRunner    persistence.TxRunner
	transfers   ledger.TransferRepository
	entries     ledger.EntryRepository
	accounts    AccountManager
	idempotency IdempotencyChecker
	outbox      OutboxManager
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

func NewTransferEngine(
	txRunner persistence.TxRunner,
	transfers ledger.TransferRepository,
	entries ledger.EntryRepository,
	accounts AccountManager,
	idempotency IdempotencyChecker,
	outbox OutboxManager,
	m *metrics.Metrics,
	logger *slog.Logger,
) *TransferEngineImpl {
	return &TransferEngineImpl{
		txRunner:    txRunner,
		transfers:   transfers,
		entries:     entries,
		accounts:    accounts,
		idempotency: idempotency,
		outbox:      outbox,
		metrics:     m,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (e *TransferEngineImpl) loggerFor(correlationID string) *slog.Logger {
	if correlationID != "" {
		return e.logger.With("correlation_id", correlationID)
	}
	return e.logger
}

// Transfer moves req.AmountCents from one account to another.
func (e *TransferEngineImpl) Transfer(ctx context.Context, req ledger.TransferRequest) (*ledger.TransferResult, error) {
	logger := e.loggerFor(req.CorrelationID)
	op := ledger.OperationTransfer

	if err := req.Validate(); err != nil {
		logger.Warn("Transfer request rejected", "idempotency_key", req.IdempotencyKey, "error", err)
		return nil, e.fail(op, err)
	}

	logger.Info("Posting transfer",
		"idempotency_key", req.IdempotencyKey,
		"from_account_id", req.FromAccountID.String(),
		"to_account_id", req.ToAccountID.String(),
		"amount_cents", req.AmountCents,
		"currency", req.Currency,
	)

	var result *ledger.TransferResult
	err := e.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if _, err := e.accounts.LockAccounts(ctx, tx, req.Currency, req.FromAccountID, req.ToAccountID); err != nil {
			return err
		}

		existing, entries, err := e.idempotency.FindExisting(ctx, tx, req.IdempotencyKey)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			result = transferResult(existing[0], entries, ledger.OutcomeExisting)
			return nil
		}

		posting := ledger.NewTransferPosting(req, e.now())
		if err := e.post(ctx, tx, op, req.IdempotencyKey, req.CorrelationID, posting); err != nil {
			return err
		}
		result = transferResult(posting.Transfers[0], posting.Entries, ledger.OutcomeCreated)
		return nil
	})
	if err != nil {
		existing, entries, rErr := e.resolveConflict(ctx, err, req.IdempotencyKey)
		if rErr != nil {
			logger.Error("Transfer failed", "idempotency_key", req.IdempotencyKey, "error", rErr)
			return nil, e.fail(op, rErr)
		}
		result = transferResult(existing[0], entries, ledger.OutcomeExisting)
	}

	e.succeed(logger, op, req.IdempotencyKey, result.Outcome)
	return result, nil
}

// ReverseTransfer posts the mirror image of an earlier transfer and links the two.
func (e *TransferEngineImpl) ReverseTransfer(ctx context.Context, req ledger.ReverseRequest) (*ledger.TransferResult, error) {
	logger := e.loggerFor(req.CorrelationID)
	op := ledger.OperationReverse

	if err := req.Validate(); err != nil {
		logger.Warn("Reverse request rejected", "idempotency_key", req.IdempotencyKey, "error", err)
		return nil, e.fail(op, err)
	}

	logger.Info("Reversing transfer",
		"idempotency_key", req.IdempotencyKey,
		"original_transfer_id", req.OriginalTransferID.String(),
	)

	var result *ledger.TransferResult
	err := e.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		existing, entries, err := e.idempotency.FindExisting(ctx, tx, req.IdempotencyKey)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			result = transferResult(existing[0], entries, ledger.OutcomeExisting)
			return nil
		}

		transfersTx := e.transfers.WithTx(tx)
		original, err := transfersTx.LockForUpdate(ctx, req.OriginalTransferID)
		if err != nil {
			return err
		}
		if original.IsReversed() {
			return fmt.Errorf("transfer %s: %w", original.ID.String(), ledger.ErrAlreadyReversed)
		}

		if _, err := e.accounts.LockAccounts(ctx, tx, original.Currency, original.FromAccountID, original.ToAccountID); err != nil {
			return err
		}

		posting := ledger.NewReversalPosting(original, req, e.now())
		if err := e.post(ctx, tx, op, req.IdempotencyKey, req.CorrelationID, posting); err != nil {
			return err
		}

		reversal := posting.Transfers[0]
		if err := transfersTx.MarkReversed(ctx, original.ID, reversal.ID); err != nil {
			return err
		}
		result = transferResult(reversal, posting.Entries, ledger.OutcomeCreated)
		return nil
	})
	if err != nil {
		existing, entries, rErr := e.resolveConflict(ctx, err, req.IdempotencyKey)
		if rErr != nil {
			logger.Error("Reversal failed",
				"idempotency_key", req.IdempotencyKey,
				"original_transfer_id", req.OriginalTransferID.String(),
				"error", rErr,
			)
			return nil, e.fail(op, rErr)
		}
		result = transferResult(existing[0], entries, ledger.OutcomeExisting)
	}

	e.succeed(logger, op, req.IdempotencyKey, result.Outcome)
	return result, nil
}

// SplitTransfer charges the buyer the gross amount and credits the platform
// fee and the instructor's net share in one transaction.
func (e *TransferEngineImpl) SplitTransfer(ctx context.Context, req ledger.SplitRequest) (*ledger.SplitResult, error) {
	logger := e.loggerFor(req.CorrelationID)
	op := ledger.OperationSplit

	if err := req.Validate(); err != nil {
		logger.Warn("Split request rejected", "idempotency_key", req.IdempotencyKey, "error", err)
		return nil, e.fail(op, err)
	}

	logger.Info("Posting split",
		"idempotency_key", req.IdempotencyKey,
		"buyer_account_id", req.BuyerAccountID.String(),
		"gross_amount_cents", req.GrossAmountCents,
		"platform_fee_cents", req.PlatformFeeCents,
		"currency", req.Currency,
	)

	keys := []string{req.FeeKey(), req.NetKey()}

	var result *ledger.SplitResult
	err := e.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		_, err := e.accounts.LockAccounts(ctx, tx, req.Currency,
			req.BuyerAccountID, req.InstructorAccountID, req.PlatformAccountID)
		if err != nil {
			return err
		}

		existing, entries, err := e.idempotency.FindExisting(ctx, tx, keys...)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			result = splitResult(req, existing, entries, ledger.OutcomeExisting)
			return nil
		}

		fee, net, posting := ledger.NewSplitPosting(req, e.now())
		if err := e.post(ctx, tx, op, req.IdempotencyKey, req.CorrelationID, posting); err != nil {
			return err
		}
		result = &ledger.SplitResult{
			FeeTransfer: fee,
			NetTransfer: net,
			Entries:     posting.Entries,
			Outcome:     ledger.OutcomeCreated,
		}
		return nil
	})
	if err != nil {
		existing, entries, rErr := e.resolveConflict(ctx, err, keys...)
		if rErr != nil {
			logger.Error("Split failed", "idempotency_key", req.IdempotencyKey, "error", rErr)
			return nil, e.fail(op, rErr)
		}
		result = splitResult(req, existing, entries, ledger.OutcomeExisting)
	}

	e.succeed(logger, op, req.IdempotencyKey, result.Outcome)
	return result, nil
}

// post writes the transfers, their entries and the outbox event on tx.
func (e *TransferEngineImpl) post(
	ctx context.Context,
	tx pgx.Tx,
	op ledger.Operation,
	idempotencyKey, correlationID string,
	posting *ledger.Posting,
) error {
	transfersTx := e.transfers.WithTx(tx)
	for _, t := range posting.Transfers {
		inserted, err := transfersTx.Create(ctx, t)
		if err != nil {
			return err
		}
		if !inserted {
			return fmt.Errorf("key %q: %w", t.IdempotencyKey, errKeyTaken)
		}
	}

	if err := e.entries.WithTx(tx).CreateBatch(ctx, posting.Entries); err != nil {
		return err
	}

	event := ledger.NewTransferPostedEvent(op, idempotencyKey, correlationID, posting, e.now())
	return e.outbox.CreateOutboxEntry(ctx, tx, event)
}

// resolveConflict handles a failed write. If it lost an idempotency race, the
// winner's committed rows are read back outside the failed transaction.
// Any other error is returned unchanged.
func (e *TransferEngineImpl) resolveConflict(ctx context.Context, txErr error, keys ...string) ([]*ledger.Transfer, []*ledger.Entry, error) {
	if !isConcurrencyConflict(txErr) {
		return nil, nil, txErr
	}

	existing, entries, err := e.idempotency.FindExisting(ctx, nil, keys...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: re-read after conflict failed: %v", ledger.ErrTransientConflict, err)
	}
	if len(existing) == 0 {
		return nil, nil, fmt.Errorf("%w: %v", ledger.ErrTransientConflict, txErr)
	}

	e.logger.Info("Idempotency race resolved to the committed winner", "keys", keys, "conflict", txErr.Error())
	return existing, entries, nil
}

func isConcurrencyConflict(err error) bool {
	return errors.Is(err, errKeyTaken) ||
		persistence.IsUniqueViolation(err, transferKeyConstraint) ||
		persistence.IsSerializationFailure(err)
}

func (e *TransferEngineImpl) succeed(logger *slog.Logger, op ledger.Operation, key string, outcome ledger.Outcome) {
	e.metrics.ObserveTransfer(string(op), string(outcome))
	logger.Info("Ledger operation completed",
		"operation", string(op),
		"idempotency_key", key,
		"outcome", string(outcome),
	)
}

func (e *TransferEngineImpl) fail(op ledger.Operation, err error) error {
	e.metrics.ObserveTransferError(string(op), ErrorKind(err))
	return err
}

// ErrorKind is a short, stable label for err, used in metrics and API responses.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ledger.ErrTransientConflict):
		return "transient"
	case errors.Is(err, ledger.ErrAlreadyReversed):
		return "already_reversed"
	case errors.Is(err, ledger.ErrTransferNotFound{}), errors.Is(err, account.ErrAccountNotFound{}):
		return "not_found"
	case ledger.IsValidationError(err):
		return "validation"
	default:
		return "internal"
	}
}

func transferResult(t *ledger.Transfer, entries []*ledger.Entry, outcome ledger.Outcome) *ledger.TransferResult {
	return &ledger.TransferResult{Transfer: t, Entries: entries, Outcome: outcome}
}

func splitResult(req ledger.SplitRequest, legs []*ledger.Transfer, entries []*ledger.Entry, outcome ledger.Outcome) *ledger.SplitResult {
	result := &ledger.SplitResult{Entries: entries, Outcome: outcome}
	for _, leg := range legs {
		switch leg.IdempotencyKey {
		case req.FeeKey():
			result.FeeTransfer = leg
		case req.NetKey():
			result.NetTransfer = leg
		}
	}
	return result
}
