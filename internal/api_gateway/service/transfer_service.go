package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/shared"
	ledgersvc "github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/ledger/service"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/platform/messaging/producers"
)

// TransferServiceImpl implements the TransferService interface
type TransferServiceImpl struct {
	engine    ledgersvc.TransferEngine
	transfers ledger.TransferRepository
	entries   ledger.EntryRepository
	producer  producers.MessagePublisher
	logger    *slog.Logger
}

// NewTransferService wires the engine for synchronous posting. producer may
// be nil, in which case EnqueueCommand is unavailable.
func NewTransferService(
	logger *slog.Logger,
	engine ledgersvc.TransferEngine,
	transfers ledger.TransferRepository,
	entries ledger.EntryRepository,
	producer producers.MessagePublisher,
) TransferService {
	return &TransferServiceImpl{
		engine:    engine,
		transfers: transfers,
		entries:   entries,
		producer:  producer,
		logger:    logger,
	}
}

func (s *TransferServiceImpl) Transfer(ctx context.Context, req ledger.TransferRequest) (*ledger.TransferResult, error) {
	return s.engine.Transfer(ctx, req)
}

func (s *TransferServiceImpl) Split(ctx context.Context, req ledger.SplitRequest) (*ledger.SplitResult, error) {
	return s.engine.SplitTransfer(ctx, req)
}

func (s *TransferServiceImpl) Reverse(ctx context.Context, req ledger.ReverseRequest) (*ledger.TransferResult, error) {
	return s.engine.ReverseTransfer(ctx, req)
}

func (s *TransferServiceImpl) GetTransfer(ctx context.Context, id uuid.UUID) (*ledger.Transfer, []*ledger.Entry, error) {
	t, err := s.transfers.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.entries.ListByTransfer(ctx, t.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list entries of transfer %s: %w", id, err)
	}
	return t, entries, nil
}

// ErrCommandQueueUnavailable is returned when no command producer is configured.
var ErrCommandQueueUnavailable = errors.New("command queue is not configured")

func (s *TransferServiceImpl) EnqueueCommand(ctx context.Context, cmd *shared.LedgerCommand) error {
	if s.producer == nil {
		return ErrCommandQueueUnavailable
	}
	if err := cmd.Validate(); err != nil {
		return err
	}

	key := cmd.IdempotencyKey()
	if key == "" {
		return ledger.ErrMissingIdempotencyKey
	}
	if err := s.producer.Publish(ctx, key, cmd); err != nil {
		s.logger.Error("Failed to enqueue ledger command",
			"type", cmd.Type,
			"idempotency_key", key,
			"correlation_id", cmd.CorrelationID,
			"error", err,
		)
		return err
	}

	s.logger.Info("Ledger command enqueued",
		"type", cmd.Type,
		"idempotency_key", key,
		"correlation_id", cmd.CorrelationID,
	)
	return nil
}
