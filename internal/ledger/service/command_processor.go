package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/account"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/shared"
)

type CommandProcessorImpl struct {
	engine   TransferEngine
	recorder RejectionRecorder
	logger   *slog.Logger
}

func NewCommandProcessor(engine TransferEngine, recorder RejectionRecorder, logger *slog.Logger) CommandProcessor {
	return &CommandProcessorImpl{
		engine:   engine,
		recorder: recorder,
		logger:   logger,
	}
}

// ProcessCommand applies one ledger command. Rejected commands are recorded
// and acknowledged (nil). Any other error is returned so the consumer retries the message.
func (p *CommandProcessorImpl) ProcessCommand(ctx context.Context, cmd *shared.LedgerCommand) error {
	logger := p.logger
	if cmd.CorrelationID != "" {
		logger = p.logger.With("correlation_id", cmd.CorrelationID)
	}

	logger.Info("Processing ledger command", "command_type", string(cmd.Type), "source", cmd.Source)

	if err := cmd.Validate(); err != nil {
		return p.reject(ctx, logger, cmd, shared.RejectionReasonMalformed, err)
	}

	var err error
	switch cmd.Type {
	case shared.CommandTypeTransfer:
		var req ledger.TransferRequest
		if err = json.Unmarshal(cmd.Body, &req); err != nil {
			return p.reject(ctx, logger, cmd, shared.RejectionReasonMalformed, err)
		}
		if req.CorrelationID == "" {
			req.CorrelationID = cmd.CorrelationID
		}
		var result *ledger.TransferResult
		if result, err = p.engine.Transfer(ctx, req); err == nil {
			logger.Info("Transfer command applied", "transfer_id", result.Transfer.ID.String(), "outcome", string(result.Outcome))
		}

	case shared.CommandTypeReverse:
		var req ledger.ReverseRequest
		if err = json.Unmarshal(cmd.Body, &req); err != nil {
			return p.reject(ctx, logger, cmd, shared.RejectionReasonMalformed, err)
		}
		if req.CorrelationID == "" {
			req.CorrelationID = cmd.CorrelationID
		}
		var result *ledger.TransferResult
		if result, err = p.engine.ReverseTransfer(ctx, req); err == nil {
			logger.Info("Reverse command applied", "transfer_id", result.Transfer.ID.String(), "outcome", string(result.Outcome))
		}

	case shared.CommandTypeSplit:
		var req ledger.SplitRequest
		if err = json.Unmarshal(cmd.Body, &req); err != nil {
			return p.reject(ctx, logger, cmd, shared.RejectionReasonMalformed, err)
		}
		if req.CorrelationID == "" {
			req.CorrelationID = cmd.CorrelationID
		}
		var result *ledger.SplitResult
		if result, err = p.engine.SplitTransfer(ctx, req); err == nil {
			logger.Info("Split command applied", "legs", len(result.Transfers()), "outcome", string(result.Outcome))
		}
	}

	if err == nil {
		return nil
	}
	if ledger.IsPermanent(err) {
		return p.reject(ctx, logger, cmd, RejectionReasonFor(err), err)
	}

	logger.Error("Ledger command failed, will be retried", "command_type", string(cmd.Type), "error", err)
	return fmt.Errorf("failed to process %s command: %w", cmd.Type, err)
}

func (p *CommandProcessorImpl) reject(ctx context.Context, logger *slog.Logger, cmd *shared.LedgerCommand, reason shared.RejectionReason, cause error) error {
	logger.Warn("Ledger command rejected", "command_type", string(cmd.Type), "reason", string(reason), "error", cause)

	if recordErr := p.recorder.RecordRejection(ctx, cmd, reason, cause); recordErr != nil {
		logger.Error("Failed to record rejected command", "reason", string(reason), "error", recordErr)
	}
	return nil
}

// RejectionReasonFor maps a permanent engine error to the reason stored with the rejection.
func RejectionReasonFor(err error) shared.RejectionReason {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		return shared.RejectionReasonInvalidAmount
	case errors.Is(err, ledger.ErrSelfTransfer):
		return shared.RejectionReasonSelfTransfer
	case errors.Is(err, ledger.ErrCurrencyMismatch):
		return shared.RejectionReasonCurrencyMismatch
	case errors.Is(err, ledger.ErrInvalidFeeSplit):
		return shared.RejectionReasonInvalidFeeSplit
	case errors.Is(err, ledger.ErrAlreadyReversed):
		return shared.RejectionReasonAlreadyReversed
	case errors.Is(err, ledger.ErrTransferNotFound{}):
		return shared.RejectionReasonTransferNotFound
	case errors.Is(err, account.ErrAccountNotFound{}):
		return shared.RejectionReasonAccountNotFound
	default:
		return shared.RejectionReasonInvalidRequest
	}
}
