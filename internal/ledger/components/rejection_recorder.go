package components

import (
	"context"
	"log/slog"
	"time"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/rejection"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/shared"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/ledger/service"
)

type RejectionRecorderImpl struct {
	rejectionRepo rejection.Repository
	logger        *slog.Logger
	now           func() time.Time
}

func NewRejectionRecorder(rejectionRepo rejection.Repository, logger *slog.Logger) service.RejectionRecorder {
	return &RejectionRecorderImpl{
		rejectionRepo: rejectionRepo,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// RecordRejection stores a rejected command. A command redelivered under the
// same idempotency key is recorded once.
func (r *RejectionRecorderImpl) RecordRejection(ctx context.Context, cmd *shared.LedgerCommand, reason shared.RejectionReason, cause error) error {
	logger := r.logger
	if cmd.CorrelationID != "" {
		logger = r.logger.With("correlation_id", cmd.CorrelationID)
	}

	key := cmd.IdempotencyKey()
	logger.Info("Recording rejected command", "command_type", string(cmd.Type), "idempotency_key", key, "reason", string(reason))

	existing, err := r.rejectionRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		logger.Error("Failed to look up existing rejection", "idempotency_key", key, "error", err)
	}
	if existing != nil {
		logger.Info("Rejection already recorded", "idempotency_key", key, "rejection_id", existing.ID.String())
		return nil
	}

	detail := ""
	if cause != nil {
		detail = cause.Error()
	}

	rej := rejection.New(cmd, reason, detail, r.now())
	if err := r.rejectionRepo.Create(ctx, rej); err != nil {
		logger.Error("Failed to record rejection", "idempotency_key", key, "error", err)
		return err
	}
	logger.Info("Rejection recorded", "rejection_id", rej.ID.String())
	return nil
}
