package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/shared"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/ledger/service"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/platform/messaging/producers"
)

// CommandHandler decodes ledger command envelopes from Kafka and hands them
// to the command processor.
type CommandHandler struct {
	processor service.CommandProcessor
	producer  producers.DeadLetterPublisher
	logger    *slog.Logger
}

func NewCommandHandler(
	logger *slog.Logger,
	processor service.CommandProcessor,
	producer producers.DeadLetterPublisher,
) *CommandHandler {
	return &CommandHandler{
		processor: processor,
		producer:  producer,
		logger:    logger,
	}
}

// HandleMessage returns nil when the message may be committed. Bytes that
// are not a command envelope go to the dead letter topic; everything else is
// the processor's call.
func (h *CommandHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var cmd shared.LedgerCommand
	if err := json.Unmarshal(value, &cmd); err != nil {
		h.logger.Error("Failed to unmarshal ledger command",
			"error", err,
			"message_key", string(key),
		)
		if h.producer == nil {
			return fmt.Errorf("failed to unmarshal ledger command: %w", err)
		}
		reason := fmt.Sprintf("undecodable ledger command: %s", err.Error())
		if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
			h.logger.Error("Failed to publish message to DLQ",
				"dlq_error", dlqErr,
				"message_key", string(key),
			)
			return fmt.Errorf("failed to unmarshal ledger command: %w", err)
		}
		return nil
	}

	logger := h.logger
	if cmd.CorrelationID != "" {
		logger = logger.With("correlation_id", cmd.CorrelationID)
	}
	logger.Info("Received ledger command",
		"type", cmd.Type,
		"source", cmd.Source,
		"idempotency_key", cmd.IdempotencyKey(),
	)

	if err := h.processor.ProcessCommand(ctx, &cmd); err != nil {
		logger.Error("Failed to process ledger command", "type", cmd.Type, "error", err)
		return err
	}
	return nil
}
