package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/outbox"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/shared"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/statement"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/platform/messaging/producers"
)

// EventPublisher delivers one outbox message to its downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, message *outbox.Message) error
}

// EventPublisherImpl projects the event into the statement read model, then
// publishes it to Kafka, then marks the outbox row PROCESSED. A failure at
// any step leaves the row PENDING; both sinks tolerate the replay.
type EventPublisherImpl struct {
	outboxRepo    outbox.Repository
	statementRepo statement.Repository
	producer      producers.MessagePublisher
	logger        *slog.Logger
	now           func() time.Time
}

func NewEventPublisher(
	outboxRepo outbox.Repository,
	statementRepo statement.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &EventPublisherImpl{
		outboxRepo:    outboxRepo,
		statementRepo: statementRepo,
		producer:      producer,
		logger:        logger,
		now:           time.Now,
	}
}

func (p *EventPublisherImpl) Publish(ctx context.Context, message *outbox.Message) error {
	event, err := message.GetEvent()
	if err != nil {
		p.logger.Error("Failed to decode event from outbox payload",
			"outbox_id", message.ID, "transfer_id", message.TransferID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Failed to mark undecodable outbox message", "outbox_id", message.ID, "error", updateErr)
		}
		return fmt.Errorf("decode payload for outbox %d: %w", message.ID, err)
	}

	logger := p.logger
	if event.CorrelationID != "" {
		logger = logger.With("correlation_id", event.CorrelationID)
	}

	if p.statementRepo != nil {
		upserted, err := p.statementRepo.Upsert(ctx, statement.LinesFromEvent(event, p.now().UTC()))
		if err != nil {
			return fmt.Errorf("project event %s into statements: %w", event.EventID, err)
		}
		logger.Debug("Projected event into statements", "event_id", event.EventID, "lines_upserted", upserted)
	}

	if p.producer != nil {
		if err := p.producer.Publish(ctx, message.TransferID.String(), event); err != nil {
			return fmt.Errorf("publish event %s: %w", event.EventID, err)
		}
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		return fmt.Errorf("event %s delivered, but failed to mark outbox %d as PROCESSED: %w", event.EventID, message.ID, err)
	}

	logger.Info("Outbox message delivered",
		"outbox_id", message.ID,
		"event_id", event.EventID,
		"operation", event.Operation,
		"transfer_id", message.TransferID,
	)
	return nil
}
