package ledger

import (
	"time"

	"github.com/google/uuid"
)

const EventTypeTransferPosted = "TransferPosted"

// Operation names the engine call that produced an event.
type Operation string

const (
	OperationTransfer Operation = "transfer"
	OperationReverse  Operation = "reverse"
	OperationSplit    Operation = "split"
)

// TransferPostedEvent is emitted once per committed engine call and carries
// every transfer and entry the call wrote.
type TransferPostedEvent struct {
	EventID        uuid.UUID   `json:"event_id"`
	EventType      string      `json:"event_type"`
	Operation      Operation   `json:"operation"`
	IdempotencyKey string      `json:"idempotency_key"`
	CorrelationID  string      `json:"correlation_id,omitempty"`
	Transfers      []*Transfer `json:"transfers"`
	Entries        []*Entry    `json:"entries"`
	OccurredAt     time.Time   `json:"occurred_at"`
}

func NewTransferPostedEvent(op Operation, idempotencyKey, correlationID string, posting *Posting, now time.Time) *TransferPostedEvent {
	return &TransferPostedEvent{
		EventID:        uuid.New(),
		EventType:      EventTypeTransferPosted,
		Operation:      op,
		IdempotencyKey: idempotencyKey,
		CorrelationID:  correlationID,
		Transfers:      posting.Transfers,
		Entries:        posting.Entries,
		OccurredAt:     now,
	}
}

// PrimaryTransferID is the id the outbox row is keyed on.
func (e *TransferPostedEvent) PrimaryTransferID() uuid.UUID {
	if len(e.Transfers) == 0 {
		return uuid.Nil
	}
	return e.Transfers[0].ID
}
