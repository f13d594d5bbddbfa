// Package rejection records ledger commands that were refused for good.
package rejection

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/shared"
)

type Rejection struct {
	ID             uuid.UUID              `json:"id" bson:"_id"`
	CommandType    shared.CommandType     `json:"command_type" bson:"command_type"`
	Source         string                 `json:"source,omitempty" bson:"source,omitempty"`
	CorrelationID  string                 `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	IdempotencyKey string                 `json:"idempotency_key,omitempty" bson:"idempotency_key,omitempty"`
	Reason         shared.RejectionReason `json:"reason" bson:"reason"`
	Detail         string                 `json:"detail" bson:"detail"`
	Payload        string                 `json:"payload" bson:"payload"`
	RejectedAt     time.Time              `json:"rejected_at" bson:"rejected_at"`
}

func New(cmd *shared.LedgerCommand, reason shared.RejectionReason, detail string, now time.Time) *Rejection {
	return &Rejection{
		ID:             uuid.New(),
		CommandType:    cmd.Type,
		Source:         cmd.Source,
		CorrelationID:  cmd.CorrelationID,
		IdempotencyKey: cmd.IdempotencyKey(),
		Reason:         reason,
		Detail:         detail,
		Payload:        string(cmd.Body),
		RejectedAt:     now,
	}
}

type Repository interface {
	Create(ctx context.Context, r *Rejection) error

	// GetByIdempotencyKey returns nil, nil when no rejection carries the key.
	GetByIdempotencyKey(ctx context.Context, key string) (*Rejection, error)
}
