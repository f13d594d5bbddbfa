package outbox

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/shared"
)

// Repository persists TransferPosted events until the poller has delivered
// them. Create runs inside the posting transaction via WithTx.
type Repository interface {
	Create(ctx context.Context, message *Message) error

	// GetPending returns up to limit PENDING messages, oldest first.
	GetPending(ctx context.Context, limit int) ([]*Message, error)

	// UpdateStatus and IncrementAttempts return ErrMessageNotFound for an unknown id.
	UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error
	IncrementAttempts(ctx context.Context, id int64) error

	WithTx(tx pgx.Tx) Repository
}

type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return "outbox message " + strconv.FormatInt(e.ID, 10) + " not found"
}
