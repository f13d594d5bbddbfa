package shared

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrInvalidCommandType = errors.New("invalid command type")
	ErrEmptyCommandBody   = errors.New("command body is empty")
)

// LedgerCommand is the Kafka envelope other services (checkout, refunds, payouts)
// use to ask the ledger for a transfer, reversal or split. Body holds the
// operation-specific request.
type LedgerCommand struct {
	Type          CommandType     `json:"type"`
	Source        string          `json:"source,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Body          json.RawMessage `json:"body"`
	Timestamp     time.Time       `json:"timestamp"`
}

func (c *LedgerCommand) Validate() error {
	if !c.Type.Valid() {
		return ErrInvalidCommandType
	}
	if len(c.Body) == 0 || string(c.Body) == "null" {
		return ErrEmptyCommandBody
	}
	return nil
}

// IdempotencyKey extracts the idempotency key from the command body, if any.
func (c *LedgerCommand) IdempotencyKey() string {
	var body struct {
		IdempotencyKey string `json:"idempotency_key"`
	}
	if err := json.Unmarshal(c.Body, &body); err != nil {
		return ""
	}
	return body.IdempotencyKey
}
