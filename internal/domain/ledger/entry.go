package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Direction is the side of an entry. A credit raises the account's balance, a debit lowers it.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// Entry is one immutable line against one account. Entries are never updated or deleted.
type Entry struct {
	ID          uuid.UUID `json:"id" bson:"entry_id"`
	AccountID   uuid.UUID `json:"account_id" bson:"account_id"`
	TransferID  uuid.UUID `json:"transfer_id" bson:"transfer_id"`
	Direction   Direction `json:"direction" bson:"direction"`
	AmountCents int64     `json:"amount_cents" bson:"amount_cents"`
	Currency    string    `json:"currency" bson:"currency"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

func newEntry(accountID, transferID uuid.UUID, direction Direction, amount int64, currency string, at time.Time) *Entry {
	return &Entry{
		ID:          uuid.New(),
		AccountID:   accountID,
		TransferID:  transferID,
		Direction:   direction,
		AmountCents: amount,
		Currency:    currency,
		CreatedAt:   at,
	}
}

// SignedAmount is +amount for credits and -amount for debits.
func (e *Entry) SignedAmount() int64 {
	if e.Direction == DirectionDebit {
		return -e.AmountCents
	}
	return e.AmountCents
}

// SignedSum folds entries into the credit-minus-debit total.
func SignedSum(entries []*Entry) int64 {
	var sum int64
	for _, e := range entries {
		sum += e.SignedAmount()
	}
	return sum
}
