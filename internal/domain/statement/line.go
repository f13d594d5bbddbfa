// Package statement describes the per-account statement read model that is
// projected from TransferPosted events. It is never used to compute balances.
package statement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
)

// Line is one entry as shown on an account statement.
type Line struct {
	EntryID               uuid.UUID        `json:"entry_id" bson:"_id"`
	AccountID             uuid.UUID        `json:"account_id" bson:"account_id"`
	TransferID            uuid.UUID        `json:"transfer_id" bson:"transfer_id"`
	CounterpartyAccountID uuid.UUID        `json:"counterparty_account_id" bson:"counterparty_account_id"`
	Direction             ledger.Direction `json:"direction" bson:"direction"`
	AmountCents           int64            `json:"amount_cents" bson:"amount_cents"`
	Currency              string           `json:"currency" bson:"currency"`
	Reason                string           `json:"reason,omitempty" bson:"reason,omitempty"`
	RefType               string           `json:"ref_type,omitempty" bson:"ref_type,omitempty"`
	RefID                 string           `json:"ref_id,omitempty" bson:"ref_id,omitempty"`
	Operation             ledger.Operation `json:"operation" bson:"operation"`
	EventID               uuid.UUID        `json:"event_id" bson:"event_id"`
	PostedAt              time.Time        `json:"posted_at" bson:"posted_at"`
	ProjectedAt           time.Time        `json:"projected_at" bson:"projected_at"`
}

// LinesFromEvent turns every entry of the event into a statement line.
// Entries whose transfer is missing from the event are skipped.
func LinesFromEvent(event *ledger.TransferPostedEvent, now time.Time) []*Line {
	transfers := make(map[uuid.UUID]*ledger.Transfer, len(event.Transfers))
	for _, t := range event.Transfers {
		transfers[t.ID] = t
	}

	lines := make([]*Line, 0, len(event.Entries))
	for _, e := range event.Entries {
		t, ok := transfers[e.TransferID]
		if !ok {
			continue
		}
		counterparty := t.ToAccountID
		if e.AccountID == t.ToAccountID {
			counterparty = t.FromAccountID
		}
		lines = append(lines, &Line{
			EntryID:               e.ID,
			AccountID:             e.AccountID,
			TransferID:            e.TransferID,
			CounterpartyAccountID: counterparty,
			Direction:             e.Direction,
			AmountCents:           e.AmountCents,
			Currency:              e.Currency,
			Reason:                t.Reason,
			RefType:               t.RefType,
			RefID:                 t.RefID,
			Operation:             event.Operation,
			EventID:               event.EventID,
			PostedAt:              e.CreatedAt,
			ProjectedAt:           now,
		})
	}
	return lines
}

// Repository stores statement lines. Upsert is keyed on the entry id, so
// replaying an event leaves the projection unchanged.
type Repository interface {
	Upsert(ctx context.Context, lines []*Line) (upserted int64, err error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Line, error)
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
}
