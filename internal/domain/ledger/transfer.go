package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/account"
)

// TransferStatus is the lifecycle state of a transfer. A committed transfer is always POSTED.
type TransferStatus string

const (
	TransferStatusPosted TransferStatus = "POSTED"
)

// Reference types attached to transfers written by the engine itself.
const (
	RefTypeReversal = "reversal"
	RefTypeProduct  = "product"
)

// Outcome tells the caller whether a call wrote new rows or replayed an earlier result.
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeExisting Outcome = "existing"
)

// Transfer groups the entries of one logical movement of value.
// Rows are immutable apart from the one-time ReversedByTransferID link.
type Transfer struct {
	ID                   uuid.UUID      `json:"id" bson:"transfer_id"`
	FromAccountID        uuid.UUID      `json:"from_account_id" bson:"from_account_id"`
	ToAccountID          uuid.UUID      `json:"to_account_id" bson:"to_account_id"`
	AmountCents          int64          `json:"amount_cents" bson:"amount_cents"`
	Currency             string         `json:"currency" bson:"currency"`
	Reason               string         `json:"reason" bson:"reason"`
	RefType              string         `json:"ref_type,omitempty" bson:"ref_type,omitempty"`
	RefID                string         `json:"ref_id,omitempty" bson:"ref_id,omitempty"`
	IdempotencyKey       string         `json:"idempotency_key" bson:"idempotency_key"`
	Status               TransferStatus `json:"status" bson:"status"`
	CreatedAt            time.Time      `json:"created_at" bson:"created_at"`
	ReversedByTransferID *uuid.UUID     `json:"reversed_by_transfer_id,omitempty" bson:"reversed_by_transfer_id,omitempty"`
}

func (t *Transfer) IsReversed() bool {
	return t.ReversedByTransferID != nil
}

// TransferRequest asks to move AmountCents from one account to another.
type TransferRequest struct {
	FromAccountID  uuid.UUID `json:"from_account_id"`
	ToAccountID    uuid.UUID `json:"to_account_id"`
	AmountCents    int64     `json:"amount_cents"`
	Currency       string    `json:"currency"`
	Reason         string    `json:"reason"`
	RefType        string    `json:"ref_type,omitempty"`
	RefID          string    `json:"ref_id,omitempty"`
	IdempotencyKey string    `json:"idempotency_key"`
	CorrelationID  string    `json:"correlation_id,omitempty"`
}

func (r TransferRequest) Validate() error {
	if r.AmountCents <= 0 {
		return ErrInvalidAmount
	}
	if r.FromAccountID == r.ToAccountID {
		return ErrSelfTransfer
	}
	if err := account.ValidateCurrency(r.Currency); err != nil {
		return err
	}
	if strings.TrimSpace(r.IdempotencyKey) == "" {
		return ErrMissingIdempotencyKey
	}
	return nil
}

// ReverseRequest asks to undo a prior transfer with an equal and opposite one.
type ReverseRequest struct {
	OriginalTransferID uuid.UUID `json:"original_transfer_id"`
	Reason             string    `json:"reason"`
	RefID              string    `json:"ref_id,omitempty"` // e.g. the refund id; defaults to the original transfer id
	IdempotencyKey     string    `json:"idempotency_key"`
	CorrelationID      string    `json:"correlation_id,omitempty"`
}

func (r ReverseRequest) Validate() error {
	if strings.TrimSpace(r.IdempotencyKey) == "" {
		return ErrMissingIdempotencyKey
	}
	return nil
}

// SplitRequest asks to charge a buyer the gross amount and divide it between
// the platform (fee) and the instructor (gross minus fee).
type SplitRequest struct {
	BuyerAccountID      uuid.UUID `json:"buyer_account_id"`
	InstructorAccountID uuid.UUID `json:"instructor_account_id"`
	PlatformAccountID   uuid.UUID `json:"platform_account_id"`
	GrossAmountCents    int64     `json:"gross_amount_cents"`
	PlatformFeeCents    int64     `json:"platform_fee_cents"`
	Currency            string    `json:"currency"`
	ProductID           string    `json:"product_id"`
	IdempotencyKey      string    `json:"idempotency_key"`
	CorrelationID       string    `json:"correlation_id,omitempty"`
}

func (r SplitRequest) Validate() error {
	if r.GrossAmountCents <= 0 {
		return ErrInvalidAmount
	}
	if r.PlatformFeeCents < 0 || r.PlatformFeeCents > r.GrossAmountCents {
		return ErrInvalidFeeSplit
	}
	if r.BuyerAccountID == r.InstructorAccountID || r.BuyerAccountID == r.PlatformAccountID {
		return ErrSelfTransfer
	}
	if err := account.ValidateCurrency(r.Currency); err != nil {
		return err
	}
	if strings.TrimSpace(r.IdempotencyKey) == "" {
		return ErrMissingIdempotencyKey
	}
	return nil
}

// NetAmountCents is what the instructor receives.
func (r SplitRequest) NetAmountCents() int64 {
	return r.GrossAmountCents - r.PlatformFeeCents
}

// FeeKey and NetKey derive the per-leg idempotency keys from the caller's key.
func (r SplitRequest) FeeKey() string { return r.IdempotencyKey + ":fee" }
func (r SplitRequest) NetKey() string { return r.IdempotencyKey + ":net" }

// TransferResult is returned by Transfer and ReverseTransfer.
type TransferResult struct {
	Transfer *Transfer `json:"transfer"`
	Entries  []*Entry  `json:"entries"`
	Outcome  Outcome   `json:"outcome"`
}

// SplitResult is returned by SplitTransfer. A leg with a zero amount is not
// written and is nil here.
type SplitResult struct {
	FeeTransfer *Transfer `json:"fee_transfer,omitempty"`
	NetTransfer *Transfer `json:"net_transfer,omitempty"`
	Entries     []*Entry  `json:"entries"`
	Outcome     Outcome   `json:"outcome"`
}

// Transfers lists the legs that exist, fee leg first.
func (r *SplitResult) Transfers() []*Transfer {
	var legs []*Transfer
	if r.FeeTransfer != nil {
		legs = append(legs, r.FeeTransfer)
	}
	if r.NetTransfer != nil {
		legs = append(legs, r.NetTransfer)
	}
	return legs
}

// Posting is a transfer together with the entries that realise it.
type Posting struct {
	Transfers []*Transfer
	Entries   []*Entry
}

// NewTransferPosting builds the transfer row and its debit/credit pair.
func NewTransferPosting(req TransferRequest, now time.Time) *Posting {
	t := &Transfer{
		ID:             uuid.New(),
		FromAccountID:  req.FromAccountID,
		ToAccountID:    req.ToAccountID,
		AmountCents:    req.AmountCents,
		Currency:       req.Currency,
		Reason:         req.Reason,
		RefType:        req.RefType,
		RefID:          req.RefID,
		IdempotencyKey: req.IdempotencyKey,
		Status:         TransferStatusPosted,
		CreatedAt:      now,
	}
	return &Posting{
		Transfers: []*Transfer{t},
		Entries: []*Entry{
			newEntry(t.FromAccountID, t.ID, DirectionDebit, t.AmountCents, t.Currency, now),
			newEntry(t.ToAccountID, t.ID, DirectionCredit, t.AmountCents, t.Currency, now),
		},
	}
}

// NewReversalPosting mirrors original: same amount and currency, accounts swapped.
func NewReversalPosting(original *Transfer, req ReverseRequest, now time.Time) *Posting {
	reason := req.Reason
	if reason == "" {
		reason = "reversal of " + original.ID.String()
	}
	refID := req.RefID
	if refID == "" {
		refID = original.ID.String()
	}
	return NewTransferPosting(TransferRequest{
		FromAccountID:  original.ToAccountID,
		ToAccountID:    original.FromAccountID,
		AmountCents:    original.AmountCents,
		Currency:       original.Currency,
		Reason:         reason,
		RefType:        RefTypeReversal,
		RefID:          refID,
		IdempotencyKey: req.IdempotencyKey,
	}, now)
}

// NewSplitPosting builds the fee and net legs and the three entries
// (buyer debit gross, platform credit fee, instructor credit net).
// Zero-amount legs are skipped along with their credit entry; the buyer
// debit is tied to the fee leg when it exists, otherwise to the net leg.
func NewSplitPosting(req SplitRequest, now time.Time) (fee *Transfer, net *Transfer, posting *Posting) {
	leg := func(to uuid.UUID, amount int64, key string) *Transfer {
		return &Transfer{
			ID:             uuid.New(),
			FromAccountID:  req.BuyerAccountID,
			ToAccountID:    to,
			AmountCents:    amount,
			Currency:       req.Currency,
			Reason:         "product sale",
			RefType:        RefTypeProduct,
			RefID:          req.ProductID,
			IdempotencyKey: key,
			Status:         TransferStatusPosted,
			CreatedAt:      now,
		}
	}

	posting = &Posting{}
	if req.PlatformFeeCents > 0 {
		fee = leg(req.PlatformAccountID, req.PlatformFeeCents, req.FeeKey())
		posting.Transfers = append(posting.Transfers, fee)
	}
	if req.NetAmountCents() > 0 {
		net = leg(req.InstructorAccountID, req.NetAmountCents(), req.NetKey())
		posting.Transfers = append(posting.Transfers, net)
	}

	debitLeg := fee
	if debitLeg == nil {
		debitLeg = net
	}
	posting.Entries = append(posting.Entries,
		newEntry(req.BuyerAccountID, debitLeg.ID, DirectionDebit, req.GrossAmountCents, req.Currency, now))
	if fee != nil {
		posting.Entries = append(posting.Entries,
			newEntry(req.PlatformAccountID, fee.ID, DirectionCredit, fee.AmountCents, req.Currency, now))
	}
	if net != nil {
		posting.Entries = append(posting.Entries,
			newEntry(req.InstructorAccountID, net.ID, DirectionCredit, net.AmountCents, req.Currency, now))
	}
	return fee, net, posting
}
