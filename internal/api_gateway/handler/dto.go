package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/account"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/statement"
)

// Amounts travel as integer cents. Responses also carry a major-unit string
// rendered with two decimal places for display.

type OpenAccountRequest struct {
	OwnerID  string `json:"owner_id" binding:"omitempty,uuid"`
	Kind     string `json:"kind" binding:"required,oneof=user instructor platform transient"`
	Currency string `json:"currency" binding:"required,len=3"`
}

type CreateTransferRequest struct {
	FromAccountID  string `json:"from_account_id" binding:"required,uuid"`
	ToAccountID    string `json:"to_account_id" binding:"required,uuid"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency" binding:"required"`
	Reason         string `json:"reason"`
	RefType        string `json:"ref_type"`
	RefID          string `json:"ref_id"`
	IdempotencyKey string `json:"idempotency_key"`
}

type SplitTransferRequest struct {
	BuyerAccountID      string `json:"buyer_account_id" binding:"required,uuid"`
	InstructorAccountID string `json:"instructor_account_id" binding:"required,uuid"`
	PlatformAccountID   string `json:"platform_account_id" binding:"required,uuid"`
	GrossAmountCents    int64  `json:"gross_amount_cents"`
	PlatformFeeCents    int64  `json:"platform_fee_cents"`
	Currency            string `json:"currency" binding:"required"`
	ProductID           string `json:"product_id"`
	IdempotencyKey      string `json:"idempotency_key"`
}

type ReverseTransferRequest struct {
	Reason         string `json:"reason"`
	RefID          string `json:"ref_id"`
	IdempotencyKey string `json:"idempotency_key"`
}

type AccountResponse struct {
	ID           string  `json:"id"`
	OwnerID      *string `json:"owner_id,omitempty"`
	Kind         string  `json:"kind"`
	Currency     string  `json:"currency"`
	BalanceCents *int64  `json:"balance_cents,omitempty"`
	Balance      string  `json:"balance,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

type EntryResponse struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	TransferID  string `json:"transfer_id"`
	Direction   string `json:"direction"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	CreatedAt   string `json:"created_at"`
}

type TransferResponse struct {
	ID                   string          `json:"id"`
	FromAccountID        string          `json:"from_account_id"`
	ToAccountID          string          `json:"to_account_id"`
	AmountCents          int64           `json:"amount_cents"`
	Amount               string          `json:"amount"`
	Currency             string          `json:"currency"`
	Reason               string          `json:"reason,omitempty"`
	RefType              string          `json:"ref_type,omitempty"`
	RefID                string          `json:"ref_id,omitempty"`
	IdempotencyKey       string          `json:"idempotency_key"`
	Status               string          `json:"status"`
	ReversedByTransferID string          `json:"reversed_by_transfer_id,omitempty"`
	CreatedAt            string          `json:"created_at"`
	Entries              []EntryResponse `json:"entries,omitempty"`
}

type TransferResultResponse struct {
	Outcome  string           `json:"outcome"`
	Transfer TransferResponse `json:"transfer"`
}

type SplitResultResponse struct {
	Outcome     string            `json:"outcome"`
	FeeTransfer *TransferResponse `json:"fee_transfer,omitempty"`
	NetTransfer *TransferResponse `json:"net_transfer,omitempty"`
}

type StatementLineResponse struct {
	EntryID               string `json:"entry_id"`
	TransferID            string `json:"transfer_id"`
	CounterpartyAccountID string `json:"counterparty_account_id"`
	Direction             string `json:"direction"`
	AmountCents           int64  `json:"amount_cents"`
	Amount                string `json:"amount"`
	Currency              string `json:"currency"`
	Reason                string `json:"reason,omitempty"`
	Operation             string `json:"operation"`
	PostedAt              string `json:"posted_at"`
}

type CurrencyTotalResponse struct {
	Currency    string `json:"currency"`
	DebitCents  int64  `json:"debit_cents"`
	CreditCents int64  `json:"credit_cents"`
	NetCents    int64  `json:"net_cents"`
	EntryCount  int64  `json:"entry_count"`
}

type InvariantResponse struct {
	Holds                   bool                    `json:"holds"`
	Totals                  []CurrencyTotalResponse `json:"totals"`
	UnbalancedCurrencies    []string                `json:"unbalanced_currencies"`
	TransfersWithoutEntries []string                `json:"transfers_without_entries"`
	CheckedAt               string                  `json:"checked_at"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

func formatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func mapAccount(acc *account.Account) AccountResponse {
	resp := AccountResponse{
		ID:        acc.ID.String(),
		Kind:      string(acc.Kind),
		Currency:  acc.Currency,
		CreatedAt: formatTime(acc.CreatedAt),
	}
	if acc.OwnerID != nil {
		owner := acc.OwnerID.String()
		resp.OwnerID = &owner
	}
	return resp
}

func mapAccountWithBalance(wb *account.WithBalance) AccountResponse {
	resp := mapAccount(wb.Account)
	balance := wb.BalanceCents
	resp.BalanceCents = &balance
	resp.Balance = formatCents(balance)
	return resp
}

func mapEntry(e *ledger.Entry) EntryResponse {
	return EntryResponse{
		ID:          e.ID.String(),
		AccountID:   e.AccountID.String(),
		TransferID:  e.TransferID.String(),
		Direction:   string(e.Direction),
		AmountCents: e.AmountCents,
		Amount:      formatCents(e.AmountCents),
		Currency:    e.Currency,
		CreatedAt:   formatTime(e.CreatedAt),
	}
}

func mapEntries(entries []*ledger.Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, mapEntry(e))
	}
	return out
}

func mapTransfer(t *ledger.Transfer, entries []*ledger.Entry) TransferResponse {
	resp := TransferResponse{
		ID:             t.ID.String(),
		FromAccountID:  t.FromAccountID.String(),
		ToAccountID:    t.ToAccountID.String(),
		AmountCents:    t.AmountCents,
		Amount:         formatCents(t.AmountCents),
		Currency:       t.Currency,
		Reason:         t.Reason,
		RefType:        t.RefType,
		RefID:          t.RefID,
		IdempotencyKey: t.IdempotencyKey,
		Status:         string(t.Status),
		CreatedAt:      formatTime(t.CreatedAt),
	}
	if t.ReversedByTransferID != nil {
		resp.ReversedByTransferID = t.ReversedByTransferID.String()
	}
	if len(entries) > 0 {
		resp.Entries = mapEntries(entries)
	}
	return resp
}

// entriesOf picks the entries that belong to transfer t.
func entriesOf(t *ledger.Transfer, entries []*ledger.Entry) []*ledger.Entry {
	var out []*ledger.Entry
	for _, e := range entries {
		if e.TransferID == t.ID {
			out = append(out, e)
		}
	}
	return out
}

func mapSplitResult(r *ledger.SplitResult) SplitResultResponse {
	resp := SplitResultResponse{Outcome: string(r.Outcome)}
	if r.FeeTransfer != nil {
		fee := mapTransfer(r.FeeTransfer, entriesOf(r.FeeTransfer, r.Entries))
		resp.FeeTransfer = &fee
	}
	if r.NetTransfer != nil {
		net := mapTransfer(r.NetTransfer, entriesOf(r.NetTransfer, r.Entries))
		resp.NetTransfer = &net
	}
	return resp
}

func mapStatementLine(l *statement.Line) StatementLineResponse {
	return StatementLineResponse{
		EntryID:               l.EntryID.String(),
		TransferID:            l.TransferID.String(),
		CounterpartyAccountID: l.CounterpartyAccountID.String(),
		Direction:             string(l.Direction),
		AmountCents:           l.AmountCents,
		Amount:                formatCents(l.AmountCents),
		Currency:              l.Currency,
		Reason:                l.Reason,
		Operation:             string(l.Operation),
		PostedAt:              formatTime(l.PostedAt),
	}
}

func mapInvariantReport(r *ledger.InvariantReport) InvariantResponse {
	resp := InvariantResponse{
		Holds:                   r.Holds(),
		Totals:                  make([]CurrencyTotalResponse, 0, len(r.Totals)),
		UnbalancedCurrencies:    r.UnbalancedCurrencies,
		TransfersWithoutEntries: make([]string, 0, len(r.TransfersWithoutEntries)),
		CheckedAt:               formatTime(r.CheckedAt),
	}
	if resp.UnbalancedCurrencies == nil {
		resp.UnbalancedCurrencies = []string{}
	}
	for _, t := range r.Totals {
		resp.Totals = append(resp.Totals, CurrencyTotalResponse{
			Currency:    t.Currency,
			DebitCents:  t.DebitCents,
			CreditCents: t.CreditCents,
			NetCents:    t.NetCents(),
			EntryCount:  t.EntryCount,
		})
	}
	for _, id := range r.TransfersWithoutEntries {
		resp.TransfersWithoutEntries = append(resp.TransfersWithoutEntries, id.String())
	}
	return resp
}
