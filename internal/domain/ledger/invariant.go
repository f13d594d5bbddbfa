package ledger

import (
	"time"

	"github.com/google/uuid"
)

// CurrencyTotal aggregates every entry in one currency.
type CurrencyTotal struct {
	Currency    string `json:"currency"`
	CreditCents int64  `json:"credit_cents"`
	DebitCents  int64  `json:"debit_cents"`
	EntryCount  int64  `json:"entry_count"`
}

// NetCents is Σcredit − Σdebit. It is zero on a healthy ledger.
func (c CurrencyTotal) NetCents() int64 {
	return c.CreditCents - c.DebitCents
}

// InvariantReport is the result of one full-ledger audit.
type InvariantReport struct {
	Totals                  []CurrencyTotal `json:"totals"`
	UnbalancedCurrencies    []string        `json:"unbalanced_currencies"`
	TransfersWithoutEntries []uuid.UUID     `json:"transfers_without_entries"`
	CheckedAt               time.Time       `json:"checked_at"`
}

// Holds is true when every currency nets to zero and every transfer has entries.
func (r *InvariantReport) Holds() bool {
	return len(r.UnbalancedCurrencies) == 0 && len(r.TransfersWithoutEntries) == 0
}

// NewInvariantReport evaluates totals and orphan transfers into a report.
func NewInvariantReport(totals []CurrencyTotal, orphans []uuid.UUID, now time.Time) *InvariantReport {
	report := &InvariantReport{
		Totals:                  totals,
		UnbalancedCurrencies:    []string{},
		TransfersWithoutEntries: orphans,
		CheckedAt:               now,
	}
	if report.TransfersWithoutEntries == nil {
		report.TransfersWithoutEntries = []uuid.UUID{}
	}
	for _, t := range totals {
		if t.NetCents() != 0 {
			report.UnbalancedCurrencies = append(report.UnbalancedCurrencies, t.Currency)
		}
	}
	return report
}
