package components

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/ledger/service"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/platform/metrics"
)

// orphanScanLimit caps how many entry-less transfers one report lists.
const orphanScanLimit = 100

type InvariantVerifierImpl struct {
	entryRepo ledger.EntryRepository
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewInvariantVerifier(entryRepo ledger.EntryRepository, m *metrics.Metrics, logger *slog.Logger) service.InvariantVerifier {
	return &InvariantVerifierImpl{
		entryRepo: entryRepo,
		metrics:   m,
		logger:    logger,
	}
}

// VerifyLedgerInvariant reports whether every currency's entries net to zero.
func (v *InvariantVerifierImpl) VerifyLedgerInvariant(ctx context.Context) (bool, error) {
	totals, err := v.entryRepo.TotalsByCurrency(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range totals {
		if t.NetCents() != 0 {
			return false, nil
		}
	}
	return true, nil
}

// Verify builds a full report. It never repairs anything.
func (v *InvariantVerifierImpl) Verify(ctx context.Context) (*ledger.InvariantReport, error) {
	totals, err := v.entryRepo.TotalsByCurrency(ctx)
	if err != nil {
		return nil, err
	}
	orphans, err := v.entryRepo.TransfersWithoutEntries(ctx, orphanScanLimit)
	if err != nil {
		return nil, err
	}

	report := ledger.NewInvariantReport(totals, orphans, time.Now().UTC())
	for _, t := range report.Totals {
		v.metrics.SetInvariantHolds(t.Currency, t.NetCents() == 0)
	}
	return report, nil
}

// Audit wraps Verify and turns a failed check into ErrLedgerInvariantViolation.
// Reporting is left to the caller.
func (v *InvariantVerifierImpl) Audit(ctx context.Context) (*ledger.InvariantReport, error) {
	report, err := v.Verify(ctx)
	if err != nil {
		return nil, err
	}

	v.logger.Debug("Ledger audit finished",
		"holds", report.Holds(),
		"currencies", len(report.Totals),
	)
	if !report.Holds() {
		return report, fmt.Errorf("%w: unbalanced=%v orphans=%d", ledger.ErrLedgerInvariantViolation,
			report.UnbalancedCurrencies, len(report.TransfersWithoutEntries))
	}
	return report, nil
}
