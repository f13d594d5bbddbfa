// Package audit runs the ledger invariant check on a cron schedule.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/ledger/service"
)

// Scheduler periodically audits the entry store. A violation is logged at
// error level and reflected in the ledger_invariant_holds gauge; nothing is
// repaired automatically.
type Scheduler struct {
	cron     *cron.Cron
	verifier service.InvariantVerifier
	logger   *slog.Logger
	schedule string
	timeout  time.Duration
}

func NewScheduler(verifier service.InvariantVerifier, schedule string, logger *slog.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		verifier: verifier,
		logger:   logger,
		schedule: schedule,
		timeout:  time.Minute,
	}
}

// Start registers the audit job. An empty schedule disables it.
func (s *Scheduler) Start() error {
	if s.schedule == "" {
		s.logger.Info("Ledger audit schedule not configured, audit disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, s.RunOnce); err != nil {
		return err
	}
	s.logger.Info("Scheduled ledger audit", "schedule", s.schedule)
	s.cron.Start()
	return nil
}

// Stop halts the scheduler; the returned context is done once a running audit finishes.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce performs a single audit.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	report, err := s.verifier.Audit(ctx)
	switch {
	case errors.Is(err, ledger.ErrLedgerInvariantViolation) && report != nil:
		s.logger.Error("Ledger invariant violated",
			"unbalanced_currencies", report.UnbalancedCurrencies,
			"transfers_without_entries", len(report.TransfersWithoutEntries),
			"duration", time.Since(started),
		)
	case err != nil:
		s.logger.Error("Ledger audit failed", "error", err)
	default:
		s.logger.Info("Ledger audit passed",
			"currencies", len(report.Totals),
			"duration", time.Since(started),
		)
	}
}
