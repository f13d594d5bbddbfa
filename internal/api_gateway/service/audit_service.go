package service

import (
	"context"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	ledgersvc "github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/ledger/service"
)

type AuditServiceImpl struct {
	verifier ledgersvc.InvariantVerifier
}

func NewAuditService(verifier ledgersvc.InvariantVerifier) AuditService {
	return &AuditServiceImpl{verifier: verifier}
}

// Audit returns the report even when the invariant fails; the error is then
// ErrLedgerInvariantViolation.
func (s *AuditServiceImpl) Audit(ctx context.Context) (*ledger.InvariantReport, error) {
	return s.verifier.Audit(ctx)
}
