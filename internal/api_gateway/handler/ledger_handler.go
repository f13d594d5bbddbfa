package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/api_gateway/service"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
)

type LedgerHandler struct {
	auditService service.AuditService
	logger       *slog.Logger
}

func NewLedgerHandler(logger *slog.Logger, auditService service.AuditService) *LedgerHandler {
	return &LedgerHandler{
		auditService: auditService,
		logger:       logger,
	}
}

// Invariant reports whether all entries sum to zero per currency. A failed
// check is still a successful request; the body carries holds=false.
func (h *LedgerHandler) Invariant(c *gin.Context) {
	report, err := h.auditService.Audit(c.Request.Context())
	switch {
	case err == nil:
	case errors.Is(err, ledger.ErrLedgerInvariantViolation) && report != nil:
		h.logger.Error("Ledger invariant violated",
			"unbalanced_currencies", report.UnbalancedCurrencies,
			"transfers_without_entries", len(report.TransfersWithoutEntries),
		)
	default:
		h.logger.Error("Failed to verify ledger invariant", "error", err)
		RespondInternalError(c)
		return
	}
	RespondOK(c, mapInvariantReport(report))
}
