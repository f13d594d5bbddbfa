package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/api_gateway/service"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/account"
)

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

func NewAccountHandler(logger *slog.Logger, accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// Open returns the account for (owner, kind, currency), creating it on first use.
func (h *AccountHandler) Open(c *gin.Context) {
	var req OpenAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	var ownerID *uuid.UUID
	if req.OwnerID != "" {
		id, err := uuid.Parse(req.OwnerID)
		if err != nil {
			RespondBadRequest(c, "Invalid owner ID")
			return
		}
		ownerID = &id
	}

	acc, err := h.accountService.OpenAccount(c.Request.Context(), ownerID, account.Kind(req.Kind), req.Currency)
	if err != nil {
		if !RespondLedgerError(c, err) {
			h.logger.Error("Failed to open account", "error", err, "correlation_id", correlationID(c))
		}
		return
	}
	RespondOK(c, mapAccount(acc))
}

func (h *AccountHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "Invalid account ID")
	if !ok {
		return
	}

	wb, err := h.accountService.GetAccount(c.Request.Context(), id)
	if err != nil {
		if !RespondLedgerError(c, err) {
			h.logger.Error("Failed to get account", "account_id", id.String(), "error", err)
		}
		return
	}
	RespondOK(c, mapAccountWithBalance(wb))
}

func (h *AccountHandler) ListEntries(c *gin.Context) {
	id, ok := parseID(c, "Invalid account ID")
	if !ok {
		return
	}
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.accountService.ListEntries(c.Request.Context(), id, pagination.Page, pagination.PerPage)
	if err != nil {
		if !RespondLedgerError(c, err) {
			h.logger.Error("Failed to list entries", "account_id", id.String(), "error", err)
		}
		return
	}
	RespondWithPaginatedData(c, mapEntries(entries), pagination.Page, pagination.PerPage, total)
}

func (h *AccountHandler) ListStatement(c *gin.Context) {
	id, ok := parseID(c, "Invalid account ID")
	if !ok {
		return
	}
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	lines, total, err := h.accountService.ListStatement(c.Request.Context(), id, pagination.Page, pagination.PerPage)
	if err != nil {
		if !RespondLedgerError(c, err) {
			h.logger.Error("Failed to list statement", "account_id", id.String(), "error", err)
		}
		return
	}

	out := make([]StatementLineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, mapStatementLine(l))
	}
	RespondWithPaginatedData(c, out, pagination.Page, pagination.PerPage, total)
}
