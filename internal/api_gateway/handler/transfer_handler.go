package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/api_gateway/middleware"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/api_gateway/service"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/shared"
)

// IdempotencyKeyHeader may carry the key instead of the request body.
const IdempotencyKeyHeader = "Idempotency-Key"

// TransferHandler handles HTTP requests for transfer operations
type TransferHandler struct {
	transferService service.TransferService
	logger          *slog.Logger
}

func NewTransferHandler(logger *slog.Logger, transferService service.TransferService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
		logger:          logger,
	}
}

// Create posts a single transfer. 201 when posted, 200 when the key was already used.
func (h *TransferHandler) Create(c *gin.Context) {
	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	key, ok := resolveIdempotencyKey(c, req.IdempotencyKey)
	if !ok {
		return
	}

	result, err := h.transferService.Transfer(c.Request.Context(), ledger.TransferRequest{
		FromAccountID:  uuid.MustParse(req.FromAccountID),
		ToAccountID:    uuid.MustParse(req.ToAccountID),
		AmountCents:    req.AmountCents,
		Currency:       req.Currency,
		Reason:         req.Reason,
		RefType:        req.RefType,
		RefID:          req.RefID,
		IdempotencyKey: key,
		CorrelationID:  correlationID(c),
	})
	if err != nil {
		h.respondError(c, "transfer", key, err)
		return
	}
	RespondOutcome(c, result.Outcome, TransferResultResponse{
		Outcome:  string(result.Outcome),
		Transfer: mapTransfer(result.Transfer, result.Entries),
	})
}

// Split charges the buyer and divides the gross between platform and instructor.
func (h *TransferHandler) Split(c *gin.Context) {
	var req SplitTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	key, ok := resolveIdempotencyKey(c, req.IdempotencyKey)
	if !ok {
		return
	}

	result, err := h.transferService.Split(c.Request.Context(), ledger.SplitRequest{
		BuyerAccountID:      uuid.MustParse(req.BuyerAccountID),
		InstructorAccountID: uuid.MustParse(req.InstructorAccountID),
		PlatformAccountID:   uuid.MustParse(req.PlatformAccountID),
		GrossAmountCents:    req.GrossAmountCents,
		PlatformFeeCents:    req.PlatformFeeCents,
		Currency:            req.Currency,
		ProductID:           req.ProductID,
		IdempotencyKey:      key,
		CorrelationID:       correlationID(c),
	})
	if err != nil {
		h.respondError(c, "split", key, err)
		return
	}
	RespondOutcome(c, result.Outcome, mapSplitResult(result))
}

// Reverse posts the equal and opposite transfer of :id.
func (h *TransferHandler) Reverse(c *gin.Context) {
	id, ok := parseID(c, "Invalid transfer ID")
	if !ok {
		return
	}
	var req ReverseTransferRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}
	key, ok := resolveIdempotencyKey(c, req.IdempotencyKey)
	if !ok {
		return
	}

	result, err := h.transferService.Reverse(c.Request.Context(), ledger.ReverseRequest{
		OriginalTransferID: id,
		Reason:             req.Reason,
		RefID:              req.RefID,
		IdempotencyKey:     key,
		CorrelationID:      correlationID(c),
	})
	if err != nil {
		h.respondError(c, "reverse", key, err)
		return
	}
	RespondOutcome(c, result.Outcome, TransferResultResponse{
		Outcome:  string(result.Outcome),
		Transfer: mapTransfer(result.Transfer, result.Entries),
	})
}

func (h *TransferHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "Invalid transfer ID")
	if !ok {
		return
	}

	t, entries, err := h.transferService.GetTransfer(c.Request.Context(), id)
	if err != nil {
		if !RespondLedgerError(c, err) {
			h.logger.Error("Failed to get transfer", "transfer_id", id.String(), "error", err)
		}
		return
	}
	RespondOK(c, mapTransfer(t, entries))
}

// EnqueueCommand accepts a command envelope for the transfer processor and answers 202.
func (h *TransferHandler) EnqueueCommand(c *gin.Context) {
	var cmd shared.LedgerCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		RespondBadRequest(c, "Invalid command envelope: "+err.Error())
		return
	}
	if cmd.CorrelationID == "" {
		cmd.CorrelationID = correlationID(c)
	}
	if cmd.Source == "" {
		cmd.Source = c.GetString(middleware.CallerKey)
	}
	if cmd.Timestamp.IsZero() {
		cmd.Timestamp = time.Now().UTC()
	}

	if err := h.transferService.EnqueueCommand(c.Request.Context(), &cmd); err != nil {
		switch {
		case errors.Is(err, shared.ErrInvalidCommandType), errors.Is(err, shared.ErrEmptyCommandBody):
			RespondBadRequest(c, err.Error())
		case errors.Is(err, service.ErrCommandQueueUnavailable):
			RespondWithError(c, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE", err.Error())
		default:
			if !RespondLedgerError(c, err) {
				h.logger.Error("Failed to enqueue command", "type", cmd.Type, "error", err)
			}
		}
		return
	}

	RespondAccepted(c, gin.H{
		"type":            cmd.Type,
		"idempotency_key": cmd.IdempotencyKey(),
		"status":          "QUEUED",
	})
}

func (h *TransferHandler) respondError(c *gin.Context, op, key string, err error) {
	if RespondLedgerError(c, err) {
		h.logger.Warn("Transfer rejected",
			"operation", op,
			"idempotency_key", key,
			"correlation_id", correlationID(c),
			"error", err,
		)
		return
	}
	h.logger.Error("Transfer failed",
		"operation", op,
		"idempotency_key", key,
		"correlation_id", correlationID(c),
		"error", err,
	)
}

// resolveIdempotencyKey takes the key from the body or the Idempotency-Key
// header. Both may be present only if they agree.
func resolveIdempotencyKey(c *gin.Context, bodyKey string) (string, bool) {
	headerKey := c.GetHeader(IdempotencyKeyHeader)
	switch {
	case bodyKey != "" && headerKey != "" && bodyKey != headerKey:
		RespondBadRequest(c, "Idempotency-Key header and idempotency_key body field differ")
		return "", false
	case bodyKey != "":
		return bodyKey, true
	default:
		// An empty key is left to the engine, which rejects it.
		return headerKey, true
	}
}

func parseID(c *gin.Context, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, message)
		return uuid.Nil, false
	}
	return id, true
}

func correlationID(c *gin.Context) string {
	return middleware.GetCorrelationID(c)
}
