package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/api_gateway/middleware"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/account"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/platform/persistence"
)

// Response represents a standard API response
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type MetaInfo struct {
	Page       int   `json:"page,omitempty"`
	PerPage    int   `json:"per_page,omitempty"`
	TotalPages int64 `json:"total_pages"`
	TotalItems int64 `json:"total_items"`
}

// retryAfterSeconds is sent with 503 answers to transient ledger conflicts.
const retryAfterSeconds = 1

func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, &Response{
		Data:          data,
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, &Response{
		Error:         &ErrorInfo{Code: code, Message: message},
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

func RespondWithPaginatedData(c *gin.Context, data interface{}, page, perPage int, totalItems int64) {
	totalPages := totalItems / int64(perPage)
	if totalItems%int64(perPage) > 0 {
		totalPages++
	}
	c.JSON(http.StatusOK, &Response{
		Data:          data,
		CorrelationID: middleware.GetCorrelationID(c),
		Meta: &MetaInfo{
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
			TotalItems: totalItems,
		},
	})
}

func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

func RespondAccepted(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusAccepted, data)
}

func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", message)
}

func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}

// RespondOutcome answers 201 for a fresh posting and 200 for an idempotent replay.
func RespondOutcome(c *gin.Context, outcome ledger.Outcome, data interface{}) {
	if outcome == ledger.OutcomeCreated {
		RespondCreated(c, data)
		return
	}
	RespondOK(c, data)
}

// RespondLedgerError maps ledger and account errors onto HTTP statuses. It
// reports whether the error was a known one; unknown errors get a 500.
func RespondLedgerError(c *gin.Context, err error) bool {
	var (
		transferNotFound ledger.ErrTransferNotFound
		accountNotFound  account.ErrAccountNotFound
	)

	switch {
	case errors.Is(err, ledger.ErrMissingIdempotencyKey),
		errors.Is(err, account.ErrInvalidCurrencyFormat),
		errors.Is(err, account.ErrInvalidAccountKind),
		errors.Is(err, account.ErrInvalidOwner):
		RespondBadRequest(c, err.Error())
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrSelfTransfer),
		errors.Is(err, ledger.ErrCurrencyMismatch),
		errors.Is(err, ledger.ErrInvalidFeeSplit):
		RespondWithError(c, http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY", err.Error())
	case errors.As(err, &transferNotFound):
		RespondNotFound(c, "Transfer not found")
	case errors.As(err, &accountNotFound):
		RespondNotFound(c, "Account not found")
	case errors.Is(err, ledger.ErrAlreadyReversed):
		RespondWithError(c, http.StatusConflict, "ALREADY_REVERSED", err.Error())
	case errors.Is(err, ledger.ErrTransientConflict), persistence.IsSerializationFailure(err):
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		RespondWithError(c, http.StatusServiceUnavailable, "TRANSIENT_CONFLICT", "The ledger is busy, retry with the same idempotency key")
	default:
		RespondInternalError(c)
		return false
	}
	return true
}
