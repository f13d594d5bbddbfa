package ledger

import (
	"errors"

	"github.com/google/uuid"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/account"
)

var (
	ErrInvalidAmount            = errors.New("amount must be a positive number of cents")
	ErrSelfTransfer             = errors.New("source and destination accounts must differ")
	ErrCurrencyMismatch         = errors.New("account currency does not match transfer currency")
	ErrInvalidFeeSplit          = errors.New("platform fee must be between 0 and the gross amount")
	ErrAlreadyReversed          = errors.New("transfer has already been reversed")
	ErrMissingIdempotencyKey    = errors.New("idempotency key is required")
	ErrLedgerInvariantViolation = errors.New("ledger invariant violated: entries do not sum to zero")

	// ErrTransientConflict marks a write that lost a concurrency race without a visible winner.
	// Callers retry with the same idempotency key.
	ErrTransientConflict = errors.New("transient ledger conflict, retry the request")
)

// ErrTransferNotFound indicates missing transfer
type ErrTransferNotFound struct {
	TransferID uuid.UUID
}

func (e ErrTransferNotFound) Error() string {
	return "transfer not found: " + e.TransferID.String()
}

// Is matches any ErrTransferNotFound when the target carries no id.
func (e ErrTransferNotFound) Is(target error) bool {
	t, ok := target.(ErrTransferNotFound)
	if !ok {
		return false
	}
	if t.TransferID == uuid.Nil {
		return true
	}
	return e.TransferID == t.TransferID
}

// IsValidationError reports whether err is caused by the request itself and
// will fail the same way on every retry.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidAmount,
		ErrSelfTransfer,
		ErrCurrencyMismatch,
		ErrInvalidFeeSplit,
		ErrMissingIdempotencyKey,
		account.ErrInvalidCurrencyFormat,
		account.ErrInvalidAccountKind,
		account.ErrInvalidOwner,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsPermanent reports whether err is a final rejection: invalid input, a missing
// resource, or an already-reversed transfer. Anything else may succeed on retry.
func IsPermanent(err error) bool {
	return IsValidationError(err) ||
		errors.Is(err, ErrAlreadyReversed) ||
		errors.Is(err, ErrTransferNotFound{}) ||
		errors.Is(err, account.ErrAccountNotFound{})
}
