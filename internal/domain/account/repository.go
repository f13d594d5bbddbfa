package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines account persistence operations
type Repository interface {
	// GetOrCreate returns the single account for acc's identity, inserting acc when none exists.
	// created reports whether this call inserted the row.
	GetOrCreate(ctx context.Context, acc *Account) (stored *Account, created bool, err error)
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByIdentity(ctx context.Context, ownerID *uuid.UUID, kind Kind, currency string) (*Account, error)

	// LockForShare share-locks the given accounts in id order and returns them keyed by id.
	// Missing ids surface as ErrAccountNotFound.
	LockForShare(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*Account, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

// Is matches any ErrAccountNotFound when the target carries no id.
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}
