package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidCurrencyFormat = errors.New("currency must be a 3-letter upper-case code")
	ErrInvalidAccountKind    = errors.New("invalid account kind")
	ErrInvalidOwner          = errors.New("platform accounts have no owner; every other kind requires one")
)

// Kind classifies who an account belongs to.
type Kind string

const (
	KindUser       Kind = "user"
	KindInstructor Kind = "instructor"
	KindPlatform   Kind = "platform"
	KindTransient  Kind = "transient"
)

func (k Kind) Valid() bool {
	switch k {
	case KindUser, KindInstructor, KindPlatform, KindTransient:
		return true
	}
	return false
}

// Account is a named bucket of value in one currency. It carries no balance;
// balances are always derived from entries.
type Account struct {
	ID        uuid.UUID  `json:"id"`
	OwnerID   *uuid.UUID `json:"owner_id,omitempty"`
	Kind      Kind       `json:"kind"`
	Currency  string     `json:"currency"`
	CreatedAt time.Time  `json:"created_at"`
}

// ValidateCurrency accepts exactly three upper-case ASCII letters.
func ValidateCurrency(currency string) error {
	if len(currency) != 3 {
		return ErrInvalidCurrencyFormat
	}
	for i := 0; i < len(currency); i++ {
		if currency[i] < 'A' || currency[i] > 'Z' {
			return ErrInvalidCurrencyFormat
		}
	}
	return nil
}

// ValidateIdentity checks the (owner, kind, currency) triple that identifies an account.
func ValidateIdentity(ownerID *uuid.UUID, kind Kind, currency string) error {
	if !kind.Valid() {
		return ErrInvalidAccountKind
	}
	if kind == KindPlatform && ownerID != nil {
		return ErrInvalidOwner
	}
	if kind != KindPlatform && (ownerID == nil || *ownerID == uuid.Nil) {
		return ErrInvalidOwner
	}
	return ValidateCurrency(currency)
}

// NewAccount builds an unsaved account for the given identity.
func NewAccount(ownerID *uuid.UUID, kind Kind, currency string) (*Account, error) {
	if err := ValidateIdentity(ownerID, kind, currency); err != nil {
		return nil, err
	}

	var owner *uuid.UUID
	if ownerID != nil {
		o := *ownerID
		owner = &o
	}

	return &Account{
		ID:        uuid.New(),
		OwnerID:   owner,
		Kind:      kind,
		Currency:  currency,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SameIdentity reports whether two accounts share owner, kind and currency.
func (a *Account) SameIdentity(ownerID *uuid.UUID, kind Kind, currency string) bool {
	if a.Kind != kind || a.Currency != currency {
		return false
	}
	if a.OwnerID == nil || ownerID == nil {
		return a.OwnerID == nil && ownerID == nil
	}
	return *a.OwnerID == *ownerID
}

// WithBalance pairs an account with its balance as derived from entries at read time.
type WithBalance struct {
	Account      *Account `json:"account"`
	BalanceCents int64    `json:"balance_cents"`
}
