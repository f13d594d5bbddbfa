package components

import (
	"context"
	"errors"
	"testing"

	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/account"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
)

type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) GetOrCreate(ctx context.Context, acc *account.Account) (*account.Account, bool, error) {
	args := m.Called(ctx, acc)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*account.Account), args.Bool(1), args.Error(2)
}

func (m *MockAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) GetByIdentity(ctx context.Context, ownerID *uuid.UUID, kind account.Kind, currency string) (*account.Account, error) {
	args := m.Called(ctx, ownerID, kind, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) LockForShare(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*account.Account, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*account.Account), args.Error(1)
}

func (m *MockAccountRepo) WithTx(tx pgx.Tx) account.Repository {
	args := m.Called(tx)
	return args.Get(0).(account.Repository)
}

func TestAccountManager_LockAccounts(t *testing.T) {
	owner := uuid.New()
	usd := &account.Account{ID: uuid.New(), OwnerID: &owner, Kind: account.KindUser, Currency: "USD"}
	usd2 := &account.Account{ID: uuid.New(), OwnerID: &owner, Kind: account.KindInstructor, Currency: "USD"}
	eur := &account.Account{ID: uuid.New(), OwnerID: &owner, Kind: account.KindUser, Currency: "EUR"}

	tests := []struct {
		name          string
		ids           []uuid.UUID
		setupMocks    func(repo *MockAccountRepo)
		expectedError error
		expectLocked  int
	}{
		{
			name: "locks matching accounts",
			ids:  []uuid.UUID{usd.ID, usd2.ID},
			setupMocks: func(repo *MockAccountRepo) {
				repo.On("WithTx", mock.Anything).Return(repo)
				repo.On("LockForShare", mock.Anything, []uuid.UUID{usd.ID, usd2.ID}).
					Return(map[uuid.UUID]*account.Account{usd.ID: usd, usd2.ID: usd2}, nil)
			},
			expectLocked: 2,
		},
		{
			name: "currency mismatch",
			ids:  []uuid.UUID{usd.ID, eur.ID},
			setupMocks: func(repo *MockAccountRepo) {
				repo.On("WithTx", mock.Anything).Return(repo)
				repo.On("LockForShare", mock.Anything, []uuid.UUID{usd.ID, eur.ID}).
					Return(map[uuid.UUID]*account.Account{usd.ID: usd, eur.ID: eur}, nil)
			},
			expectedError: ledger.ErrCurrencyMismatch,
		},
		{
			name: "account not found",
			ids:  []uuid.UUID{usd.ID, uuid.Nil},
			setupMocks: func(repo *MockAccountRepo) {
				repo.On("WithTx", mock.Anything).Return(repo)
				repo.On("LockForShare", mock.Anything, mock.Anything).
					Return(nil, account.ErrAccountNotFound{AccountID: uuid.Nil})
			},
			expectedError: account.ErrAccountNotFound{},
		},
		{
			name: "database error",
			ids:  []uuid.UUID{usd.ID},
			setupMocks: func(repo *MockAccountRepo) {
				repo.On("WithTx", mock.Anything).Return(repo)
				repo.On("LockForShare", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))
			},
			expectedError: errors.New("failed to lock accounts: connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockAccountRepo{}
			tt.setupMocks(repo)
			manager := NewAccountManager(repo, slog.Default())

			locked, err := manager.LockAccounts(context.Background(), nil, "USD", tt.ids...)

			if tt.expectedError != nil {
				assert.Error(t, err)
				if errors.Is(err, tt.expectedError) {
					assert.ErrorIs(t, err, tt.expectedError)
				} else {
					assert.EqualError(t, err, tt.expectedError.Error())
				}
				assert.Nil(t, locked)
			} else {
				assert.NoError(t, err)
				assert.Len(t, locked, tt.expectLocked)
			}
			repo.AssertExpectations(t)
		})
	}
}
