package components

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/rejection"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/shared"
)

type MockRejectionRepo struct {
	mock.Mock
}

func (m *MockRejectionRepo) Create(ctx context.Context, r *rejection.Rejection) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRejectionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*rejection.Rejection, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rejection.Rejection), args.Error(1)
}

func newRejectedCommand(t *testing.T, key string) *shared.LedgerCommand {
	body, err := json.Marshal(ledger.TransferRequest{
		FromAccountID:  uuid.New(),
		ToAccountID:    uuid.New(),
		AmountCents:    -100,
		Currency:       "USD",
		IdempotencyKey: key,
	})
	assert.NoError(t, err)
	return &shared.LedgerCommand{
		Type:          shared.CommandTypeTransfer,
		Source:        "refunds",
		CorrelationID: "corr-7",
		Body:          body,
	}
}

func TestRejectionRecorder_RecordRejection(t *testing.T) {
	tests := []struct {
		name          string
		setupMocks    func(repo *MockRejectionRepo)
		expectedError bool
	}{
		{
			name: "creates new rejection",
			setupMocks: func(repo *MockRejectionRepo) {
				repo.On("GetByIdempotencyKey", mock.Anything, "refund-1").Return(nil, nil)
				repo.On("Create", mock.Anything, mock.MatchedBy(func(r *rejection.Rejection) bool {
					return r.IdempotencyKey == "refund-1" &&
						r.Reason == shared.RejectionReasonInvalidAmount &&
						r.CommandType == shared.CommandTypeTransfer &&
						r.Source == "refunds" &&
						r.CorrelationID == "corr-7" &&
						r.Detail == ledger.ErrInvalidAmount.Error()
				})).Return(nil)
			},
		},
		{
			name: "skips when already recorded",
			setupMocks: func(repo *MockRejectionRepo) {
				repo.On("GetByIdempotencyKey", mock.Anything, "refund-1").
					Return(&rejection.Rejection{ID: uuid.New(), IdempotencyKey: "refund-1"}, nil)
			},
		},
		{
			name: "lookup failure still records",
			setupMocks: func(repo *MockRejectionRepo) {
				repo.On("GetByIdempotencyKey", mock.Anything, "refund-1").Return(nil, errors.New("timeout"))
				repo.On("Create", mock.Anything, mock.Anything).Return(nil)
			},
		},
		{
			name: "create failure",
			setupMocks: func(repo *MockRejectionRepo) {
				repo.On("GetByIdempotencyKey", mock.Anything, "refund-1").Return(nil, nil)
				repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("write failed"))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockRejectionRepo{}
			tt.setupMocks(repo)
			recorder := NewRejectionRecorder(repo, slog.Default())

			err := recorder.RecordRejection(context.Background(), newRejectedCommand(t, "refund-1"),
				shared.RejectionReasonInvalidAmount, ledger.ErrInvalidAmount)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			repo.AssertExpectations(t)
		})
	}
}
