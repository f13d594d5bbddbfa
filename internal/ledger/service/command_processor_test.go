package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"log/slog"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/account"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/shared"
)

type MockTransferEngine struct {
	mock.Mock
}

func (m *MockTransferEngine) Transfer(ctx context.Context, req ledger.TransferRequest) (*ledger.TransferResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.TransferResult), args.Error(1)
}

func (m *MockTransferEngine) ReverseTransfer(ctx context.Context, req ledger.ReverseRequest) (*ledger.TransferResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.TransferResult), args.Error(1)
}

func (m *MockTransferEngine) SplitTransfer(ctx context.Context, req ledger.SplitRequest) (*ledger.SplitResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.SplitResult), args.Error(1)
}

type MockRejectionRecorder struct {
	mock.Mock
}

func (m *MockRejectionRecorder) RecordRejection(ctx context.Context, cmd *shared.LedgerCommand, reason shared.RejectionReason, cause error) error {
	args := m.Called(ctx, cmd, reason, cause)
	return args.Error(0)
}

func mustCommand(t *testing.T, typ shared.CommandType, body interface{}) *shared.LedgerCommand {
	t.Helper()
	raw, err := json.Marshal(body)
	assert.NoError(t, err)
	return &shared.LedgerCommand{Type: typ, Source: "checkout", CorrelationID: "corr-1", Body: raw}
}

func TestCommandProcessor_ProcessCommand(t *testing.T) {
	transferReq := ledger.TransferRequest{
		FromAccountID:  uuid.New(),
		ToAccountID:    uuid.New(),
		AmountCents:    10000,
		Currency:       "USD",
		IdempotencyKey: "order-1",
	}
	reverseReq := ledger.ReverseRequest{OriginalTransferID: uuid.New(), IdempotencyKey: "refund-1"}
	splitReq := ledger.SplitRequest{
		BuyerAccountID:      uuid.New(),
		InstructorAccountID: uuid.New(),
		PlatformAccountID:   uuid.New(),
		GrossAmountCents:    10000,
		PlatformFeeCents:    2500,
		Currency:            "USD",
		IdempotencyKey:      "sale-1",
	}
	posted := &ledger.TransferResult{Transfer: &ledger.Transfer{ID: uuid.New()}, Outcome: ledger.OutcomeCreated}

	tests := []struct {
		name          string
		cmd           func(t *testing.T) *shared.LedgerCommand
		setupMocks    func(engine *MockTransferEngine, recorder *MockRejectionRecorder)
		expectedError error
	}{
		{
			name: "transfer applied with envelope correlation id",
			cmd: func(t *testing.T) *shared.LedgerCommand {
				return mustCommand(t, shared.CommandTypeTransfer, transferReq)
			},
			setupMocks: func(engine *MockTransferEngine, _ *MockRejectionRecorder) {
				engine.On("Transfer", mock.Anything, mock.MatchedBy(func(r ledger.TransferRequest) bool {
					return r.IdempotencyKey == "order-1" && r.CorrelationID == "corr-1"
				})).Return(posted, nil)
			},
		},
		{
			name: "reverse applied",
			cmd:  func(t *testing.T) *shared.LedgerCommand { return mustCommand(t, shared.CommandTypeReverse, reverseReq) },
			setupMocks: func(engine *MockTransferEngine, _ *MockRejectionRecorder) {
				engine.On("ReverseTransfer", mock.Anything, mock.MatchedBy(func(r ledger.ReverseRequest) bool {
					return r.OriginalTransferID == reverseReq.OriginalTransferID
				})).Return(posted, nil)
			},
		},
		{
			name: "split applied",
			cmd:  func(t *testing.T) *shared.LedgerCommand { return mustCommand(t, shared.CommandTypeSplit, splitReq) },
			setupMocks: func(engine *MockTransferEngine, _ *MockRejectionRecorder) {
				engine.On("SplitTransfer", mock.Anything, mock.MatchedBy(func(r ledger.SplitRequest) bool {
					return r.GrossAmountCents == 10000 && r.PlatformFeeCents == 2500
				})).Return(&ledger.SplitResult{Outcome: ledger.OutcomeCreated}, nil)
			},
		},
		{
			name: "unknown command type is rejected",
			cmd:  func(t *testing.T) *shared.LedgerCommand { return mustCommand(t, "DEPOSIT", transferReq) },
			setupMocks: func(_ *MockTransferEngine, recorder *MockRejectionRecorder) {
				recorder.On("RecordRejection", mock.Anything, mock.Anything, shared.RejectionReasonMalformed, shared.ErrInvalidCommandType).Return(nil)
			},
		},
		{
			name: "undecodable body is rejected",
			cmd: func(t *testing.T) *shared.LedgerCommand {
				return &shared.LedgerCommand{Type: shared.CommandTypeTransfer, Body: json.RawMessage(`{"amount_cents":"ten"}`)}
			},
			setupMocks: func(_ *MockTransferEngine, recorder *MockRejectionRecorder) {
				recorder.On("RecordRejection", mock.Anything, mock.Anything, shared.RejectionReasonMalformed, mock.Anything).Return(nil)
			},
		},
		{
			name: "permanent engine error is recorded and acknowledged",
			cmd:  func(t *testing.T) *shared.LedgerCommand { return mustCommand(t, shared.CommandTypeReverse, reverseReq) },
			setupMocks: func(engine *MockTransferEngine, recorder *MockRejectionRecorder) {
				cause := fmt.Errorf("transfer x: %w", ledger.ErrAlreadyReversed)
				engine.On("ReverseTransfer", mock.Anything, mock.Anything).Return(nil, cause)
				recorder.On("RecordRejection", mock.Anything, mock.Anything, shared.RejectionReasonAlreadyReversed, cause).Return(nil)
			},
		},
		{
			name: "recorder failure still acknowledges",
			cmd: func(t *testing.T) *shared.LedgerCommand {
				return mustCommand(t, shared.CommandTypeTransfer, transferReq)
			},
			setupMocks: func(engine *MockTransferEngine, recorder *MockRejectionRecorder) {
				engine.On("Transfer", mock.Anything, mock.Anything).Return(nil, ledger.ErrCurrencyMismatch)
				recorder.On("RecordRejection", mock.Anything, mock.Anything, shared.RejectionReasonCurrencyMismatch, mock.Anything).
					Return(errors.New("mongo down"))
			},
		},
		{
			name: "transient engine error is returned for retry",
			cmd:  func(t *testing.T) *shared.LedgerCommand { return mustCommand(t, shared.CommandTypeSplit, splitReq) },
			setupMocks: func(engine *MockTransferEngine, _ *MockRejectionRecorder) {
				engine.On("SplitTransfer", mock.Anything, mock.Anything).Return(nil, ledger.ErrTransientConflict)
			},
			expectedError: ledger.ErrTransientConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &MockTransferEngine{}
			recorder := &MockRejectionRecorder{}
			tt.setupMocks(engine, recorder)
			processor := NewCommandProcessor(engine, recorder, slog.Default())

			err := processor.ProcessCommand(context.Background(), tt.cmd(t))

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			engine.AssertExpectations(t)
			recorder.AssertExpectations(t)
		})
	}
}

func TestRejectionReasonFor(t *testing.T) {
	cases := map[shared.RejectionReason]error{
		shared.RejectionReasonInvalidAmount:    ledger.ErrInvalidAmount,
		shared.RejectionReasonSelfTransfer:     ledger.ErrSelfTransfer,
		shared.RejectionReasonCurrencyMismatch: fmt.Errorf("acc: %w", ledger.ErrCurrencyMismatch),
		shared.RejectionReasonInvalidFeeSplit:  ledger.ErrInvalidFeeSplit,
		shared.RejectionReasonAlreadyReversed:  ledger.ErrAlreadyReversed,
		shared.RejectionReasonTransferNotFound: ledger.ErrTransferNotFound{TransferID: uuid.New()},
		shared.RejectionReasonAccountNotFound:  account.ErrAccountNotFound{AccountID: uuid.New()},
		shared.RejectionReasonInvalidRequest:   ledger.ErrMissingIdempotencyKey,
	}
	for want, err := range cases {
		assert.Equal(t, want, RejectionReasonFor(err), err.Error())
	}
}
