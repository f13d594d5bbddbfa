package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/shared"
)

type MockCommandProcessor struct {
	mock.Mock
}

func (m *MockCommandProcessor) ProcessCommand(ctx context.Context, cmd *shared.LedgerCommand) error {
	args := m.Called(ctx, cmd)
	return args.Error(0)
}

type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	args := m.Called(ctx, key, value, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestCommandHandler_HandleMessage(t *testing.T) {
	validCommand := &shared.LedgerCommand{
		Type:          shared.CommandTypeTransfer,
		Source:        "checkout",
		CorrelationID: "corr-1",
		Body:          json.RawMessage(`{"idempotency_key":"order-1","amount_cents":100}`),
	}
	validJSON, err := json.Marshal(validCommand)
	assert.NoError(t, err)

	tests := []struct {
		name          string
		value         []byte
		setupMocks    func(p *MockCommandProcessor, dlq *MockDeadLetterPublisher)
		expectedError string
	}{
		{
			name:  "command handed to processor",
			value: validJSON,
			setupMocks: func(p *MockCommandProcessor, _ *MockDeadLetterPublisher) {
				p.On("ProcessCommand", mock.Anything, mock.MatchedBy(func(cmd *shared.LedgerCommand) bool {
					return cmd.Type == shared.CommandTypeTransfer && cmd.IdempotencyKey() == "order-1"
				})).Return(nil)
			},
		},
		{
			name:  "processor error keeps the message uncommitted",
			value: validJSON,
			setupMocks: func(p *MockCommandProcessor, _ *MockDeadLetterPublisher) {
				p.On("ProcessCommand", mock.Anything, mock.Anything).Return(errors.New("failed to process TRANSFER command: serialization failure"))
			},
			expectedError: "failed to process TRANSFER command",
		},
		{
			name:  "undecodable bytes go to the DLQ",
			value: []byte("invalid json"),
			setupMocks: func(_ *MockCommandProcessor, dlq *MockDeadLetterPublisher) {
				dlq.On("PublishToDLQ", mock.Anything, "order-1", []byte("invalid json"), mock.AnythingOfType("string")).Return(nil)
			},
		},
		{
			name:  "DLQ failure keeps the message uncommitted",
			value: []byte("invalid json"),
			setupMocks: func(_ *MockCommandProcessor, dlq *MockDeadLetterPublisher) {
				dlq.On("PublishToDLQ", mock.Anything, "order-1", []byte("invalid json"), mock.Anything).Return(errors.New("dlq error"))
			},
			expectedError: "failed to unmarshal ledger command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			processor := &MockCommandProcessor{}
			dlq := &MockDeadLetterPublisher{}
			tt.setupMocks(processor, dlq)
			handler := NewCommandHandler(slog.Default(), processor, dlq)

			err := handler.HandleMessage(context.Background(), []byte("order-1"), tt.value)

			if tt.expectedError != "" {
				assert.ErrorContains(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			processor.AssertExpectations(t)
			dlq.AssertExpectations(t)
		})
	}
}

func TestCommandHandler_NoDLQConfigured(t *testing.T) {
	handler := NewCommandHandler(slog.Default(), &MockCommandProcessor{}, nil)
	err := handler.HandleMessage(context.Background(), []byte("k"), []byte("{"))
	assert.ErrorContains(t, err, "failed to unmarshal ledger command")
}
