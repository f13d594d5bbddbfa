package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessagePublisher writes keyed JSON messages to one topic. The ledger uses
// it for TransferPosted events (keyed by transfer id) and for commands
// enqueued by the gateway (keyed by idempotency key).
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher parks raw command bytes the processor cannot decode.
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, raw []byte, reason string) error
	Close() error
}

// KafkaWriter is the subset of *kafka.Writer the producers call.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var (
	_ KafkaWriter         = (*kafka.Writer)(nil)
	_ DeadLetterPublisher = (*DLQProducer)(nil)
)
