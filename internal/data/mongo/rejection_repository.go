package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/rejection"
)

const RejectionCollectionName = "command_rejections"

var RejectionIndexes = []mongo.IndexModel{
	{Keys: bson.D{{Key: "idempotency_key", Value: 1}}},
	{Keys: bson.D{{Key: "rejected_at", Value: -1}}},
}

type RejectionRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

func NewRejectionRepository(logger *slog.Logger, db *mongo.Database) rejection.Repository {
	return &RejectionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *RejectionRepository) Create(ctx context.Context, rej *rejection.Rejection) error {
	collection := r.db.Collection(RejectionCollectionName)

	if _, err := collection.InsertOne(ctx, rej); err != nil {
		r.logger.Error("Failed to create command rejection",
			"idempotency_key", rej.IdempotencyKey,
			"error", err)
		return fmt.Errorf("failed to create command rejection: %w", err)
	}
	return nil
}

func (r *RejectionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*rejection.Rejection, error) {
	if key == "" {
		return nil, nil
	}

	collection := r.db.Collection(RejectionCollectionName)

	var rej rejection.Rejection
	err := collection.FindOne(ctx, bson.M{"idempotency_key": key}).Decode(&rej)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Failed to get command rejection",
			"idempotency_key", key,
			"error", err)
		return nil, fmt.Errorf("failed to get command rejection: %w", err)
	}
	return &rej, nil
}
