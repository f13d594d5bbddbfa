package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/statement"
)

const (
	// StatementCollectionName is the name of the account statement collection in MongoDB
	StatementCollectionName = "account_statements"
)

// StatementIndexes are created at startup by the transfer processor.
var StatementIndexes = []mongo.IndexModel{
	{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "posted_at", Value: -1}}},
	{Keys: bson.D{{Key: "transfer_id", Value: 1}}},
}

// StatementRepository implements the statement.Repository interface for MongoDB
type StatementRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewStatementRepository creates a new MongoDB statement repository
func NewStatementRepository(logger *slog.Logger, db *mongo.Database) statement.Repository {
	return &StatementRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert writes all lines in one unordered bulk write keyed on the entry id.
// Lines that already exist are left untouched.
func (r *StatementRepository) Upsert(ctx context.Context, lines []*statement.Line) (int64, error) {
	if len(lines) == 0 {
		return 0, nil
	}

	collection := r.db.Collection(StatementCollectionName)

	models := make([]mongo.WriteModel, 0, len(lines))
	for _, line := range lines {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": line.EntryID}).
			SetUpdate(bson.M{"$setOnInsert": line}).
			SetUpsert(true))
	}

	result, err := collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		r.logger.Error("Failed to upsert statement lines",
			"count", len(lines),
			"error", err)
		return 0, fmt.Errorf("failed to upsert statement lines: %w", err)
	}

	return result.UpsertedCount, nil
}

// ListByAccount retrieves paginated statement lines for an account.
// Results are sorted by posting time in descending order (newest first).
func (r *StatementRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*statement.Line, error) {
	collection := r.db.Collection(StatementCollectionName)

	filter := bson.M{"account_id": accountID}
	opts := options.Find().
		SetSort(bson.D{{Key: "posted_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get statement lines",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get statement lines: %w", err)
	}
	defer cursor.Close(ctx)

	lines := []*statement.Line{}
	if err := cursor.All(ctx, &lines); err != nil {
		r.logger.Error("Failed to decode statement lines",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode statement lines: %w", err)
	}

	return lines, nil
}

// CountByAccount counts the statement lines projected for an account
func (r *StatementRepository) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	collection := r.db.Collection(StatementCollectionName)

	filter := bson.M{"account_id": accountID}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count statement lines",
			"account_id", accountID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count statement lines: %w", err)
	}

	return count, nil
}
