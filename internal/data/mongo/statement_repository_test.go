package mongo

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/ledger"
	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/statement"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// toDoc round-trips v through BSON so mocked cursors carry the exact encoding the driver writes.
func toDoc(t *testing.T, v interface{}) bson.D {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var doc bson.D
	require.NoError(t, bson.Unmarshal(raw, &doc))
	return doc
}

func sampleLine(accountID uuid.UUID, amount int64) *statement.Line {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &statement.Line{
		EntryID:               uuid.New(),
		AccountID:             accountID,
		TransferID:            uuid.New(),
		CounterpartyAccountID: uuid.New(),
		Direction:             ledger.DirectionCredit,
		AmountCents:           amount,
		Currency:              "USD",
		RefType:               "course",
		RefID:                 "course-1",
		Operation:             ledger.OperationSplit,
		EventID:               uuid.New(),
		PostedAt:              now,
		ProjectedAt:           now,
	}
}

func TestStatementRepository_Upsert(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("inserts new lines", func(mt *mtest.T) {
		lines := []*statement.Line{sampleLine(uuid.New(), 100), sampleLine(uuid.New(), 200)}
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 2},
			bson.E{Key: "nModified", Value: 0},
			bson.E{Key: "upserted", Value: bson.A{
				bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: lines[0].EntryID}},
				bson.D{{Key: "index", Value: 1}, {Key: "_id", Value: lines[1].EntryID}},
			}},
		))

		repo := NewStatementRepository(testLogger(), mt.DB)
		upserted, err := repo.Upsert(context.Background(), lines)
		require.NoError(mt, err)
		assert.Equal(mt, int64(2), upserted)
	})

	mt.Run("replay upserts nothing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
		))

		repo := NewStatementRepository(testLogger(), mt.DB)
		upserted, err := repo.Upsert(context.Background(), []*statement.Line{sampleLine(uuid.New(), 100)})
		require.NoError(mt, err)
		assert.Zero(mt, upserted)
	})

	mt.Run("empty batch skips the server", func(mt *mtest.T) {
		repo := NewStatementRepository(testLogger(), mt.DB)
		upserted, err := repo.Upsert(context.Background(), nil)
		require.NoError(mt, err)
		assert.Zero(mt, upserted)
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("server error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    11600,
			Name:    "InterruptedAtShutdown",
			Message: "interrupted at shutdown",
		}))

		repo := NewStatementRepository(testLogger(), mt.DB)
		_, err := repo.Upsert(context.Background(), []*statement.Line{sampleLine(uuid.New(), 100)})
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "failed to upsert statement lines")
	})
}

func TestStatementRepository_ListByAccount(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	accountID := uuid.New()

	mt.Run("success", func(mt *mtest.T) {
		first := sampleLine(accountID, 7500)
		second := sampleLine(accountID, 2500)
		ns := mt.DB.Name() + "." + StatementCollectionName
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, toDoc(mt.T, first), toDoc(mt.T, second)))

		repo := NewStatementRepository(testLogger(), mt.DB)
		lines, err := repo.ListByAccount(context.Background(), accountID, 10, 0)
		require.NoError(mt, err)
		require.Len(mt, lines, 2)
		assert.Equal(mt, first.EntryID, lines[0].EntryID)
		assert.Equal(mt, accountID, lines[0].AccountID)
		assert.Equal(mt, int64(7500), lines[0].AmountCents)
		assert.Equal(mt, ledger.DirectionCredit, lines[0].Direction)
		assert.True(mt, first.PostedAt.Equal(lines[0].PostedAt))
		assert.Equal(mt, second.EntryID, lines[1].EntryID)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "find", started.CommandName)
		assert.Equal(mt, int64(10), started.Command.Lookup("limit").AsInt64())
	})

	mt.Run("no lines", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + StatementCollectionName
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		repo := NewStatementRepository(testLogger(), mt.DB)
		lines, err := repo.ListByAccount(context.Background(), accountID, 10, 0)
		require.NoError(mt, err)
		assert.Empty(mt, lines)
		assert.NotNil(mt, lines)
	})

	mt.Run("find error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "bad sort",
		}))

		repo := NewStatementRepository(testLogger(), mt.DB)
		_, err := repo.ListByAccount(context.Background(), accountID, 10, 0)
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "failed to get statement lines")
	})
}

func TestStatementRepository_CountByAccount(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	accountID := uuid.New()

	mt.Run("success", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + StatementCollectionName
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: 1}, {Key: "n", Value: int32(3)}}))

		repo := NewStatementRepository(testLogger(), mt.DB)
		count, err := repo.CountByAccount(context.Background(), accountID)
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), count)
	})

	mt.Run("aggregate error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Name:    "Unauthorized",
			Message: "not authorized",
		}))

		repo := NewStatementRepository(testLogger(), mt.DB)
		_, err := repo.CountByAccount(context.Background(), accountID)
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "failed to count statement lines")
	})
}
