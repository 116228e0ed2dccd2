package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"spot-letter/models"
)

func updated(n int) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
}

func TestImportJobTransitions(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create is pending", func(mt *mtest.T) {
		repo := NewImportJobRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		job, err := repo.Create(ctx, "u1", models.TimeWindow{})
		require.NoError(mt, err)
		assert.Equal(mt, models.JobPending, job.Status)
		assert.False(mt, job.ID.IsZero())
	})

	mt.Run("claim only once", func(mt *mtest.T) {
		repo := NewImportJobRepository(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(updated(1), updated(0))

		ok, err := repo.MarkProcessing(ctx, id)
		require.NoError(mt, err)
		assert.True(mt, ok)

		ok, err = repo.MarkProcessing(ctx, id)
		require.NoError(mt, err)
		assert.False(mt, ok)
	})

	mt.Run("complete does not overwrite cancel", func(mt *mtest.T) {
		repo := NewImportJobRepository(mt.DB)
		mt.AddMockResponses(updated(0))

		ok, err := repo.Complete(ctx, primitive.NewObjectID(), &models.ImportResult{})
		require.NoError(mt, err)
		assert.False(mt, ok)
	})

	mt.Run("status not found", func(mt *mtest.T) {
		repo := NewImportJobRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "spotletter.import_jobs", mtest.FirstBatch))

		_, err := repo.Status(ctx, primitive.NewObjectID())
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("status reads field", func(mt *mtest.T) {
		repo := NewImportJobRepository(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "spotletter.import_jobs", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: id}, {Key: "status", Value: "cancelled"}}))

		status, err := repo.Status(ctx, id)
		require.NoError(mt, err)
		assert.Equal(mt, models.JobCancelled, status)
	})
}

func TestSaveJobCancel(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("cancel active job", func(mt *mtest.T) {
		repo := NewSaveJobRepository(mt.DB)
		mt.AddMockResponses(updated(1), updated(0))

		ok, err := repo.Cancel(context.Background(), primitive.NewObjectID())
		require.NoError(mt, err)
		assert.True(mt, ok)

		ok, err = repo.Cancel(context.Background(), primitive.NewObjectID())
		require.NoError(mt, err)
		assert.False(mt, ok, "terminal jobs are not cancelled")
	})
}

func TestUpsertPlaceReturnsID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("upsert", func(mt *mtest.T) {
		repo := NewPlaceRepository(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{{Key: "_id", Value: id}}}))

		got, err := repo.UpsertPlace(context.Background(), "u1", models.EnrichedCandidate{
			CandidateName:   models.CandidateName{Name: "Tokyo Tower"},
			CanonicalName:   "東京タワー",
			ExternalPlaceID: "abc",
		}, "sightseeing")
		require.NoError(mt, err)
		assert.Equal(mt, id, got)
	})
}

func TestPlaceFindByID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		repo := NewPlaceRepository(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "spotletter.places", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "owner_id", Value: "u1"},
			{Key: "external_place_id", Value: "abc"},
			{Key: "name", Value: "東京タワー"},
			{Key: "category", Value: "sightseeing"},
		}))

		p, err := repo.FindByID(context.Background(), id)
		require.NoError(mt, err)
		assert.Equal(mt, id, p.ID)
		assert.Equal(mt, "東京タワー", p.Name)
		assert.Equal(mt, "sightseeing", p.Category)
	})

	mt.Run("not found", func(mt *mtest.T) {
		repo := NewPlaceRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "spotletter.places", mtest.FirstBatch))

		_, err := repo.FindByID(context.Background(), primitive.NewObjectID())
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}

func TestInventoryMappingRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("find missing is nil", func(mt *mtest.T) {
		repo := NewInventoryMappingRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "spotletter.inventory_mappings", mtest.FirstBatch))

		m, err := repo.FindMapping(ctx, primitive.NewObjectID(), "rakuten")
		require.NoError(mt, err)
		assert.Nil(mt, m)
	})

	mt.Run("list by place", func(mt *mtest.T) {
		repo := NewInventoryMappingRepository(mt.DB)
		placeID := primitive.NewObjectID()
		ns := "spotletter.inventory_mappings"
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, ns, mtest.FirstBatch,
				bson.D{{Key: "place_id", Value: placeID}, {Key: "provider", Value: "rakuten"}, {Key: "external_id", Value: "r-1"}}),
			mtest.CreateCursorResponse(0, ns, mtest.NextBatch,
				bson.D{{Key: "place_id", Value: placeID}, {Key: "provider", Value: "booking"}, {Key: "external_id", Value: "b-1"}}),
		)

		got, err := repo.ListByPlace(ctx, placeID)
		require.NoError(mt, err)
		require.Len(mt, got, 2)
		assert.Equal(mt, "rakuten", got[0].Provider)
		assert.Equal(mt, "b-1", got[1].ExternalID)
	})

	mt.Run("duplicate key", func(mt *mtest.T) {
		repo := NewInventoryMappingRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: inventory_mappings index: uniq_place_provider",
		}))

		err := repo.InsertMapping(ctx, &models.InventoryMapping{PlaceID: primitive.NewObjectID(), Provider: "rakuten"})
		assert.ErrorIs(mt, err, ErrDuplicate)
	})
}

func TestConnectedAccountFindForUser(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		repo := NewConnectedAccountRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "spotletter.connected_accounts", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "user_id", Value: "u1"},
			{Key: "provider", Value: "instagram"},
			{Key: "account_ref", Value: "1784"},
			{Key: "access_token", Value: "tok"},
		}))

		a, err := repo.FindForUser(context.Background(), "u1")
		require.NoError(mt, err)
		assert.Equal(mt, "1784", a.AccountRef)
		assert.Equal(mt, "tok", a.AccessToken)
	})
}

func TestAILogQueries(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	ns := "spotletter.ai_logs"

	mt.Run("list by job", func(mt *mtest.T) {
		repo := NewAILogRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "job_id", Value: "j1"}, {Key: "purpose", Value: models.PurposeCaptionExtract}, {Key: "total_tokens", Value: int64(120)}},
			bson.D{{Key: "job_id", Value: "j1"}, {Key: "purpose", Value: models.PurposeCandidateScore}, {Key: "error_message", Value: "timeout"}},
		))

		logs, err := repo.ListByJob(ctx, "j1")
		require.NoError(mt, err)
		require.Len(mt, logs, 2)
		assert.Equal(mt, int64(120), logs[0].TotalTokens)
		require.NotNil(mt, logs[1].ErrorMessage)
		assert.Equal(mt, "timeout", *logs[1].ErrorMessage)
	})

	mt.Run("usage by purpose", func(mt *mtest.T) {
		repo := NewAILogRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: models.PurposeCandidateScore}, {Key: "calls", Value: int64(4)}, {Key: "failures", Value: int64(1)}, {Key: "total_tokens", Value: int64(900)}},
		))

		usage, err := repo.UsageByPurpose(ctx, time.Now().Add(-24*time.Hour))
		require.NoError(mt, err)
		require.Len(mt, usage, 1)
		assert.Equal(mt, models.PurposeCandidateScore, usage[0].Purpose)
		assert.Equal(mt, int64(4), usage[0].Calls)
		assert.Equal(mt, int64(1), usage[0].Failures)
	})
}
