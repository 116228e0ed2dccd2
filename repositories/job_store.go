package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spot-letter/models"
)

var activeStatuses = bson.A{models.JobPending, models.JobProcessing}

// jobStore holds the status transitions shared by import_jobs and save_jobs.
// Every transition is a conditional update; the bool result reports whether it applied.
type jobStore struct {
	col *mongo.Collection
}

// claim moves pending → processing. Only one worker can win.
func (s jobStore) claim(ctx context.Context, id primitive.ObjectID) (bool, error) {
	now := time.Now()
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.JobPending},
		bson.M{"$set": bson.M{"status": models.JobProcessing, "started_at": now, "updated_at": now}},
	)
	if err != nil {
		return false, translate("claim job", err)
	}
	return res.MatchedCount == 1, nil
}

// complete moves processing → completed with the result snapshot.
// A job cancelled in the meantime is left untouched.
func (s jobStore) complete(ctx context.Context, id primitive.ObjectID, result any) (bool, error) {
	now := time.Now()
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.JobProcessing},
		bson.M{"$set": bson.M{
			"status":      models.JobCompleted,
			"result":      result,
			"finished_at": now,
			"updated_at":  now,
		}},
	)
	if err != nil {
		return false, translate("complete job", err)
	}
	return res.MatchedCount == 1, nil
}

// fail records the error message. Partial results are never written.
func (s jobStore) fail(ctx context.Context, id primitive.ObjectID, message string) (bool, error) {
	now := time.Now()
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": activeStatuses}},
		bson.M{
			"$set": bson.M{
				"status":      models.JobFailed,
				"error":       message,
				"finished_at": now,
				"updated_at":  now,
			},
			"$unset": bson.M{"result": ""},
		},
	)
	if err != nil {
		return false, translate("fail job", err)
	}
	return res.MatchedCount == 1, nil
}

// cancel marks a non-terminal job cancelled.
func (s jobStore) cancel(ctx context.Context, id primitive.ObjectID) (bool, error) {
	now := time.Now()
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": activeStatuses}},
		bson.M{"$set": bson.M{"status": models.JobCancelled, "finished_at": now, "updated_at": now}},
	)
	if err != nil {
		return false, translate("cancel job", err)
	}
	return res.MatchedCount == 1, nil
}

// status re-reads only the status field; used at cancellation checkpoints.
func (s jobStore) status(ctx context.Context, id primitive.ObjectID) (models.JobStatus, error) {
	var doc struct {
		Status models.JobStatus `bson:"status"`
	}
	opts := options.FindOne().SetProjection(bson.M{"status": 1})
	if err := s.col.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc); err != nil {
		return "", translate("job status", err)
	}
	return doc.Status, nil
}

func (s jobStore) findByID(ctx context.Context, id primitive.ObjectID, out any) error {
	return translate("find job", s.col.FindOne(ctx, bson.M{"_id": id}).Decode(out))
}
