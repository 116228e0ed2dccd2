package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"spot-letter/models"
)

type SaveJobRepository struct {
	jobStore
}

func NewSaveJobRepository(db *mongo.Database) *SaveJobRepository {
	return &SaveJobRepository{jobStore{col: db.Collection("save_jobs")}}
}

// Create inserts a pending save job carrying the approved candidates.
func (r *SaveJobRepository) Create(ctx context.Context, userID string, candidates []models.EnrichedCandidate) (*models.SaveJob, error) {
	now := time.Now()
	job := &models.SaveJob{
		ID:         primitive.NewObjectID(),
		UserID:     userID,
		Candidates: candidates,
		Status:     models.JobPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := r.col.InsertOne(ctx, job); err != nil {
		return nil, translate("create save job", err)
	}
	return job, nil
}

func (r *SaveJobRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.SaveJob, error) {
	var job models.SaveJob
	if err := r.findByID(ctx, id, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *SaveJobRepository) MarkProcessing(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return r.claim(ctx, id)
}

func (r *SaveJobRepository) Complete(ctx context.Context, id primitive.ObjectID, result *models.SaveResult) (bool, error) {
	return r.complete(ctx, id, result)
}

func (r *SaveJobRepository) Fail(ctx context.Context, id primitive.ObjectID, message string) (bool, error) {
	return r.fail(ctx, id, message)
}

func (r *SaveJobRepository) Cancel(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return r.cancel(ctx, id)
}

func (r *SaveJobRepository) Status(ctx context.Context, id primitive.ObjectID) (models.JobStatus, error) {
	return r.status(ctx, id)
}
