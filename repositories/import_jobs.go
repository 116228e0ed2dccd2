package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"spot-letter/models"
)

type ImportJobRepository struct {
	jobStore
}

func NewImportJobRepository(db *mongo.Database) *ImportJobRepository {
	return &ImportJobRepository{jobStore{col: db.Collection("import_jobs")}}
}

// Create inserts a pending import job.
func (r *ImportJobRepository) Create(ctx context.Context, userID string, window models.TimeWindow) (*models.ImportJob, error) {
	now := time.Now()
	job := &models.ImportJob{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Window:    window,
		Status:    models.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.col.InsertOne(ctx, job); err != nil {
		return nil, translate("create import job", err)
	}
	return job, nil
}

func (r *ImportJobRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ImportJob, error) {
	var job models.ImportJob
	if err := r.findByID(ctx, id, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *ImportJobRepository) MarkProcessing(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return r.claim(ctx, id)
}

func (r *ImportJobRepository) Complete(ctx context.Context, id primitive.ObjectID, result *models.ImportResult) (bool, error) {
	return r.complete(ctx, id, result)
}

func (r *ImportJobRepository) Fail(ctx context.Context, id primitive.ObjectID, message string) (bool, error) {
	return r.fail(ctx, id, message)
}

func (r *ImportJobRepository) Cancel(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return r.cancel(ctx, id)
}

func (r *ImportJobRepository) Status(ctx context.Context, id primitive.ObjectID) (models.JobStatus, error) {
	return r.status(ctx, id)
}
