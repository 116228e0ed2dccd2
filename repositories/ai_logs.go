package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spot-letter/models"
)

type AILogRepository struct {
	col *mongo.Collection
}

func NewAILogRepository(db *mongo.Database) *AILogRepository {
	return &AILogRepository{col: db.Collection("ai_logs")}
}

func (r *AILogRepository) Insert(ctx context.Context, log models.AILog) error {
	if log.RequestedAt.IsZero() {
		log.RequestedAt = time.Now()
	}
	_, err := r.col.InsertOne(ctx, log)
	return translate("insert ai log", err)
}

// ListByJob returns the calls made while running jobID, oldest first.
// Prompts and responses are left out.
func (r *AILogRepository) ListByJob(ctx context.Context, jobID string) ([]models.AILog, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "requested_at", Value: 1}}).
		SetProjection(bson.M{"input_prompt": 0, "output_response": 0})
	cur, err := r.col.Find(ctx, bson.M{"job_id": jobID}, opts)
	if err != nil {
		return nil, translate("list ai logs", err)
	}
	var out []models.AILog
	if err := cur.All(ctx, &out); err != nil {
		return nil, translate("list ai logs", err)
	}
	return out, nil
}

// UsageByPurpose aggregates calls requested at or after since, grouped by purpose.
func (r *AILogRepository) UsageByPurpose(ctx context.Context, since time.Time) ([]models.AIUsage, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"requested_at": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":          "$purpose",
			"calls":        bson.M{"$sum": 1},
			"failures":     bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$ifNull": bson.A{"$error_message", false}}, 1, 0}}},
			"total_tokens": bson.M{"$sum": "$total_tokens"},
			"duration_ms":  bson.M{"$sum": "$duration_ms"},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translate("aggregate ai usage", err)
	}
	var out []models.AIUsage
	if err := cur.All(ctx, &out); err != nil {
		return nil, translate("aggregate ai usage", err)
	}
	return out, nil
}
