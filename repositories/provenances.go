package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"spot-letter/models"
)

type ProvenanceRepository struct {
	col *mongo.Collection
}

func NewProvenanceRepository(db *mongo.Database) *ProvenanceRepository {
	return &ProvenanceRepository{col: db.Collection("import_provenances")}
}

// RecordImportProvenance 는 장소가 어떤 게시물에서 왔는지 남긴다.
func (r *ProvenanceRepository) RecordImportProvenance(ctx context.Context, placeID primitive.ObjectID, sourcePostID string, rawPayload map[string]any) error {
	_, err := r.col.InsertOne(ctx, models.ImportProvenance{
		ID:           primitive.NewObjectID(),
		PlaceID:      placeID,
		SourcePostID: sourcePostID,
		RawPayload:   rawPayload,
		RecordedAt:   time.Now(),
	})
	return translate("record provenance", err)
}
