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

type PlaceRepository struct {
	col *mongo.Collection
}

func NewPlaceRepository(db *mongo.Database) *PlaceRepository {
	return &PlaceRepository{col: db.Collection("places")}
}

// UpsertPlace upserts a place uniquely identified by (owner_id, external_place_id)
// and returns its id. Pass a session context to join a transaction.
func (r *PlaceRepository) UpsertPlace(ctx context.Context, ownerID string, c models.EnrichedCandidate, category string) (primitive.ObjectID, error) {
	now := time.Now()
	filter := bson.M{"owner_id": ownerID, "external_place_id": c.ExternalPlaceID}
	set := bson.M{
		"updated_at":        now,
		"name":              c.DisplayName(),
		"formatted_address": c.FormattedAddress,
		"tags":              c.Tags,
		"category":          category,
		"summary_location":  c.SummaryLocation,
	}
	if c.Coordinates != nil {
		set["coordinates"] = c.Coordinates
	}
	update := bson.M{
		"$setOnInsert": bson.M{"created_at": now},
		"$set":         set,
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After).
		SetProjection(bson.M{"_id": 1})

	var doc struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return primitive.NilObjectID, translate("upsert place", err)
	}
	return doc.ID, nil
}

func (r *PlaceRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Place, error) {
	var p models.Place
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, translate("find place", err)
	}
	return &p, nil
}
