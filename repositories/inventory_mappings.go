package repositories

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"spot-letter/models"
)

type InventoryMappingRepository struct {
	col *mongo.Collection
}

func NewInventoryMappingRepository(db *mongo.Database) *InventoryMappingRepository {
	return &InventoryMappingRepository{col: db.Collection("inventory_mappings")}
}

// FindMapping returns (nil, nil) when the place has no mapping for provider.
func (r *InventoryMappingRepository) FindMapping(ctx context.Context, placeID primitive.ObjectID, provider string) (*models.InventoryMapping, error) {
	var m models.InventoryMapping
	err := r.col.FindOne(ctx, bson.M{"place_id": placeID, "provider": provider}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, translate("find inventory mapping", err)
	}
	return &m, nil
}

// InsertMapping returns ErrDuplicate when (place_id, provider) already exists.
func (r *InventoryMappingRepository) InsertMapping(ctx context.Context, m *models.InventoryMapping) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, m)
	return translate("insert inventory mapping", err)
}

func (r *InventoryMappingRepository) ListByPlace(ctx context.Context, placeID primitive.ObjectID) ([]models.InventoryMapping, error) {
	cur, err := r.col.Find(ctx, bson.M{"place_id": placeID})
	if err != nil {
		return nil, translate("list inventory mappings", err)
	}
	var out []models.InventoryMapping
	if err := cur.All(ctx, &out); err != nil {
		return nil, translate("list inventory mappings", err)
	}
	return out, nil
}
