package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spot-letter/models"
)

type ConnectedAccountRepository struct {
	col *mongo.Collection
}

func NewConnectedAccountRepository(db *mongo.Database) *ConnectedAccountRepository {
	return &ConnectedAccountRepository{col: db.Collection("connected_accounts")}
}

// FindForUser returns the most recently updated account of the user.
func (r *ConnectedAccountRepository) FindForUser(ctx context.Context, userID string) (*models.ConnectedAccount, error) {
	var a models.ConnectedAccount
	opts := options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	if err := r.col.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&a); err != nil {
		return nil, translate("find connected account", err)
	}
	return &a, nil
}

// Upsert stores the account keyed by (user_id, provider).
func (r *ConnectedAccountRepository) Upsert(ctx context.Context, a *models.ConnectedAccount) error {
	a.UpdatedAt = time.Now()
	_, err := r.col.UpdateOne(ctx,
		bson.M{"user_id": a.UserID, "provider": a.Provider},
		bson.M{"$set": bson.M{
			"account_ref":  a.AccountRef,
			"access_token": a.AccessToken,
			"updated_at":   a.UpdatedAt,
		}},
		options.Update().SetUpsert(true),
	)
	return translate("upsert connected account", err)
}
