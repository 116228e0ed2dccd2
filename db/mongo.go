package db

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"spot-letter/config"
	"spot-letter/logger"
)

var (
	clientOnce sync.Once
	client     *mongo.Client
	db         *mongo.Database
)

// Init initializes the global Mongo client and database using config values.
func Init(ctx context.Context, cfg config.MongoConfig) error {
	var initErr error
	clientOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		cl, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
		if err != nil {
			initErr = err
			return
		}
		if err := cl.Ping(ctx, readpref.Primary()); err != nil {
			initErr = err
			return
		}
		client = cl
		db = client.Database(cfg.Database)

		if err := ensureIndexes(ctx, db); err != nil {
			initErr = err
			return
		}
		logger.Log.Infof("MongoDB connected and indexes ensured (db=%s)", cfg.Database)
	})
	return initErr
}

func Client() *mongo.Client     { return client }
func Database() *mongo.Database { return db }

// Disconnect closes the global client if it was opened.
func Disconnect(ctx context.Context) error {
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

type indexSpec struct {
	collection string
	model      mongo.IndexModel
}

func indexSpecs() []indexSpec {
	return []indexSpec{
		// 작업 조회는 사용자별 최신순
		{"import_jobs", mongo.IndexModel{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_user_created"),
		}},
		{"import_jobs", mongo.IndexModel{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_status"),
		}},
		{"save_jobs", mongo.IndexModel{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_user_created"),
		}},
		{"places", mongo.IndexModel{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "external_place_id", Value: 1}},
			Options: options.Index().SetName("uniq_owner_external_place").SetUnique(true),
		}},
		{"inventory_mappings", mongo.IndexModel{
			Keys:    bson.D{{Key: "place_id", Value: 1}, {Key: "provider", Value: 1}},
			Options: options.Index().SetName("uniq_place_provider").SetUnique(true),
		}},
		{"import_provenances", mongo.IndexModel{
			Keys:    bson.D{{Key: "place_id", Value: 1}},
			Options: options.Index().SetName("idx_place_id"),
		}},
		{"connected_accounts", mongo.IndexModel{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "provider", Value: 1}},
			Options: options.Index().SetName("uniq_user_provider").SetUnique(true),
		}},
		{"ai_logs", mongo.IndexModel{
			Keys:    bson.D{{Key: "requested_at", Value: -1}},
			Options: options.Index().SetName("idx_requested_at_desc"),
		}},
		{"ai_logs", mongo.IndexModel{
			Keys:    bson.D{{Key: "job_id", Value: 1}, {Key: "requested_at", Value: 1}},
			Options: options.Index().SetName("idx_job_requested").SetSparse(true),
		}},
	}
}

func ensureIndexes(ctx context.Context, d *mongo.Database) error {
	for _, spec := range indexSpecs() {
		if _, err := d.Collection(spec.collection).Indexes().CreateOne(ctx, spec.model); err != nil {
			return err
		}
	}
	return nil
}
