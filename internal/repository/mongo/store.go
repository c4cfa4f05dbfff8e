package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names
const (
	colUsers         = "users"
	colPlans         = "plans"
	colSubscriptions = "subscriptions"
	colRemedyAccess  = "remedy_access"
	colCounters      = "counters"
)

// Store owns the MongoDB client and hands out repositories
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect opens a client for uri and verifies it with a ping
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri).SetServerSelectionTimeout(10 * time.Second))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	return &Store{client: client, db: client.Database(database)}, nil
}

// DB returns the database the repositories operate on
func (s *Store) DB() *mongo.Database { return s.db }

// Migrate creates the indexes every collection relies on
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colUsers: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colPlans: {
			{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "price", Value: 1}}},
		},
		colSubscriptions: {
			{
				// At most one active subscription per user
				Keys: bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().
					SetName("one_active_per_user").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": "active"}),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "end_date", Value: 1}}},
		},
		colRemedyAccess: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "ailment_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// nextSequence returns the next value of the named counter
func nextSequence(ctx context.Context, db *mongo.Database, name string) (int64, error) {
	var out struct {
		Seq int64 `bson:"seq"`
	}
	err := db.Collection(colCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		return 0, fmt.Errorf("mongo: next %s id: %w", name, err)
	}
	return out.Seq, nil
}
