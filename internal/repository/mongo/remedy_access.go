package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/remlyo/remlyo/internal/domain/subscription"
	apperrors "github.com/remlyo/remlyo/internal/pkg/errors"
)

// RemedyAccessRepository implements subscription.AccessRepository on MongoDB.
// One document per (user, ailment) holds both the view and purchase sets.
type RemedyAccessRepository struct {
	col *mongo.Collection
}

// NewRemedyAccessRepository creates a new remedy access repository
func NewRemedyAccessRepository(db *mongo.Database) subscription.AccessRepository {
	return &RemedyAccessRepository{col: db.Collection(colRemedyAccess)}
}

// ListByUser retrieves every access record of the user
func (r *RemedyAccessRepository) ListByUser(ctx context.Context, userID int64) ([]subscription.RemedyAccess, error) {
	opts := options.Find().SetSort(bson.D{{Key: "ailment_id", Value: 1}})
	cursor, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, apperrors.DatabaseError("Failed to list remedy access", err)
	}

	var models []remedyAccessModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, apperrors.DatabaseError("Failed to decode remedy access", err)
	}

	out := make([]subscription.RemedyAccess, 0, len(models))
	for i := range models {
		out = append(out, fromRemedyAccessModel(&models[i]))
	}
	return out, nil
}

// Get retrieves one access record, or nil if the ailment was never touched
func (r *RemedyAccessRepository) Get(ctx context.Context, userID int64, ailmentID string) (*subscription.RemedyAccess, error) {
	var m remedyAccessModel
	err := r.col.FindOne(ctx, accessFilter(userID, ailmentID)).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, apperrors.DatabaseError("Failed to get remedy access", err)
	}
	a := fromRemedyAccessModel(&m)
	return &a, nil
}

// IncrementView counts remedyID against the ailment allowance of max
func (r *RemedyAccessRepository) IncrementView(ctx context.Context, userID int64, ailmentID, remedyID string, max int) (bool, error) {
	now := time.Now().UTC()
	if err := r.ensure(ctx, userID, ailmentID, now); err != nil {
		return false, err
	}

	res, err := r.col.UpdateOne(ctx, viewFilter(userID, ailmentID, remedyID, max), bson.M{
		"$inc":      bson.M{"access_count": 1},
		"$addToSet": bson.M{"viewed_remedies": remedyID},
		"$set":      bson.M{"updated_at": now},
	})
	if err != nil {
		return false, apperrors.DatabaseError("Failed to record remedy view", err)
	}
	if res.ModifiedCount > 0 {
		return true, nil
	}

	current, err := r.Get(ctx, userID, ailmentID)
	if err != nil {
		return false, err
	}
	if current != nil && current.HasViewed(remedyID) {
		return false, nil
	}
	return false, subscription.ErrLimitReached
}

// AddPurchase records remedyID as bought
func (r *RemedyAccessRepository) AddPurchase(ctx context.Context, userID int64, ailmentID, remedyID string) (bool, error) {
	now := time.Now().UTC()

	res, err := r.col.UpdateOne(ctx, purchaseFilter(userID, ailmentID, remedyID), bson.M{
		"$addToSet":    bson.M{"accessed_remedies": remedyID},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": bson.M{"access_count": 0, "viewed_remedies": bson.A{}},
	}, options.UpdateOne().SetUpsert(true))
	if err != nil {
		// The document exists and already holds the remedy, so the upsert
		// collided with the (user, ailment) unique index.
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, apperrors.DatabaseError("Failed to record remedy purchase", err)
	}

	return res.ModifiedCount > 0 || res.UpsertedCount > 0, nil
}

func (r *RemedyAccessRepository) ensure(ctx context.Context, userID int64, ailmentID string, now time.Time) error {
	_, err := r.col.UpdateOne(ctx, accessFilter(userID, ailmentID), bson.M{
		"$setOnInsert": bson.M{
			"accessed_remedies": bson.A{},
			"viewed_remedies":   bson.A{},
			"access_count":      0,
			"updated_at":        now,
		},
	}, options.UpdateOne().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return apperrors.DatabaseError("Failed to create remedy access", err)
	}
	return nil
}

func accessFilter(userID int64, ailmentID string) bson.M {
	return bson.M{"user_id": userID, "ailment_id": ailmentID}
}

// viewFilter only matches while remedyID is uncounted and the allowance has
// room, so concurrent views cannot overshoot max.
func viewFilter(userID int64, ailmentID, remedyID string, max int) bson.M {
	filter := accessFilter(userID, ailmentID)
	filter["viewed_remedies"] = bson.M{"$ne": remedyID}
	filter["access_count"] = bson.M{"$lt": max}
	return filter
}

// purchaseFilter misses once remedyID is bought, turning the upsert into a
// duplicate key error on the (user, ailment) index.
func purchaseFilter(userID int64, ailmentID, remedyID string) bson.M {
	filter := accessFilter(userID, ailmentID)
	filter["accessed_remedies"] = bson.M{"$ne": remedyID}
	return filter
}
