package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/remlyo/remlyo/internal/domain/subscription"
	apperrors "github.com/remlyo/remlyo/internal/pkg/errors"
)

// SubscriptionRepository implements subscription.Repository on MongoDB
type SubscriptionRepository struct {
	col *mongo.Collection
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *mongo.Database) subscription.Repository {
	return &SubscriptionRepository{col: db.Collection(colSubscriptions)}
}

// ReplaceActive cancels the active subscription and inserts s. A previous
// subscription that ended before s.StartDate is expired instead.
// Multi-document transactions need a replica set, so the partial unique
// index on active subscriptions is what rejects a concurrent second insert.
func (r *SubscriptionRepository) ReplaceActive(ctx context.Context, s *subscription.Subscription) (bool, error) {
	now := time.Now().UTC()
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.CreatedAt = now
	s.UpdatedAt = now

	if _, err := r.ExpireLapsed(ctx, s.UserID, s.StartDate); err != nil {
		return false, err
	}

	res, err := r.col.UpdateMany(ctx,
		bson.M{"user_id": s.UserID, "status": string(subscription.StatusActive)},
		bson.M{"$set": bson.M{
			"status":       string(subscription.StatusCancelled),
			"cancelled_at": now,
			"updated_at":   now,
		}},
	)
	if err != nil {
		return false, apperrors.DatabaseError("Failed to cancel active subscription", err)
	}

	if _, err := r.col.InsertOne(ctx, toSubscriptionModel(s)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, subscription.ErrAlreadyActive
		}
		return false, apperrors.DatabaseError("Failed to create subscription", err)
	}

	return res.ModifiedCount > 0, nil
}

// GetByID retrieves a subscription by ID
func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (*subscription.Subscription, error) {
	var m subscriptionModel
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, subscription.ErrNotFound
		}
		return nil, apperrors.DatabaseError("Failed to get subscription", err)
	}
	return fromSubscriptionModel(&m), nil
}

// GetActiveByUser retrieves the user's active subscription
func (r *SubscriptionRepository) GetActiveByUser(ctx context.Context, userID int64) (*subscription.Subscription, error) {
	var m subscriptionModel
	filter := bson.M{"user_id": userID, "status": string(subscription.StatusActive)}
	if err := r.col.FindOne(ctx, filter).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, subscription.ErrNoActiveSubscription
		}
		return nil, apperrors.DatabaseError("Failed to get active subscription", err)
	}
	return fromSubscriptionModel(&m), nil
}

// ListByUser retrieves the user's subscription history, newest first
func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID int64) ([]*subscription.Subscription, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, apperrors.DatabaseError("Failed to list subscriptions", err)
	}

	var models []subscriptionModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, apperrors.DatabaseError("Failed to decode subscriptions", err)
	}

	subs := make([]*subscription.Subscription, 0, len(models))
	for i := range models {
		subs = append(subs, fromSubscriptionModel(&models[i]))
	}
	return subs, nil
}

// CancelActive marks the user's active subscription cancelled.
// A subscription that ended before at is left for expiry.
func (r *SubscriptionRepository) CancelActive(ctx context.Context, userID int64, at time.Time) (*subscription.Subscription, error) {
	at = at.UTC()

	var m subscriptionModel
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{
			"user_id":  userID,
			"status":   string(subscription.StatusActive),
			"end_date": bson.M{"$gte": at},
		},
		bson.M{"$set": bson.M{
			"status":       string(subscription.StatusCancelled),
			"cancelled_at": at,
			"updated_at":   at,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, subscription.ErrNoActiveSubscription
		}
		return nil, apperrors.DatabaseError("Failed to cancel subscription", err)
	}
	return fromSubscriptionModel(&m), nil
}

// ExpireLapsed marks the user's active subscription expired if it ended before now
func (r *SubscriptionRepository) ExpireLapsed(ctx context.Context, userID int64, now time.Time) (*subscription.Subscription, error) {
	now = now.UTC()

	var m subscriptionModel
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{
			"user_id":  userID,
			"status":   string(subscription.StatusActive),
			"end_date": bson.M{"$lt": now},
		},
		bson.M{"$set": bson.M{"status": string(subscription.StatusExpired), "updated_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, apperrors.DatabaseError("Failed to expire subscription", err)
	}
	return fromSubscriptionModel(&m), nil
}

// ExpireOverdue marks active subscriptions ending before now as expired
func (r *SubscriptionRepository) ExpireOverdue(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	now = now.UTC()
	filter := bson.M{
		"status":   string(subscription.StatusActive),
		"end_date": bson.M{"$lt": now},
	}

	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperrors.DatabaseError("Failed to find overdue subscriptions", err)
	}

	var overdue []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &overdue); err != nil {
		return nil, apperrors.DatabaseError("Failed to decode overdue subscriptions", err)
	}

	expired := make([]*subscription.Subscription, 0, len(overdue))
	for _, o := range overdue {
		// Re-check status so a concurrent cancel or replace wins.
		var m subscriptionModel
		err := r.col.FindOneAndUpdate(ctx,
			bson.M{"_id": o.ID, "status": string(subscription.StatusActive)},
			bson.M{"$set": bson.M{"status": string(subscription.StatusExpired), "updated_at": now}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&m)
		if err != nil {
			if isNoDocuments(err) {
				continue
			}
			return expired, apperrors.DatabaseError("Failed to expire subscription", err)
		}
		expired = append(expired, fromSubscriptionModel(&m))
	}
	return expired, nil
}
