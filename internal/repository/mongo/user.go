package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/remlyo/remlyo/internal/domain/user"
	apperrors "github.com/remlyo/remlyo/internal/pkg/errors"
)

// UserRepository implements user.Repository on MongoDB
type UserRepository struct {
	db  *mongo.Database
	col *mongo.Collection
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *mongo.Database) user.Repository {
	return &UserRepository{db: db, col: db.Collection(colUsers)}
}

// Create creates a new user with the next numeric id
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	id, err := nextSequence(ctx, r.db, colUsers)
	if err != nil {
		return apperrors.DatabaseError("Failed to allocate user id", err)
	}

	now := time.Now().UTC()
	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = user.RoleUser
	}
	if u.SubscriptionStatus == "" {
		u.SubscriptionStatus = user.SubscriptionNone
	}

	if _, err := r.col.InsertOne(ctx, toUserModel(u)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("User with this email already exists")
		}
		return apperrors.DatabaseError("Failed to create user", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// Update updates a user's profile fields
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	u.UpdatedAt = time.Now().UTC()

	set := bson.M{
		"email":      u.Email,
		"username":   u.Username,
		"role":       u.Role,
		"updated_at": u.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if u.FullName != nil {
		set["full_name"] = *u.FullName
	} else {
		update["$unset"] = bson.M{"full_name": ""}
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": u.ID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("User with this email already exists")
		}
		return apperrors.DatabaseError("Failed to update user", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("User")
	}
	return nil
}

// UpdateSubscriptionState sets the denormalized subscription fields
func (r *UserRepository) UpdateSubscriptionState(ctx context.Context, id int64, status string, planID *string) error {
	set := bson.M{
		"subscription_status": status,
		"updated_at":          time.Now().UTC(),
	}
	if planID != nil {
		set["current_plan_id"] = *planID
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return apperrors.DatabaseError("Failed to update subscription state", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("User")
	}
	return nil
}

// Delete deletes a user
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperrors.DatabaseError("Failed to delete user", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("User")
	}
	return nil
}

// List retrieves all users with pagination
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*user.User, int64, error) {
	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, apperrors.DatabaseError("Failed to count users", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, apperrors.DatabaseError("Failed to list users", err)
	}

	var models []userModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, 0, apperrors.DatabaseError("Failed to decode users", err)
	}

	users := make([]*user.User, 0, len(models))
	for i := range models {
		users = append(users, fromUserModel(&models[i]))
	}
	return users, total, nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*user.User, error) {
	var m userModel
	if err := r.col.FindOne(ctx, filter).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, apperrors.NotFound("User")
		}
		return nil, apperrors.DatabaseError("Failed to get user", err)
	}
	return fromUserModel(&m), nil
}
