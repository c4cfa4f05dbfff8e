package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/remlyo/remlyo/internal/domain/plan"
	apperrors "github.com/remlyo/remlyo/internal/pkg/errors"
)

// PlanRepository implements plan.Repository on MongoDB
type PlanRepository struct {
	col *mongo.Collection
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db *mongo.Database) plan.Repository {
	return &PlanRepository{col: db.Collection(colPlans)}
}

// Upsert inserts the plan or overwrites the document with the same name
func (r *PlanRepository) Upsert(ctx context.Context, p *plan.Plan) error {
	now := time.Now().UTC()
	id := p.ID
	if id == "" {
		id = uuid.New().String()
	}
	features := p.Features
	if features == nil {
		features = []string{}
	}

	update := bson.M{
		"$set": bson.M{
			"description":              p.Description,
			"price":                    p.Price,
			"currency":                 p.Currency,
			"duration":                 p.Duration,
			"max_remedies_per_ailment": p.MaxRemediesPerAilment,
			"features":                 features,
			"is_active":                p.IsActive,
			"version":                  p.Version,
			"updated_at":               now,
		},
		"$setOnInsert": bson.M{
			"_id":        id,
			"created_at": now,
		},
	}

	var m planModel
	err := r.col.FindOneAndUpdate(ctx, bson.M{"name": string(p.Name)}, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return apperrors.DatabaseError("Failed to upsert plan", err)
	}

	p.ID = m.ID
	p.CreatedAt = m.CreatedAt
	p.UpdatedAt = m.UpdatedAt
	return nil
}

// GetByID retrieves a plan by ID
func (r *PlanRepository) GetByID(ctx context.Context, id string) (*plan.Plan, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByName retrieves a plan by name
func (r *PlanRepository) GetByName(ctx context.Context, name plan.Name) (*plan.Plan, error) {
	return r.findOne(ctx, bson.M{"name": string(name)})
}

// ListActive retrieves active plans ordered by price
func (r *PlanRepository) ListActive(ctx context.Context) ([]*plan.Plan, error) {
	opts := options.Find().SetSort(bson.D{{Key: "price", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := r.col.Find(ctx, bson.M{"is_active": true}, opts)
	if err != nil {
		return nil, apperrors.DatabaseError("Failed to list plans", err)
	}

	var models []planModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, apperrors.DatabaseError("Failed to decode plans", err)
	}

	plans := make([]*plan.Plan, 0, len(models))
	for i := range models {
		p, err := fromPlanModel(&models[i])
		if err != nil {
			// Documents with names outside the fixed kinds are skipped.
			continue
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// Count returns the number of stored plans
func (r *PlanRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, apperrors.DatabaseError("Failed to count plans", err)
	}
	return n, nil
}

func (r *PlanRepository) findOne(ctx context.Context, filter bson.M) (*plan.Plan, error) {
	var m planModel
	if err := r.col.FindOne(ctx, filter).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, plan.ErrNotFound
		}
		return nil, apperrors.DatabaseError("Failed to get plan", err)
	}
	return fromPlanModel(&m)
}
