package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/remlyo/remlyo/internal/domain/plan"
	"github.com/remlyo/remlyo/internal/pkg/errors"
)

// PlanRepository implements plan.Repository
type PlanRepository struct {
	db *sql.DB
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db *sql.DB) plan.Repository {
	return &PlanRepository{db: db}
}

const planColumns = `id, name, description, price, currency, duration, max_remedies_per_ailment,
	features, is_active, version, created_at, updated_at`

// Upsert inserts the plan or overwrites the row with the same name
func (r *PlanRepository) Upsert(ctx context.Context, p *plan.Plan) error {
	now := time.Now()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	features, err := json.Marshal(p.Features)
	if err != nil {
		return errors.Internal("Failed to encode plan features", err)
	}

	query := `
		INSERT INTO plans (` + planColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (name) DO UPDATE SET
			description = excluded.description,
			price = excluded.price,
			currency = excluded.currency,
			duration = excluded.duration,
			max_remedies_per_ailment = excluded.max_remedies_per_ailment,
			features = excluded.features,
			is_active = excluded.is_active,
			version = excluded.version,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`

	var createdAt int64
	err = r.db.QueryRowContext(ctx, query,
		p.ID, string(p.Name), p.Description, p.Price, p.Currency, p.Duration,
		p.MaxRemediesPerAilment, string(features), p.IsActive, p.Version, now.Unix(),
	).Scan(&p.ID, &createdAt)
	if err != nil {
		return errors.DatabaseError("Failed to upsert plan", err)
	}

	p.CreatedAt = unixTime(createdAt)
	p.UpdatedAt = unixTime(now.Unix())
	return nil
}

// GetByID retrieves a plan by ID
func (r *PlanRepository) GetByID(ctx context.Context, id string) (*plan.Plan, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id)
	return r.scanOne(row)
}

// GetByName retrieves a plan by name
func (r *PlanRepository) GetByName(ctx context.Context, name plan.Name) (*plan.Plan, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE name = $1`, string(name))
	return r.scanOne(row)
}

// ListActive retrieves active plans ordered by price
func (r *PlanRepository) ListActive(ctx context.Context) ([]*plan.Plan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+planColumns+`
		FROM plans
		WHERE is_active = $1
		ORDER BY price ASC, name ASC
	`, true)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list plans", err)
	}
	defer rows.Close()

	var plans []*plan.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan plan", err)
		}
		plans = append(plans, p)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to iterate plans", err)
	}

	return plans, nil
}

// Count returns the number of stored plans
func (r *PlanRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM plans").Scan(&n); err != nil {
		return 0, errors.DatabaseError("Failed to count plans", err)
	}
	return n, nil
}

func (r *PlanRepository) scanOne(row *sql.Row) (*plan.Plan, error) {
	p, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, plan.ErrNotFound
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get plan", err)
	}
	return p, nil
}

func scanPlan(s scanner) (*plan.Plan, error) {
	var p plan.Plan
	var name, features string
	var createdAt, updatedAt int64

	err := s.Scan(
		&p.ID, &name, &p.Description, &p.Price, &p.Currency, &p.Duration,
		&p.MaxRemediesPerAilment, &features, &p.IsActive, &p.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Names outside the closed set surface as an error rather than a plan
	if p.Name, err = plan.ParseName(name); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(features), &p.Features); err != nil {
		return nil, err
	}
	p.CreatedAt = unixTime(createdAt)
	p.UpdatedAt = unixTime(updatedAt)

	return &p, nil
}
